package utils

const (
	// ContactIdKey is the key for the contact ID used in routing parameters.
	ContactIdKey = "contactId"

	// TicketParamKey is the key for a password reset ticket used in query parameters.
	TicketParamKey = "ticket"

	// TokenParamKey is the key for a contact confirmation token used in query parameters.
	TokenParamKey = "token"

	// OffsetParamKey is the key for offset used in pagination query parameters.
	OffsetParamKey = "offset"

	// LimitParamKey is the key for limit used in pagination query parameters.
	LimitParamKey = "limit"

	// LanguageParamKey overrides the Accept-Language header for localized messages.
	LanguageParamKey = "lang"
)
