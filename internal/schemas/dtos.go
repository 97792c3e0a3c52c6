package schemas

// ErrorDTO is a struct that represents an error response
// Error is the custom error, see CustomError
type ErrorDTO struct {
	Error CustomError `json:"error"`
}

// MetadataDTO describes the running API.
type MetadataDTO struct {
	ApiVersion string `json:"apiVersion"`
	ApiName    string `json:"apiName"`
}

// MessageDTO is a struct that represents a plain informational response
type MessageDTO struct {
	Message string `json:"message"`
}

// ContactDTO is a struct that represents a contact of the signed-in account
// ConfirmedAt is only set once the contact has been confirmed
type ContactDTO struct {
	ContactId   string  `json:"contactId"`
	Schema      string  `json:"schema"`
	Uri         string  `json:"uri"`
	Confirmed   bool    `json:"confirmed"`
	ConfirmedAt *string `json:"confirmedAt,omitempty"`
}

// AccountDTO is a struct that represents an account response
// PasswordChangeRequired is true after signing in with a reset ticket
type AccountDTO struct {
	AccountId              string       `json:"accountId"`
	Name                   string       `json:"name"`
	Language               string       `json:"language"`
	Timezone               string       `json:"timezone"`
	Role                   string       `json:"role,omitempty"`
	PasswordChangeRequired bool         `json:"passwordChangeRequired"`
	Contacts               []ContactDTO `json:"contacts,omitempty"`
}

// SessionDTO is a struct that represents a successful sign-in or sign-up
// Token is the session token, also set as HttpOnly cookie
type SessionDTO struct {
	Token   string     `json:"token"`
	Account AccountDTO `json:"account"`
}

// NotificationDTO is a struct that represents a notification response
type NotificationDTO struct {
	NotificationId int64    `json:"notificationId"`
	Priority       int      `json:"priority"`
	Informant      string   `json:"informant"`
	Code           string   `json:"code"`
	Message        string   `json:"message"`
	Args           []string `json:"args"`
	Read           bool     `json:"read"`
	Pinned         bool     `json:"pinned"`
	CreationDate   string   `json:"creationDate"`
}

// UnreadCountDTO is a struct that represents the number of unread notifications
type UnreadCountDTO struct {
	Unread int `json:"unread"`
}

// EventLogDTO is a struct that represents an audit trail entry
type EventLogDTO struct {
	EventId       int64   `json:"eventId"`
	AccountId     *string `json:"accountId"`
	Level         string  `json:"level"`
	RemoteAddress string  `json:"remoteAddress"`
	Message       string  `json:"message"`
	CreationDate  string  `json:"creationDate"`
}

// PaginatedResponse is a struct that represents a paginated response
// Records is the records of the response
// Pagination is the pagination of the response
type PaginatedResponse struct {
	Records    interface{} `json:"records"`
	Pagination interface{} `json:"pagination"`
}

// Pagination is a struct that represents a pagination
// Offset is the given offset of the pagination
// Limit is the given limit of the pagination
// Records is the total records of the pagination
type Pagination struct {
	Offset  int `json:"offset"`
	Limit   int `json:"limit"`
	Records int `json:"records"`
}
