package handlers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/torao/kazzla/internal/schemas"
	"github.com/torao/kazzla/internal/services"
	"github.com/torao/kazzla/internal/utils"
)

func newAccountDTO(account *schemas.Account, contacts []schemas.Contact) schemas.AccountDTO {
	dto := schemas.AccountDTO{
		AccountId:              account.ID,
		Name:                   account.Name,
		Language:               account.Language,
		Timezone:               account.Timezone,
		Role:                   account.Role.Name,
		PasswordChangeRequired: account.PasswordChangeRequired(),
	}
	for i := range contacts {
		dto.Contacts = append(dto.Contacts, newContactDTO(&contacts[i]))
	}
	return dto
}

func newContactDTO(contact *schemas.Contact) schemas.ContactDTO {
	dto := schemas.ContactDTO{
		ContactId: contact.ID,
		Schema:    string(contact.Schema),
		Uri:       contact.URI,
		Confirmed: contact.Confirmed,
	}
	if contact.ConfirmedAt != nil {
		confirmedAt := contact.ConfirmedAt.Format(time.RFC3339)
		dto.ConfirmedAt = &confirmedAt
	}
	return dto
}

func newNotificationDTO(n *services.RenderedNotification) schemas.NotificationDTO {
	args := n.Args
	if args == nil {
		args = []string{}
	}
	return schemas.NotificationDTO{
		NotificationId: n.ID,
		Priority:       n.Priority,
		Informant:      n.Informant,
		Code:           n.Code,
		Message:        n.Message,
		Args:           args,
		Read:           n.ReadAt != nil,
		Pinned:         n.PinnedAt != nil,
		CreationDate:   n.CreatedAt.Format(time.RFC3339),
	}
}

func newEventLogDTO(entry *schemas.EventLog) schemas.EventLogDTO {
	return schemas.EventLogDTO{
		EventId:       entry.ID,
		AccountId:     entry.AccountID,
		Level:         string(entry.Level),
		RemoteAddress: entry.RemoteAddress,
		Message:       entry.Message,
		CreationDate:  entry.CreatedAt.Format(time.RFC3339),
	}
}

// requestLanguage picks the language of user-facing messages: the "lang" query parameter,
// then the first Accept-Language entry.
func requestLanguage(c *gin.Context) string {
	if lang := c.Query(utils.LanguageParamKey); lang != "" {
		return lang
	}
	accept := c.GetHeader("Accept-Language")
	if accept == "" {
		return ""
	}
	first := strings.Split(accept, ",")[0]
	return strings.TrimSpace(strings.Split(first, ";")[0])
}
