// Package refdata holds the reference data (languages, timezones, localized messages) that is read once
// at startup and shared read-only by every request.
package refdata

import (
	"context"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/torao/kazzla/internal/interfaces"
	"github.com/torao/kazzla/internal/repositories"
	"github.com/torao/kazzla/internal/schemas"
)

// FallbackLanguage is used when neither the requested language nor its ISO 639 prefix has a message.
const FallbackLanguage = "en"

// Message codes used by the service.
const (
	MsgResetPasswordRequested = "auth.reset_password.requested"
	MsgTicketInvalid          = "auth.ticket.invalid"
	MsgPasswordChangeRequired = "auth.password_change.required"
	MsgSignedUp               = "notification.signed_up"
	MsgPasswordChanged        = "notification.password_changed"
	MsgContactConfirmed       = "notification.contact_confirmed"
)

// defaultMessages are the built-in English texts, overridable through code_messages.
var defaultMessages = map[string]string{
	MsgResetPasswordRequested: "If the address is registered, instructions to reset the password have been sent to it.",
	MsgTicketInvalid:          "The ticket is invalid or has expired.",
	MsgPasswordChangeRequired: "Please choose a new password.",
	MsgSignedUp:               "Welcome, {0}.",
	MsgPasswordChanged:        "Your password has been changed.",
	MsgContactConfirmed:       "{0} has been confirmed.",
}

// Catalog is immutable after construction and safe for concurrent use.
type Catalog struct {
	languages []schemas.Language
	timezones []schemas.Timezone
	langIndex map[string]schemas.Language
	tzIndex   map[string]schemas.Timezone
	messages  map[string]map[string]string // language tag -> code -> content
}

// NewCatalog builds a catalog from already loaded rows.
func NewCatalog(languages []schemas.Language, timezones []schemas.Timezone, messages []schemas.Message) *Catalog {
	c := &Catalog{
		languages: append([]schemas.Language(nil), languages...),
		timezones: append([]schemas.Timezone(nil), timezones...),
		langIndex: make(map[string]schemas.Language, len(languages)),
		tzIndex:   make(map[string]schemas.Timezone, len(timezones)),
		messages:  map[string]map[string]string{FallbackLanguage: {}},
	}

	for _, l := range languages {
		c.langIndex[l.Code] = l
	}
	for _, tz := range timezones {
		c.tzIndex[tz.Code] = tz
	}
	for code, content := range defaultMessages {
		c.messages[FallbackLanguage][code] = content
	}
	for _, m := range messages {
		tag := languageTag(m.Language, m.Country)
		if c.messages[tag] == nil {
			c.messages[tag] = map[string]string{}
		}
		c.messages[tag][m.Code] = m.Content
	}
	return c
}

// Load reads every reference table through db.
func Load(ctx context.Context, db interfaces.DBTX) (*Catalog, error) {
	codes := repositories.CodeRepository{}

	languages, err := codes.Languages(ctx, db)
	if err != nil {
		return nil, err
	}
	timezones, err := codes.Timezones(ctx, db)
	if err != nil {
		return nil, err
	}
	messages, err := codes.Messages(ctx, db)
	if err != nil {
		return nil, err
	}

	log.Infof("Loaded reference data: %d languages, %d timezones, %d messages", len(languages), len(timezones), len(messages))
	return NewCatalog(languages, timezones, messages), nil
}

// Languages returns a copy of the supported languages.
func (c *Catalog) Languages() []schemas.Language {
	return append([]schemas.Language(nil), c.languages...)
}

// Timezones returns a copy of the supported timezones.
func (c *Catalog) Timezones() []schemas.Timezone {
	return append([]schemas.Timezone(nil), c.timezones...)
}

func (c *Catalog) Language(code string) (schemas.Language, bool) {
	l, ok := c.langIndex[code]
	return l, ok
}

func (c *Catalog) Timezone(code string) (schemas.Timezone, bool) {
	tz, ok := c.tzIndex[code]
	return tz, ok
}

// Message returns the text for code in lang, trying lang, then its ISO 639 prefix, then English.
// Placeholders {0}, {1}, ... are replaced by args. An unknown code is returned as is.
func (c *Catalog) Message(lang, code string, args ...string) string {
	content, ok := c.lookup(lang, code)
	if !ok {
		return code
	}
	for i, arg := range args {
		content = strings.ReplaceAll(content, "{"+strconv.Itoa(i)+"}", arg)
	}
	return content
}

func (c *Catalog) lookup(lang, code string) (string, bool) {
	tag := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(lang), "_", "-"))
	candidates := []string{tag}
	if len(tag) > 2 {
		candidates = append(candidates, tag[:2])
	}
	candidates = append(candidates, FallbackLanguage)

	for _, candidate := range candidates {
		if content, ok := c.messages[candidate][code]; ok {
			return content, true
		}
	}
	return "", false
}

func languageTag(language, country string) string {
	tag := strings.ToLower(language)
	if country != "" {
		tag += "-" + strings.ToLower(country)
	}
	return tag
}
