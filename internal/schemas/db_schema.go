// Package schemas defines the data structures
package schemas

import (
	"strings"
	"time"
)

// ContactSchema is the addressing scheme of a contact URI.
type ContactSchema string

const (
	ContactSchemaMailto ContactSchema = "mailto"
	ContactSchemaTel    ContactSchema = "tel"
)

// TokenScheme is the purpose a single-use token was issued for.
type TokenScheme string

const (
	TokenSchemeResetPassword  TokenScheme = "reset-password"
	TokenSchemeConfirmContact TokenScheme = "confirm-contact"
)

// EventLevel is the severity of an event log entry.
type EventLevel string

const (
	EventLevelInfo  EventLevel = "INFO"
	EventLevelWarn  EventLevel = "WARN"
	EventLevelError EventLevel = "ERROR"
)

// Notification priorities, lower is more urgent.
const (
	PriorityCritical    = 0
	PriorityWarning     = 100
	PriorityInformation = 200
	PriorityEventLog    = 300
)

// Account represents the data model for an account in the system.
type Account struct {
	ID             string    `json:"id"`              // Unique identifier of the account.
	Name           string    `json:"name"`            // Unique display name, 1 to 15 characters.
	HashedPassword string    `json:"hashed_password"` // Encoded password hash, empty after a reset ticket was redeemed.
	Salt           string    `json:"salt"`            // Per-account salt, generated on first password assignment.
	Language       string    `json:"language"`        // Preferred language code.
	Timezone       string    `json:"timezone"`        // Preferred timezone code.
	Role           Role      `json:"role"`            // Optional role, zero value when none is assigned.
	CreatedAt      time.Time `json:"created_at"`      // Timestamp when the account was created.
	SessionEpoch   int64     `json:"-"`               // Incremented to revoke every session token issued before.
}

// PasswordChangeRequired reports whether the account was signed in through a reset ticket
// and has not chosen a new password yet.
func (a *Account) PasswordChangeRequired() bool {
	return a.HashedPassword == ""
}

// Role groups permissions that can be attached to an account.
type Role struct {
	Name        string `json:"name"`
	Permissions string `json:"permissions"` // Comma-separated permission names.
}

// HasPermission reports whether the role carries the given permission (case-insensitive).
func (r Role) HasPermission(permission string) bool {
	for _, p := range strings.Split(r.Permissions, ",") {
		if strings.EqualFold(strings.TrimSpace(p), permission) && permission != "" {
			return true
		}
	}
	return false
}

// Contact represents a communication address owned by an account.
type Contact struct {
	ID          string        `json:"id"`
	AccountID   string        `json:"account_id"`
	Schema      ContactSchema `json:"schema"`
	URI         string        `json:"uri"`
	Confirmed   bool          `json:"confirmed"`
	ConfirmedAt *time.Time    `json:"confirmed_at"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Address returns the contact in URI form, e.g. "mailto:alice@example.com".
func (c *Contact) Address() string {
	return string(c.Schema) + ":" + c.URI
}

// Token is a single-use, time-boxed credential. The plain value is never stored.
type Token struct {
	ID        string      `json:"id"`
	AccountID string      `json:"account_id"`
	Scheme    TokenScheme `json:"scheme"`
	Target    *string     `json:"target"` // Optional reference, e.g. the contact being confirmed.
	IssuedAt  time.Time   `json:"issued_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Expired reports whether the token is past its expiry at the given instant.
func (t *Token) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// EventLog is one row of the security audit trail.
type EventLog struct {
	ID            int64      `json:"id"`
	AccountID     *string    `json:"account_id"`
	Level         EventLevel `json:"level"`
	RemoteAddress string     `json:"remote_address"`
	Message       string     `json:"message"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Notification is a message shown to an account holder.
type Notification struct {
	ID        int64      `json:"id"`
	AccountID string     `json:"account_id"`
	Priority  int        `json:"priority"`
	Informant string     `json:"informant"`
	Code      string     `json:"code"`
	Args      []string   `json:"args"`
	ReadAt    *time.Time `json:"read_at"`
	PinnedAt  *time.Time `json:"pinned_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// Language is a supported UI language.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Timezone is a supported timezone; UTCOffset is in minutes.
type Timezone struct {
	Code           string `json:"code"`
	Name           string `json:"name"`
	UTCOffset      int    `json:"utc_offset"`
	DaylightSaving bool   `json:"daylight_saving"`
}

// Message is a localized text addressed by code.
type Message struct {
	Language string `json:"language"`
	Country  string `json:"country"`
	Code     string `json:"code"`
	Content  string `json:"content"`
}

// ParseContact normalizes a contact given as schema and URI.
// A URI carrying its own "mailto:" or "tel:" prefix wins over an empty schema; mailto addresses are lower-cased.
func ParseContact(schema, uri string) (ContactSchema, string) {
	s := ContactSchema(strings.ToLower(strings.TrimSpace(schema)))
	u := strings.TrimSpace(uri)
	for _, known := range []ContactSchema{ContactSchemaMailto, ContactSchemaTel} {
		prefix := string(known) + ":"
		if len(u) > len(prefix) && strings.EqualFold(u[:len(prefix)], prefix) {
			if s == "" {
				s = known
			}
			if s == known {
				u = u[len(prefix):]
			}
			break
		}
	}
	if s == "" {
		s = ContactSchemaMailto
	}
	if s == ContactSchemaMailto {
		u = strings.ToLower(u)
	}
	return s, u
}
