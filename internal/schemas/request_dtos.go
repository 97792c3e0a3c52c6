// Package schemas defines the request structures for various operations in the application.
package schemas

// SignUpRequest is a struct that represents a sign-up request
// Name is required and must be at most 15 characters
// Schema defaults to mailto, Uri is validated per schema
// Password is excluded from sanitation so that it is stored as typed
type SignUpRequest struct {
	Name     string `json:"name" validate:"required,max=15,account_name"`
	Schema   string `json:"schema" validate:"omitempty,contact_schema"`
	Uri      string `json:"uri" validate:"required,max=256"`
	Password string `json:"password" validate:"required,max=128" sanitize:"-"`
	Language string `json:"language" validate:"required,max=8"`
	Timezone string `json:"timezone" validate:"required,max=64"`
}

// SignInRequest is a struct that represents a sign-in request
// Account is either the account name or a mailto contact address
type SignInRequest struct {
	Account  string `json:"account" validate:"required,max=256"`
	Password string `json:"password" validate:"required,max=128" sanitize:"-"`
}

// ResetPasswordRequest is a struct that represents a password reset request
// Account is the contact address the reset ticket is sent to
type ResetPasswordRequest struct {
	Account string `json:"account" validate:"required,max=256"`
}

// ChangePasswordRequest is a struct that represents the mandatory password change after a reset
type ChangePasswordRequest struct {
	Password string `json:"password" validate:"required,max=128" sanitize:"-"`
}

// UpdatePasswordRequest is a struct that represents a password change from the settings
// NewPassword2 must repeat NewPassword1
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required,max=128" sanitize:"-"`
	NewPassword1    string `json:"newPassword1" validate:"required,max=128" sanitize:"-"`
	NewPassword2    string `json:"newPassword2" validate:"required,max=128" sanitize:"-"`
}

// WithdrawRequest is a struct that represents an account deletion request
type WithdrawRequest struct {
	Confirmed bool `json:"confirmed"`
}

// UpdateSettingsRequest is a struct that represents an account settings change
type UpdateSettingsRequest struct {
	Language string `json:"language" validate:"required,max=8"`
	Timezone string `json:"timezone" validate:"required,max=64"`
}

// AddContactRequest is a struct that represents a new contact
type AddContactRequest struct {
	Schema string `json:"schema" validate:"required,contact_schema"`
	Uri    string `json:"uri" validate:"required,max=256"`
}

// MarkReadRequest is a struct that represents notifications to be marked as read
type MarkReadRequest struct {
	NotificationIds []int64 `json:"notificationIds" validate:"required,min=1,max=100"`
}
