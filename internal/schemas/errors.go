package schemas

// CustomError is the error payload returned to clients.
// Code is a stable identifier, Message is a generic human-readable text.
type CustomError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

var (
	BadRequest = &CustomError{
		Message: "The request body is invalid. Please check the request body and try again.",
		Code:    "ERR-001",
	}
	NameTaken = &CustomError{
		Message: "The account name is already taken. Please try another name.",
		Code:    "ERR-002",
	}
	ContactTaken = &CustomError{
		Message: "The contact address is already registered. Please try another address.",
		Code:    "ERR-003",
	}
	InvalidCredentials = &CustomError{
		Message: "The account or password is incorrect. Please check your input and try again.",
		Code:    "ERR-004",
	}
	InvalidTicket = &CustomError{
		Message: "The ticket is invalid or has expired. Please request a new one.",
		Code:    "ERR-005",
	}
	Unauthorized = &CustomError{
		Message: "You are not signed in. Please sign in and try again.",
		Code:    "ERR-006",
	}
	ConfirmationRequired = &CustomError{
		Message: "Please confirm that you really want to delete your account.",
		Code:    "ERR-007",
	}
	SessionMismatch = &CustomError{
		Message: "The link was issued for another account. Please sign in again.",
		Code:    "ERR-008",
	}
	PasswordChangeRequired = &CustomError{
		Message: "Please choose a new password before continuing.",
		Code:    "ERR-009",
	}
	LastContact = &CustomError{
		Message: "An account must keep at least one contact.",
		Code:    "ERR-010",
	}
	Forbidden = &CustomError{
		Message: "You do not have permission to access this resource.",
		Code:    "ERR-011",
	}
	NotFound = &CustomError{
		Message: "The requested resource was not found.",
		Code:    "ERR-012",
	}
	DatabaseError = &CustomError{
		Message: "A database error occurred. Please try again later.",
		Code:    "ERR-DB",
	}
	InternalServerError = &CustomError{
		Message: "An internal server error occurred. Please try again later.",
		Code:    "ERR-500",
	}
)
