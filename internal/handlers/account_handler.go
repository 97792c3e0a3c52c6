package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/torao/kazzla/internal/middleware"
	"github.com/torao/kazzla/internal/refdata"
	"github.com/torao/kazzla/internal/schemas"
	"github.com/torao/kazzla/internal/services"
	"github.com/torao/kazzla/internal/utils"
)

type AccountHdl interface {
	SignUp(c *gin.Context)
	SignIn(c *gin.Context)
	RedeemTicket(c *gin.Context)
	SignOut(c *gin.Context)
	ResetPassword(c *gin.Context)
	ChangePassword(c *gin.Context)
	Withdraw(c *gin.Context)
	GetAccount(c *gin.Context)
	UpdateSettings(c *gin.Context)
	UpdatePassword(c *gin.Context)
}

type AccountHandler struct {
	AccountService *services.AccountService
	Catalog        *refdata.Catalog
	PublicBaseURL  string
}

func NewAccountHandler(accountService *services.AccountService, catalog *refdata.Catalog, publicBaseURL string) AccountHdl {
	return &AccountHandler{
		AccountService: accountService,
		Catalog:        catalog,
		PublicBaseURL:  strings.TrimRight(publicBaseURL, "/"),
	}
}

// SignUp creates an account with its first contact and signs it in.
func (handler *AccountHandler) SignUp(c *gin.Context) {
	signUpRequest := c.Value(utils.SanitizedPayloadKey.String()).(*schemas.SignUpRequest)
	sess := middleware.Session(c)

	profile, err := handler.AccountService.SignUp(c.Request.Context(), sess, services.SignUpInput{
		Name:     signUpRequest.Name,
		Schema:   signUpRequest.Schema,
		URI:      signUpRequest.Uri,
		Password: signUpRequest.Password,
		Language: signUpRequest.Language,
		Timezone: signUpRequest.Timezone,
	})
	if err != nil {
		utils.WriteAndLogServiceError(c, err)
		return
	}

	sessionDto := &schemas.SessionDTO{
		Token:   sess.Token(),
		Account: newAccountDTO(profile.Account, profile.Contacts),
	}
	utils.WriteAndLogResponse(c, sessionDto, http.StatusCreated)
}

// SignIn authenticates with account name or contact address and password.
func (handler *AccountHandler) SignIn(c *gin.Context) {
	signInRequest := c.Value(utils.SanitizedPayloadKey.String()).(*schemas.SignInRequest)
	sess := middleware.Session(c)

	account, err := handler.AccountService.SignIn(c.Request.Context(), sess, signInRequest.Account, signInRequest.Password)
	if err != nil {
		utils.WriteAndLogServiceError(c, err)
		return
	}

	sessionDto := &schemas.SessionDTO{
		Token:   sess.Token(),
		Account: newAccountDTO(account, nil),
	}
	utils.WriteAndLogResponse(c, sessionDto, http.StatusOK)
}

// RedeemTicket signs in with the ticket of a password reset mail. The account then has to choose
// a new password before anything else.
func (handler *AccountHandler) RedeemTicket(c *gin.Context) {
	sess := middleware.Session(c)

	account, err := handler.AccountService.RedeemPasswordReset(c.Request.Context(), sess, c.Query(utils.TicketParamKey))
	if err != nil {
		utils.WriteAndLogServiceError(c, err)
		return
	}

	sessionDto := &schemas.SessionDTO{
		Token:   sess.Token(),
		Account: newAccountDTO(account, nil),
	}
	utils.WriteAndLogResponse(c, sessionDto, http.StatusOK)
}

func (handler *AccountHandler) SignOut(c *gin.Context) {
	handler.AccountService.SignOut(c.Request.Context(), middleware.Session(c))
	c.Status(http.StatusNoContent)
}

// ResetPassword answers with the same message whether or not the address is registered.
func (handler *AccountHandler) ResetPassword(c *gin.Context) {
	resetPasswordRequest := c.Value(utils.SanitizedPayloadKey.String()).(*schemas.ResetPasswordRequest)

	handler.AccountService.RequestPasswordReset(c.Request.Context(), middleware.Session(c), resetPasswordRequest.Account, handler.PublicBaseURL)

	messageDto := &schemas.MessageDTO{
		Message: handler.Catalog.Message(requestLanguage(c), refdata.MsgResetPasswordRequested),
	}
	utils.WriteAndLogResponse(c, messageDto, http.StatusAccepted)
}

// ChangePassword sets the password of the signed-in account without asking for the current one.
// It is the step that follows RedeemTicket.
func (handler *AccountHandler) ChangePassword(c *gin.Context) {
	changePasswordRequest := c.Value(utils.SanitizedPayloadKey.String()).(*schemas.ChangePasswordRequest)

	if err := handler.AccountService.ChangePassword(c.Request.Context(), middleware.Session(c), changePasswordRequest.Password); err != nil {
		utils.WriteAndLogServiceError(c, err)
		return
	}

	messageDto := &schemas.MessageDTO{
		Message: handler.Catalog.Message(requestLanguage(c), refdata.MsgPasswordChanged),
	}
	utils.WriteAndLogResponse(c, messageDto, http.StatusOK)
}

func (handler *AccountHandler) Withdraw(c *gin.Context) {
	withdrawRequest := c.Value(utils.SanitizedPayloadKey.String()).(*schemas.WithdrawRequest)

	if err := handler.AccountService.Withdraw(c.Request.Context(), middleware.Session(c), withdrawRequest.Confirmed); err != nil {
		utils.WriteAndLogServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (handler *AccountHandler) GetAccount(c *gin.Context) {
	profile, err := handler.AccountService.Account(c.Request.Context(), middleware.Session(c))
	if err != nil {
		utils.WriteAndLogServiceError(c, err)
		return
	}

	accountDto := newAccountDTO(profile.Account, profile.Contacts)
	utils.WriteAndLogResponse(c, &accountDto, http.StatusOK)
}

func (handler *AccountHandler) UpdateSettings(c *gin.Context) {
	updateSettingsRequest := c.Value(utils.SanitizedPayloadKey.String()).(*schemas.UpdateSettingsRequest)

	account, err := handler.AccountService.UpdateSettings(c.Request.Context(), middleware.Session(c),
		updateSettingsRequest.Language, updateSettingsRequest.Timezone)
	if err != nil {
		utils.WriteAndLogServiceError(c, err)
		return
	}

	accountDto := newAccountDTO(account, nil)
	utils.WriteAndLogResponse(c, &accountDto, http.StatusOK)
}

func (handler *AccountHandler) UpdatePassword(c *gin.Context) {
	updatePasswordRequest := c.Value(utils.SanitizedPayloadKey.String()).(*schemas.UpdatePasswordRequest)

	err := handler.AccountService.UpdatePassword(c.Request.Context(), middleware.Session(c),
		updatePasswordRequest.CurrentPassword, updatePasswordRequest.NewPassword1, updatePasswordRequest.NewPassword2)
	if err != nil {
		utils.WriteAndLogServiceError(c, err)
		return
	}

	messageDto := &schemas.MessageDTO{
		Message: handler.Catalog.Message(requestLanguage(c), refdata.MsgPasswordChanged),
	}
	utils.WriteAndLogResponse(c, messageDto, http.StatusOK)
}
