package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/torao/kazzla/internal/middleware"
	"github.com/torao/kazzla/internal/schemas"
	"github.com/torao/kazzla/internal/services"
	"github.com/torao/kazzla/internal/utils"
)

// confirmContactPath is where confirmation links point to.
const confirmContactPath = "/api/settings/confirm_contact"

type ContactHdl interface {
	AddContact(c *gin.Context)
	RemoveContact(c *gin.Context)
	RequestConfirmation(c *gin.Context)
	ConfirmContact(c *gin.Context)
}

type ContactHandler struct {
	ContactService *services.ContactService
	PublicBaseURL  string
}

func NewContactHandler(contactService *services.ContactService, publicBaseURL string) ContactHdl {
	return &ContactHandler{
		ContactService: contactService,
		PublicBaseURL:  strings.TrimRight(publicBaseURL, "/"),
	}
}

func (handler *ContactHandler) AddContact(c *gin.Context) {
	addContactRequest := c.Value(utils.SanitizedPayloadKey.String()).(*schemas.AddContactRequest)

	contact, err := handler.ContactService.AddContact(c.Request.Context(), middleware.Session(c),
		addContactRequest.Schema, addContactRequest.Uri)
	if err != nil {
		utils.WriteAndLogServiceError(c, err)
		return
	}

	contactDto := newContactDTO(contact)
	utils.WriteAndLogResponse(c, &contactDto, http.StatusCreated)
}

func (handler *ContactHandler) RemoveContact(c *gin.Context) {
	contactId := c.Param(utils.ContactIdKey)

	if err := handler.ContactService.RemoveContact(c.Request.Context(), middleware.Session(c), contactId); err != nil {
		utils.WriteAndLogServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RequestConfirmation mails a confirmation link for the contact in the path.
func (handler *ContactHandler) RequestConfirmation(c *gin.Context) {
	contactId := c.Param(utils.ContactIdKey)

	err := handler.ContactService.RequestConfirmation(c.Request.Context(), middleware.Session(c), contactId,
		handler.PublicBaseURL+confirmContactPath)
	if err != nil {
		utils.WriteAndLogServiceError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// ConfirmContact is the target of the confirmation link.
func (handler *ContactHandler) ConfirmContact(c *gin.Context) {
	contact, err := handler.ContactService.FinalizeConfirmation(c.Request.Context(), middleware.Session(c), c.Query(utils.TokenParamKey))
	if err != nil {
		utils.WriteAndLogServiceError(c, err)
		return
	}

	contactDto := newContactDTO(contact)
	utils.WriteAndLogResponse(c, &contactDto, http.StatusOK)
}
