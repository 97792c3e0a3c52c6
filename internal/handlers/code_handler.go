package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/torao/kazzla/internal/refdata"
	"github.com/torao/kazzla/internal/utils"
)

// CodeHdl serves the reference data needed to fill in the sign-up and settings forms.
type CodeHdl interface {
	GetLanguages(c *gin.Context)
	GetTimezones(c *gin.Context)
}

type CodeHandler struct {
	Catalog *refdata.Catalog
}

func NewCodeHandler(catalog *refdata.Catalog) CodeHdl {
	return &CodeHandler{Catalog: catalog}
}

func (handler *CodeHandler) GetLanguages(c *gin.Context) {
	utils.WriteAndLogResponse(c, gin.H{"records": handler.Catalog.Languages()}, http.StatusOK)
}

func (handler *CodeHandler) GetTimezones(c *gin.Context) {
	utils.WriteAndLogResponse(c, gin.H{"records": handler.Catalog.Timezones()}, http.StatusOK)
}
