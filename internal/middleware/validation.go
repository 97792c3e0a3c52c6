package middleware

import (
	"errors"
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"

	"github.com/torao/kazzla/internal/schemas"
	"github.com/torao/kazzla/internal/utils"
)

// ValidateAndSanitizeStruct binds the JSON body into a fresh value of the type of obj, sanitizes and
// validates it, and stores the pointer under utils.SanitizedPayloadKey.
func ValidateAndSanitizeStruct(obj interface{}) gin.HandlerFunc {
	payloadType := reflect.TypeOf(obj)
	if payloadType.Kind() == reflect.Ptr {
		payloadType = payloadType.Elem()
	}

	return func(c *gin.Context) {
		payload := reflect.New(payloadType).Interface()

		if err := c.ShouldBindJSON(payload); err != nil {
			utils.WriteAndLogError(c, schemas.BadRequest, http.StatusBadRequest, err)
			return
		}

		validator := utils.GetValidator()
		if err := validator.SanitizeData(payload); err != nil {
			utils.WriteAndLogError(c, schemas.BadRequest, http.StatusBadRequest, err)
			return
		}

		if err := validator.Validate.Struct(payload); err != nil {
			utils.WriteAndLogError(c, schemas.BadRequest, http.StatusBadRequest, errors.Join(errors.New("validation failed"), err))
			return
		}

		c.Set(utils.SanitizedPayloadKey.String(), payload)
		c.Next()
	}
}
