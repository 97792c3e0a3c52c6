package utils

import (
	"os"
	"reflect"
	"regexp"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	log "github.com/sirupsen/logrus"
	"github.com/truemail-rb/truemail-go"

	"github.com/torao/kazzla/internal/schemas"
)

type Validator struct {
	Validate    *validator.Validate
	VerifyEmail func(email string) bool
	policy      *bluemonday.Policy
}

var (
	instance      *Validator
	configuration *truemail.Configuration
	once          sync.Once
)

var (
	accountNamePattern = regexp.MustCompile(`^[^\s<>&"']+$`)
	telPattern         = regexp.MustCompile(`^\+?[0-9][0-9\-]{2,19}$`)
)

// GetValidator returns the process-wide validator. EMAIL_VALIDATION selects the truemail
// validation type for mailto contacts ("regex" by default, "mx" to also resolve the domain).
func GetValidator() *Validator {
	once.Do(func() {
		validationType := os.Getenv("EMAIL_VALIDATION")
		if validationType == "" {
			validationType = "regex"
		}

		var err error
		configuration, err = truemail.NewConfiguration(truemail.ConfigurationAttr{
			VerifierEmail:         "noreply@kazzla.com",
			ValidationTypeDefault: validationType,
			SmtpFailFast:          true,
		})
		if err != nil {
			log.Errorf("Error configuring email validation: %v", err)
		}

		instance = &Validator{
			Validate:    validator.New(validator.WithRequiredStructEnabled()),
			VerifyEmail: validateEmail,
			policy:      bluemonday.StrictPolicy(),
		}

		registerCustomValidators(instance.Validate)
	})

	return instance
}

func validateEmail(email string) bool {
	if configuration == nil {
		return false
	}
	return truemail.IsValid(email, configuration)
}

// ValidContact reports whether uri is a well-formed address for schema.
func (v *Validator) ValidContact(schema schemas.ContactSchema, uri string) bool {
	switch schema {
	case schemas.ContactSchemaMailto:
		return v.VerifyEmail(uri)
	case schemas.ContactSchemaTel:
		return telPattern.MatchString(uri)
	default:
		return false
	}
}

// SanitizeData strips markup from every exported string field of the struct pointed to by obj.
// Fields tagged `sanitize:"-"` are left untouched.
func (v *Validator) SanitizeData(obj interface{}) error {
	value := reflect.ValueOf(obj)
	if value.Kind() != reflect.Ptr || value.Elem().Kind() != reflect.Struct {
		return nil
	}

	elem := value.Elem()
	for i := 0; i < elem.NumField(); i++ {
		field := elem.Field(i)
		if field.Kind() != reflect.String || !field.CanSet() {
			continue
		}
		if elem.Type().Field(i).Tag.Get("sanitize") == "-" {
			continue
		}
		field.SetString(v.policy.Sanitize(field.String()))
	}
	return nil
}

func registerCustomValidators(v *validator.Validate) {
	err := v.RegisterValidation("account_name", accountNameValidation)
	if err != nil {
		return
	}

	err = v.RegisterValidation("contact_schema", contactSchemaValidation)
	if err != nil {
		return
	}

	v.RegisterStructValidation(contactStructValidation, schemas.SignUpRequest{}, schemas.AddContactRequest{})
}

func accountNameValidation(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	n := utf8.RuneCountInString(name)
	return n >= 1 && n <= 15 && accountNamePattern.MatchString(name)
}

func contactSchemaValidation(fl validator.FieldLevel) bool {
	switch schemas.ContactSchema(fl.Field().String()) {
	case schemas.ContactSchemaMailto, schemas.ContactSchemaTel:
		return true
	default:
		return false
	}
}

func contactStructValidation(sl validator.StructLevel) {
	current := sl.Current()
	schemaField := current.FieldByName("Schema")
	uriField := current.FieldByName("Uri")
	if !schemaField.IsValid() || !uriField.IsValid() {
		return
	}

	schema, uri := schemas.ParseContact(schemaField.String(), uriField.String())
	if !instance.ValidContact(schema, uri) {
		sl.ReportError(uriField.Interface(), "uri", "Uri", "contact_uri", "")
	}
}
