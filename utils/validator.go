package utils

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"sporty/apperrors"
	"sporty/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report fields by their JSON name so clients can map errors to inputs.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("event_type", func(fl validator.FieldLevel) bool {
		return models.EventType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("registration_type", func(fl validator.FieldLevel) bool {
		return models.RegistrationType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("team_role", func(fl validator.FieldLevel) bool {
		return models.TeamRole(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return IsSlug(fl.Field().String())
	})
	return v
}

// ValidateStruct checks s against its validate tags. The returned error is a
// BAD_REQUEST naming the first offending field.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.BadRequest(err.Error())
	}

	var messages []string
	for _, err := range verrs {
		field := err.Field()
		param := err.Param()

		switch err.Tag() {
		case "required":
			messages = append(messages, field+" is required")
		case "min":
			messages = append(messages, field+" must be at least "+param+" characters")
		case "max":
			messages = append(messages, field+" must be at most "+param+" characters")
		case "email":
			messages = append(messages, field+" must be a valid email")
		case "event_type":
			messages = append(messages, field+" must be one of TRAINING, MATCH, SOCIAL, OTHER")
		case "registration_type":
			messages = append(messages, field+" must be ATTENDING or NOT_ATTENDING")
		case "team_role":
			messages = append(messages, field+" must be ADMIN, SUBADMIN or USER")
		case "url":
			messages = append(messages, field+" must be a URL")
		case "gtefield":
			messages = append(messages, field+" must not be before "+param)
		default:
			messages = append(messages, field+" is invalid")
		}
	}

	return apperrors.Invalid(verrs[0].Field(), strings.Join(messages, ", "))
}
