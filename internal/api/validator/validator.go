package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"actionhub/internal/actions"

	playgroundvalidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// ValidationErrors wraps the validator's ValidationErrors
type ValidationErrors []playgroundvalidator.FieldError

// CustomValidator wraps go-playground/validator
type CustomValidator struct {
	validator *playgroundvalidator.Validate
}

var actionKeyPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.-]{0,127}$`)

// NewValidator creates a new validator instance
func NewValidator() echo.Validator {
	return &CustomValidator{validator: newPlayground()}
}

func newPlayground() *playgroundvalidator.Validate {
	v := playgroundvalidator.New()

	// Report json names instead of struct field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Registration only fails on empty tags or nil funcs, both static here.
	_ = v.RegisterValidation("action_key", validateActionKey)
	_ = v.RegisterValidation("locale", validateLocale)

	return v
}

func validateActionKey(fl playgroundvalidator.FieldLevel) bool {
	return actionKeyPattern.MatchString(fl.Field().String())
}

func validateLocale(fl playgroundvalidator.FieldLevel) bool {
	locale := fl.Field().String()
	for _, l := range actions.SupportedLocales {
		if locale == l {
			return true
		}
	}
	return false
}

// Validate implements echo.Validator interface
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		var validationErrors playgroundvalidator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return ValidationErrors(validationErrors)
		}
		return err
	}
	return nil
}

// Error implements the error interface for ValidationErrors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}
	var fields []string
	for _, err := range ve {
		fields = append(fields, err.Field())
	}
	return fmt.Sprintf("validation failed on fields: %s", strings.Join(fields, ", "))
}

// Messages renders one human readable line per failed field.
func (ve ValidationErrors) Messages() []string {
	out := make([]string, 0, len(ve))
	for _, err := range ve {
		field := err.Field()
		switch err.Tag() {
		case "required":
			out = append(out, fmt.Sprintf("%s is required", field))
		case "action_key":
			out = append(out, fmt.Sprintf("%s must be a valid action key", field))
		case "locale":
			out = append(out, fmt.Sprintf("%s must be one of [%s]", field, strings.Join(actions.SupportedLocales, " ")))
		default:
			out = append(out, fmt.Sprintf("%s failed validation: %s", field, err.Tag()))
		}
	}
	return out
}

// ActionRequest is the body of POST /action.
type ActionRequest struct {
	ActionKey string                 `json:"actionKey" validate:"required,action_key"`
	Params    map[string]interface{} `json:"params" validate:"required"`
}
