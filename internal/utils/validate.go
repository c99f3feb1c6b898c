package utils

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/pkg/errors"
)

var (
	validate   *validator.Validate
	translator ut.Translator

	// custom validation tags & texts
	notBlankTag  = "notblank"
	notBlankText = "{0} must not be blank"
	requiredText = "{0} is required"
)

func init() {
	validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, notBlank)
	registerTranslation(notBlankTag, notBlankText, false)
	registerTranslation("required", requiredText, true)
}

func registerTranslation(tag, text string, override bool) {
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, override) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// notBlank rejects strings made only of whitespace.
func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// FieldError is one invalid field, keyed by its JSON name.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ValidationError is returned when a request body or a workflow input
// is invalid.  Fields is nil for errors that are not tied to a field.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError reports a single invalid field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{
		Err:    errors.New(field + ": " + msg),
		Fields: []FieldError{{Field: field, Error: msg}},
	}
}

// FieldMap flattens Fields for JSON responses.
func (e *ValidationError) FieldMap() map[string]string {
	out := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		out[f.Field] = f.Error
	}
	return out
}

// Validator implements echo.Validator so handlers can call c.Validate.
type Validator struct{}

// Validate checks the struct tags of i and converts failures into a
// *ValidationError.
func (Validator) Validate(i interface{}) error {
	return Validate(i)
}

// Validate checks the struct tags of i.
func Validate(i interface{}) error {
	err := validate.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(err, "validating input")
	}
	ve := &ValidationError{Err: errors.New("invalid input")}
	for _, fe := range verrs {
		ve.Fields = append(ve.Fields, FieldError{Field: fe.Field(), Error: fe.Translate(translator)})
	}
	return ve
}
