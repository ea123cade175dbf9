package httpx

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/fr"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	frtrans "github.com/go-playground/validator/v10/translations/fr"
	"github.com/gofiber/fiber/v2"
)

var (
	validate *validator.Validate
	trans    ut.Translator
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	// field errors use the JSON names the client sent
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = f.Tag.Get("form")
		}
		return name
	})

	french := fr.New()
	trans, _ = ut.New(french, french).GetTranslator("fr")
	if err := frtrans.RegisterDefaultTranslations(validate, trans); err != nil {
		panic(err)
	}
}

// Validate checks v against its `validate` tags.
func Validate(v any) error {
	return validate.Struct(v)
}

// ValidateVar checks a single value, for rows parsed outside of a struct.
func ValidateVar(field any, tag string) error {
	return validate.Var(field, tag)
}

// Bind parses the JSON body into dst and validates it.
func Bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return BadRequest("Corps de requête invalide")
	}
	return Validate(dst)
}

func translate(ve validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(ve))
	for _, fe := range ve {
		out[fe.Field()] = fe.Translate(trans)
	}
	return out
}

// FirstMessage returns one translated message for an error from Validate or ValidateVar,
// used for per-line import reports.
func FirstMessage(err error) string {
	if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
		return ve[0].Translate(trans)
	}
	return err.Error()
}
