package briefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxBodyBytes bounds a single version's body.
const MaxBodyBytes = 1 << 20

var contentValidate *validator.Validate

func init() {
	contentValidate = validator.New(validator.WithRequiredStructEnabled())
	contentValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = contentValidate.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= MaxBodyBytes
	})
	_ = contentValidate.RegisterValidation("jsondoc", func(fl validator.FieldLevel) bool {
		raw := fl.Field().Bytes()
		return len(raw) == 0 || json.Valid(raw)
	})
}

// Normalize trims the identifying fields. Body and summary are stored as written.
func (c *Content) Normalize() {
	c.AuthorID = strings.TrimSpace(c.AuthorID)
	c.Category = strings.TrimSpace(c.Category)
	c.Title = strings.TrimSpace(c.Title)
}

// Validate reports the first rule c breaks, naming the JSON field.
func (c *Content) Validate() error {
	err := contentValidate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", fe.Field())
	case "max":
		return fmt.Errorf("%s exceeds %s characters", fe.Field(), fe.Param())
	case "maxbytes":
		return fmt.Errorf("%s exceeds %d bytes", fe.Field(), MaxBodyBytes)
	case "jsondoc":
		return fmt.Errorf("%s is not valid JSON", fe.Field())
	default:
		return fmt.Errorf("%s failed %s", fe.Field(), fe.Tag())
	}
}
