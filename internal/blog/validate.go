package blog

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/debemdeboas/postly/internal/apperr"
	"github.com/debemdeboas/postly/internal/images"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Uploads are served from this site, so a rooted path is as good as
	// an absolute URL.
	v.RegisterValidation("imageurl", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return images.IsValidImageURL(s) || images.IsLocalPath(s)
	})

	return v
}

var fieldLabels = map[string]string{
	"title":       "Title",
	"content":     "Content",
	"author":      "Author",
	"image":       "Image",
	"categoryIds": "Category IDs",
	"name":        "Name",
	"description": "Description",
}

// validationError turns the first failure reported by the validator into
// an apperr.ValidationError carrying the JSON field name.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	field := fe.Field()
	if i := strings.IndexByte(field, '['); i >= 0 {
		field = field[:i]
	}
	label := fieldLabels[field]
	if label == "" {
		label = field
	}

	var msg string
	switch fe.Tag() {
	case "required", "min":
		msg = label + " is required"
	case "max":
		msg = fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
	case "imageurl":
		msg = label + " must be a valid URL"
	case "gt":
		msg = label + " must be positive"
	default:
		msg = label + " is invalid"
	}
	return apperr.NewValidation(field, msg)
}
