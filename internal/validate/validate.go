package validate

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"course-storefront/internal/domain"
)

var validate *validator.Validate

var translator ut.Translator

func init() {
	validate = validator.New()

	// Field names in messages and error keys follow the json tags the
	// browser sends.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	translator, _ = ut.New(en.New(), en.New()).GetTranslator("en")
	en_translations.RegisterDefaultTranslations(validate, translator)
}

// Check validates val's struct tags. Failures come back as a
// *domain.ValidationError keyed by field name.
func Check(val any) error {
	if err := validate.Struct(val); err != nil {
		var verrors validator.ValidationErrors
		if !errors.As(err, &verrors) {
			return err
		}
		if len(verrors) < 1 {
			return nil
		}

		fields := make(map[string]string, len(verrors))
		for _, fe := range verrors {
			if _, seen := fields[fe.Field()]; seen {
				continue
			}
			fields[fe.Field()] = fe.Translate(translator)
		}
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}
