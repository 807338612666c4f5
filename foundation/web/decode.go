package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dimfeld/httptreemux/v5"
	en "github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	validate   = validator.New()
	translator *ut.UniversalTranslator
)

func init() {
	enLocale := en.New()
	translator = ut.New(enLocale, enLocale)
	trans, _ := translator.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, trans)
}

// Decode unmarshals the request body into v and runs struct validation
// tags against it, returning a RequestError with per-field messages on
// failure.
func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return NewRequestError(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	if err := validate.Struct(v); err != nil {
		verrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}

		trans, _ := translator.GetTranslator("en")
		fields := make(map[string]string, len(verrors))
		for _, verr := range verrors {
			fields[verr.Field()] = verr.Translate(trans)
		}

		return &RequestError{
			Err:    fmt.Errorf("field validation failed"),
			Status: http.StatusBadRequest,
			Fields: fields,
		}
	}

	return nil
}

// Param returns the named URL path parameter.
func Param(r *http.Request, key string) string {
	params := httptreemux.ContextParams(r.Context())
	return params[key]
}
