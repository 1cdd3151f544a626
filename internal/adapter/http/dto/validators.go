package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"payrelay/internal/core/domain"
	"payrelay/pkg/apperror"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var safeStringRe = regexp.MustCompile(`^[a-zA-Z0-9_\-\.]+$`)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("safe_id", validateSafeID)
		_ = v.RegisterValidation("safe_url", validateSafeURL)
		v.RegisterTagNameFunc(jsonFieldName)
	}
}

// validateSafeID allows alphanumeric, underscore, dash, and dot.
func validateSafeID(fl validator.FieldLevel) bool {
	return safeStringRe.MatchString(fl.Field().String())
}

// validateSafeURL accepts only absolute http/https URLs.
func validateSafeURL(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if raw == "" {
		return true
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

// DecodeTransaction reads a transaction body, trims its string fields and
// reports the first of required that is missing before any binding tag is
// checked, so a request lacking a field is always answered with that field's
// name. An empty body decodes as a zero request.
func DecodeTransaction(r io.Reader, required []string) (domain.TransactionRequest, error) {
	var body TransactionBody
	if err := readJSON(r, &body); err != nil {
		return domain.TransactionRequest{}, err
	}
	SanitizeStruct(&body)

	req := body.ToDomain()
	if field, missing := req.FirstMissing(required); missing {
		return domain.TransactionRequest{}, apperror.ErrMissingField(field)
	}
	if err := validate(&body); err != nil {
		return domain.TransactionRequest{}, err
	}
	return req, nil
}

// DecodePayload reads a JSON object keeping every field as received. An
// empty or null body yields a nil payload.
func DecodePayload(r io.Reader) (domain.CallbackPayload, error) {
	var p domain.CallbackPayload
	if err := readJSON(r, &p); err != nil {
		return nil, err
	}
	return p, nil
}

func readJSON(r io.Reader, v interface{}) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return apperror.ErrInvalidBody()
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return apperror.ErrInvalidBody()
	}
	return nil
}

func validate(v interface{}) error {
	if err := binding.Validator.ValidateStruct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return apperror.ErrInvalidField(verrs[0].Field())
		}
		return apperror.Validation(err.Error())
	}
	return nil
}

// SanitizeStruct trims surrounding whitespace from every exported string
// field (including *string and named string types) of a struct pointer.
// Fields tagged sanitize:"-" are kept as sent.
func SanitizeStruct(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	sanitizeFields(rv.Elem())
}

func sanitizeFields(rv reflect.Value) {
	rt := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanSet() || rt.Field(i).Tag.Get("sanitize") == "-" {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(strings.TrimSpace(f.String()))
		case reflect.Ptr:
			if f.IsNil() {
				continue
			}
			elem := f.Elem()
			if elem.Kind() == reflect.String {
				elem.SetString(strings.TrimSpace(elem.String()))
			}
		}
	}
}
