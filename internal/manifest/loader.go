package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"edge-rules/internal/regex"
)

var (
	// ErrManifestRead covers a manifest that is missing, unreadable or not valid JSON.
	ErrManifestRead = errors.New("failed to read routes manifest")

	// ErrInvalidManifest is returned by Validate.
	ErrInvalidManifest = errors.New("invalid routes manifest")

	// ErrUnsupportedConditionType is returned for a condition type other
	// than host, header, cookie or query.
	ErrUnsupportedConditionType = errors.New("unsupported condition type")
)

// DefaultPath is where the framework build writes the manifest
const DefaultPath = ".next/routes-manifest.json"

// Load reads and decodes the manifest at path
func Load(path string) (*RoutesManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifestRead, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a manifest document
func Parse(data []byte) (*RoutesManifest, error) {
	var m RoutesManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifestRead, err)
	}
	return &m, nil
}

// Supported reports whether t is one of the four known condition types
func (t ConditionType) Supported() bool {
	switch t {
	case ConditionHost, ConditionHeader, ConditionCookie, ConditionQuery:
		return true
	}
	return false
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("condtype", func(fl validator.FieldLevel) bool {
		return ConditionType(fl.Field().String()).Supported()
	}); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("jsregex", func(fl validator.FieldLevel) bool {
		return regex.Valid(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// Validate checks every rule of the manifest and reports all problems at
// once. Unknown condition types are reported as ErrUnsupportedConditionType.
func Validate(m *RoutesManifest) error {
	err := validate.Struct(m)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}

	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "RoutesManifest.")
		switch fe.Tag() {
		case "condtype":
			errs = append(errs, fmt.Errorf("%s: %w %q", field, ErrUnsupportedConditionType, fe.Value()))
		case "jsregex":
			errs = append(errs, fmt.Errorf("%s: %w: %q", field, regex.ErrParse, fe.Value()))
		default:
			errs = append(errs, fmt.Errorf("%s: failed %q check", field, fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %w", ErrInvalidManifest, errors.Join(errs...))
}
