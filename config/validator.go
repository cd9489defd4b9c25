package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/input-output-hk/catalyst-forge-libs/forksync"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their configuration key rather than the Go name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks cfg against its struct tags: required keys must be set and
// every fork needs a unique name, a remote URL and a branch.
func Validate(cfg *forksync.Config) error {
	if cfg == nil {
		return &forksync.ConfigurationError{Field: "config", Reason: "configuration is nil"}
	}

	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &forksync.ConfigurationError{Field: "config", Err: err}
	}

	// Report the first violation; the rest are listed in the reason.
	first := verrs[0]
	reasons := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		reasons = append(reasons, describe(fe))
	}
	return &forksync.ConfigurationError{
		Field:  fieldPath(first),
		Reason: strings.Join(reasons, "; "),
	}
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fieldPath(fe))
	case "unique":
		return fmt.Sprintf("%s must have unique %s values", fieldPath(fe), strings.ToLower(fe.Param()))
	default:
		return fmt.Sprintf("%s failed %q validation", fieldPath(fe), fe.Tag())
	}
}
