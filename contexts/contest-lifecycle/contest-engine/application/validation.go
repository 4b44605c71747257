package application

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	domainerrors "devquest/contexts/contest-lifecycle/contest-engine/domain/errors"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce     sync.Once
	validateInstance *validator.Validate
	githubUserRegex  = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9]|-[A-Za-z0-9])*$`)
)

func validate() *validator.Validate {
	validateOnce.Do(func() {
		v, err := newValidator()
		if err != nil {
			panic(fmt.Sprintf("application: register validations: %v", err))
		}
		validateInstance = v
	})
	return validateInstance
}

func newValidator() (*validator.Validate, error) {
	v := validator.New()
	if err := v.RegisterValidation("github_username", func(fl validator.FieldLevel) bool {
		return githubUserRegex.MatchString(fl.Field().String())
	}); err != nil {
		return nil, err
	}
	return v, nil
}

// ValidateStruct runs struct tag validation and maps failures to
// ErrValidation with the offending fields listed.
func ValidateStruct(input any) error {
	err := validate().Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %s", domainerrors.ErrValidation, err.Error())
	}
	fields := make([]string, 0, len(fieldErrs))
	for _, fieldErr := range fieldErrs {
		fields = append(fields, fieldErr.Field()+":"+fieldErr.Tag())
	}
	return fmt.Errorf("%w: %s", domainerrors.ErrValidation, strings.Join(fields, ","))
}
