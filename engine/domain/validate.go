package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is a singleton validator instance.
var validate = validator.New()

// ValidateStruct validates v using its `validate` struct tags and folds the
// first failure into ErrInvalidParameters.
func ValidateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("%w: %s failed %q (value=%v)", ErrInvalidParameters,
			strings.ToLower(fe.Field()), fe.Tag(), fe.Value())
	}
	return fmt.Errorf("%w: %v", ErrInvalidParameters, err)
}
