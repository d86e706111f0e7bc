package errors

import (
	"fmt"

	"github.com/go-kratos/kratos/v2/errors"
)

// NewNotFound creates a new not found error.
func NewNotFound(message string) *errors.Error {
	return errors.NotFound(ReasonNotFound, message).
		WithMetadata(map[string]string{"code": fmt.Sprint(CodeNotFound)})
}

// NewInvalidArgument creates a new invalid argument error.
func NewInvalidArgument(message string) *errors.Error {
	return errors.BadRequest(ReasonInvalidArg, message).
		WithMetadata(map[string]string{"code": fmt.Sprint(CodeInvalidParameter)})
}

// NewConfigError creates a new configuration error.
func NewConfigError(message string) *errors.Error {
	return errors.InternalServer(ReasonConfig, message).
		WithMetadata(map[string]string{"code": fmt.Sprint(CodeConfigError)})
}

// IsNotFound reports whether err is a not found error.
func IsNotFound(err error) bool {
	return err != nil && errors.Reason(err) == ReasonNotFound
}

// IsInvalidArgument reports whether err is an invalid argument error.
func IsInvalidArgument(err error) bool {
	return err != nil && errors.Reason(err) == ReasonInvalidArg
}

// IsConfigError reports whether err is a configuration error.
func IsConfigError(err error) bool {
	return err != nil && errors.Reason(err) == ReasonConfig
}
