package service

import (
	"errors"

	"BountyBot/internal/biz"

	kerrors "github.com/go-kratos/kratos/v2/errors"
)

// Error reasons returned to HTTP clients.
const (
	ReasonBadRequest       = "BAD_REQUEST"
	ReasonInvalidSignature = "INVALID_SIGNATURE"
	ReasonBreakerNotFound  = "BREAKER_NOT_FOUND"
	ReasonCircuitOpen      = "CIRCUIT_OPEN"
	ReasonStoreUnavailable = "STORE_UNAVAILABLE"
)

// toHTTPError maps use case errors onto kratos errors. Kratos errors pass through.
func toHTTPError(err error) error {
	if err == nil {
		return nil
	}
	if se := new(kerrors.Error); errors.As(err, &se) {
		return se
	}
	switch {
	case errors.Is(err, biz.ErrInvalidComment):
		return kerrors.BadRequest(ReasonBadRequest, err.Error())
	case biz.IsOpenError(err):
		return kerrors.ServiceUnavailable(ReasonCircuitOpen, err.Error())
	default:
		return kerrors.ServiceUnavailable(ReasonStoreUnavailable, err.Error()).WithCause(err)
	}
}
