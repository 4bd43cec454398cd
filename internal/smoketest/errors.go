package smoketest

import "errors"

var (
	// ErrUnhealthy is returned when the service health check fails.
	ErrUnhealthy = errors.New("service is not healthy")
	// ErrVerification is returned when responses disagree with the local engine.
	ErrVerification = errors.New("verification failed")
	// ErrInvalidConfig is returned for unusable run settings.
	ErrInvalidConfig = errors.New("invalid smoke config")
)
