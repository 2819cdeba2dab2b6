package dispatch

import "errors"

// ValidationError marks a malformed dispatch request. Validation errors are
// returned immediately and must never be retried by the caller.
type ValidationError string

func (e ValidationError) Error() string {
	return string(e)
}

const (
	// ErrNoChannelSelected: the request enabled no delivery channel.
	ErrNoChannelSelected ValidationError = "no delivery channel selected"
	// ErrEmailParamsMissing: email requested without subject or body.
	ErrEmailParamsMissing ValidationError = "email channel requested without subject or body"
	// ErrUnknownLocale: the email locale is not a supported value.
	ErrUnknownLocale ValidationError = "unknown locale on email parameters"
	// ErrSMSParamsMissing: sms requested without message text.
	ErrSMSParamsMissing ValidationError = "sms channel requested without a message"
	// ErrPushPayloadMissing: push requested but a target carries no payload.
	ErrPushPayloadMissing ValidationError = "push channel requested with a target missing its push payload"
	// ErrPushPayloadMismatch: payload count differs from recipient count.
	ErrPushPayloadMismatch ValidationError = "push payload count does not match recipient count"
)

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var v ValidationError
	return errors.As(err, &v)
}
