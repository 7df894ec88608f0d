package billing

import "errors"

var (
	ErrUnknownProvider     = errors.New("unknown payment provider")
	ErrProviderDisabled    = errors.New("payment provider is not configured")
	ErrProviderUnavailable = errors.New("payment provider request failed")
	ErrSignatureInvalid    = errors.New("webhook signature invalid")
	ErrInvalidPayload      = errors.New("webhook payload invalid")
	ErrCourseNotFound      = errors.New("course not found")
	ErrCourseInactive      = errors.New("course is not active")
	ErrPaymentNotFound     = errors.New("payment not found")
)
