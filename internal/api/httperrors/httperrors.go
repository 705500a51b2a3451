package httperrors

import "fmt"

const (
	TypeGeneric          = "generic"
	TypeNotFound         = "not_found"
	TypePermissionDenied = "permission_denied"
	TypeValidation       = "validation_failed"
	TypeLockTimeout      = "lock_timeout"
)

// HTTPError is the public error payload rendered by the API error handler.
type HTTPError struct {
	Code   int    `json:"status"`
	Type   string `json:"type"`
	Detail string `json:"detail"`
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTPError %d (%s): %s", e.Code, e.Type, e.Detail)
}

func NewHTTPError(code int, errType string, detail string) *HTTPError {
	return &HTTPError{Code: code, Type: errType, Detail: detail}
}
