package httperrors

import (
	"net/http"

	dErrors "authgate/pkg/domain-errors"
)

// ToHTTPStatus maps a stable domain error code to an HTTP status.
// All expected (4xx-equivalent) codes map below; anything unknown is a 500.
func ToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeInvalidInput, dErrors.CodeValidation:
		return http.StatusBadRequest
	case dErrors.CodeInvalidCredentials,
		dErrors.CodeMissingToken,
		dErrors.CodeInvalidSignature,
		dErrors.CodeTokenExpired,
		dErrors.CodeTokenRevoked,
		dErrors.CodeInvalidRefreshToken,
		dErrors.CodeSessionNotFound,
		dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeAccountDisabled, dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeAccountLocked:
		return http.StatusLocked
	case dErrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case dErrors.CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
