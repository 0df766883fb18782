package services

import "errors"

// Error kinds surfaced by the referral graph engine and the proxy lifecycle
// manager. Handlers map these to HTTP status codes with errors.Is.
var (
	// Validation failures: user-correctable, never retried.
	ErrSelfReferral      = errors.New("an account cannot invite itself")
	ErrInactiveAccount   = errors.New("account is not active")
	ErrCapacityExceeded  = errors.New("inviter has no remaining referral slots")
	ErrAlreadyInvited    = errors.New("account already has an inviter")
	ErrDuplicateEdge     = errors.New("referral edge already exists for this pair")
	ErrInvalidTransition = errors.New("illegal referral status transition")

	// Conflicts: a concurrent writer won; the caller may re-fetch and retry.
	ErrAlreadyAssigned = errors.New("proxy is already assigned to another email account")
	ErrConflict        = errors.New("conflicting concurrent write")

	ErrNotFound = errors.New("record not found")
)

// IsValidationError reports whether err is one of the request-time validation
// kinds (as opposed to a conflict or not-found).
func IsValidationError(err error) bool {
	for _, kind := range []error{
		ErrSelfReferral,
		ErrInactiveAccount,
		ErrCapacityExceeded,
		ErrAlreadyInvited,
		ErrDuplicateEdge,
		ErrInvalidTransition,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
