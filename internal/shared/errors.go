package shared

import "errors"

// Typed failures surfaced to callers. Every denial maps to exactly one of
// these so a caller can tell "not logged in" from "not allowed" from
// "would break an invariant".
var (
	// ErrUnauthenticated indicates the request carried no usable credential.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrInvalidToken indicates a bad signature, malformed claims, or expiry.
	ErrInvalidToken = errors.New("invalid token")
	// ErrForbidden indicates a valid identity lacking the required capability.
	ErrForbidden = errors.New("forbidden")
	// ErrProtectedRole indicates the operation targets a structurally protected role.
	ErrProtectedRole = errors.New("protected role")
	// ErrSelfProtect indicates an administrator targeting their own account.
	ErrSelfProtect = errors.New("cannot target own account")
	// ErrMinCardinality indicates the mutation would drop an assignment count to zero.
	ErrMinCardinality = errors.New("minimum cardinality violated")
	// ErrAlreadyExists indicates a uniqueness violation on create.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotFound indicates a referenced entity is absent.
	ErrNotFound = errors.New("not found")
	// ErrStorage indicates a storage collaborator fault.
	ErrStorage = errors.New("storage failure")
)
