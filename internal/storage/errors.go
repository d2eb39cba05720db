package storage

import (
	"errors"
	"fmt"

	"github.com/lockitd/lockit/internal/types"
)

// ErrNotFound is returned when a requested entity does not exist.
// Delete operations treat it as idempotent and return false instead.
var ErrNotFound = errors.New("not found")

// ErrNameCollision is returned when a name already exists in its
// namespace and auto-rename is not in play (platform create, any rename).
var ErrNameCollision = errors.New("name collision")

// ErrCycle is returned when a folder move would place a folder inside its
// own subtree.
var ErrCycle = errors.New("cycle would be introduced")

// ErrInvalidScope is returned when a TM assignment has more than one scope
// set, or activate is called on an unassigned TM.
var ErrInvalidScope = errors.New("invalid tm scope")

// ErrCrossProjectOffline is returned when a cross-project move is
// attempted offline on anything but the Offline Storage project.
var ErrCrossProjectOffline = errors.New("cross-project move not supported offline")

// ErrRequiresOnline is returned when an online-only operation (capability
// grants, permanent capabilities reads for writes) is called offline.
var ErrRequiresOnline = errors.New("operation requires online backend")

// ErrPermissionDenied is returned when an owner or admin check fails.
var ErrPermissionDenied = errors.New("permission denied")

// ErrIntegrity is returned when an invariant that should have been
// unreachable is detected (counter mismatch, orphaned row). The enclosing
// transaction is aborted.
var ErrIntegrity = errors.New("integrity violation")

// ErrTransient is returned when the backend reported a retryable
// condition. Orchestrators may retry their whole transaction a bounded
// number of times.
var ErrTransient = errors.New("transient backend error")

// IsRetryable reports whether err wraps ErrTransient.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}

// ValidateTarget rejects TM assignment targets with more than one scope
// set. The zero target is valid and means unassigned.
func ValidateTarget(target types.TMTarget) error {
	if target.ScopeCount() > 1 {
		return fmt.Errorf("%w: %d scopes set, at most one allowed", ErrInvalidScope, target.ScopeCount())
	}
	return nil
}
