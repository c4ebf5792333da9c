package sessionguard

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/sessionguard/internal/kv"
	"github.com/MrEthical07/sessionguard/session"
)

// Error is a governor failure with a stable machine-readable code. Callers
// compare with errors.Is against the exported sentinels.
type Error struct {
	code    string
	message string
}

func (e *Error) Error() string { return e.message }

// Code returns the stable identifier of the error, e.g. "account-locked".
func (e *Error) Code() string { return e.code }

var (
	// ErrAccountLocked is returned while an account's lockout flag is set and
	// by the failed attempt that sets it.
	ErrAccountLocked = &Error{code: "account-locked", message: "account locked"}
	// ErrEngineNotReady is returned by a zero or partially built Engine.
	ErrEngineNotReady = &Error{code: "engine-not-ready", message: "engine not ready"}
	// ErrStoreUnavailable wraps failures of the key-value store or the
	// session backend. The client error stays in the chain.
	ErrStoreUnavailable = &Error{code: "store-unavailable", message: "store unavailable"}
)

// ErrorCode returns the code of the first *Error in err's chain, or "".
func ErrorCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	return ""
}

func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, kv.ErrUnavailable) || errors.Is(err, session.ErrRedisUnavailable) {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return err
}
