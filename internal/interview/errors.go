package interview

import "errors"

// ErrSessionNotActive reports an operation attempted on a session that is not
// in the Active state. The session is left untouched.
var ErrSessionNotActive = errors.New("interview session is not active")

// OracleError wraps a failed or abnormally terminated completion call. Partial
// output accumulated before the failure is discarded, never committed.
type OracleError struct {
	Err error
}

func (e *OracleError) Error() string { return "oracle: " + e.Err.Error() }
func (e *OracleError) Unwrap() error { return e.Err }

// PersistError wraps a transcript write failure. It is reported to the
// operator log only and never interrupts the conversation.
type PersistError struct {
	Tier string
	Err  error
}

func (e *PersistError) Error() string { return "persist " + e.Tier + ": " + e.Err.Error() }
func (e *PersistError) Unwrap() error { return e.Err }
