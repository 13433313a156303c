/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"errors"
	"fmt"

	"github.com/suparena/familystore/storagemodels"
)

// OperationError is returned by every backend call that fails. It keeps the
// diagnostics of the failed call so they can be attached to telemetry.
type OperationError struct {
	Op          string
	Diagnostics storagemodels.Diagnostics
	Err         error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// NewOperationError wraps err with the call's diagnostics.
func NewOperationError(op string, diag storagemodels.Diagnostics, err error) error {
	return &OperationError{Op: op, Diagnostics: diag, Err: err}
}

// DiagnosticsFromError extracts diagnostics carried by err, if any.
func DiagnosticsFromError(err error) (storagemodels.Diagnostics, bool) {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Diagnostics, true
	}
	return storagemodels.Diagnostics{}, false
}
