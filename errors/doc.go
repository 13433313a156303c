/*
Package errors provides semantic error types for familystore.

Store backends translate their native failures into this taxonomy so callers
can branch on meaning rather than on driver-specific types:

	var (
	    ErrNotFound        = errors.New("resource not found")
	    ErrAlreadyExists   = errors.New("resource already exists")
	    ErrInvalidInput    = errors.New("invalid input")
	    ErrConditionFailed = errors.New("condition check failed")
	    ErrThrottled       = errors.New("request throttled")
	    ErrConflict        = errors.New("conflicting operation")
	    ErrUnavailable     = errors.New("store unavailable")
	)

Usage:

	var family storagemodels.Family
	_, err := container.ReadItem(ctx, "Andersen.1", "Andersen", &family)
	if err != nil {
	    if errors.IsNotFound(err) {
	        // absent: create it
	    }
	    return err
	}

Typed errors carry the record identity:

	err := errors.NewNotFoundError("Family", "Wakefield.7", "Wakefield")
	err := errors.NewStoreError(errors.ErrThrottled, "ProvisionedThroughputExceededException", "rate exceeded")

All types work with errors.Is through wrapping.
*/
package errors
