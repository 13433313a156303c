/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mongo

import (
	"context"
	stderrors "errors"

	mongod "go.mongodb.org/mongo-driver/mongo"

	"github.com/suparena/familystore/errors"
)

const (
	codeNamespaceNotFound = 26
	codeNamespaceExists   = 48
)

func isNoDocuments(err error) bool {
	return stderrors.Is(err, mongod.ErrNoDocuments)
}

func isNamespaceExists(err error) bool {
	var se mongod.ServerError
	return stderrors.As(err, &se) && se.HasErrorCode(codeNamespaceExists)
}

// classify maps a driver error onto the errors taxonomy for the named resource.
func classify(err error, resourceType, id, partitionKey string) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if isNoDocuments(err) {
		return errors.NewNotFoundError(resourceType, id, partitionKey)
	}
	if mongod.IsDuplicateKeyError(err) {
		return errors.NewAlreadyExistsError(resourceType, id, partitionKey)
	}
	var se mongod.ServerError
	if stderrors.As(err, &se) && se.HasErrorCode(codeNamespaceNotFound) {
		return errors.NewNotFoundError("Container", id, "")
	}
	if mongod.IsTimeout(err) || mongod.IsNetworkError(err) {
		return errors.NewStoreError(errors.ErrUnavailable, "", err.Error())
	}
	var ce mongod.CommandError
	if stderrors.As(err, &ce) {
		return errors.NewStoreError(errors.ErrUnavailable, ce.Name, ce.Message)
	}
	return errors.NewStoreError(errors.ErrUnavailable, "", err.Error())
}

// statusCode derives an HTTP-like status from a classified error.
func statusCode(err error) int {
	switch {
	case err == nil:
		return 200
	case errors.IsNotFound(err):
		return 404
	case errors.IsAlreadyExists(err):
		return 409
	case errors.IsValidationError(err):
		return 400
	case stderrors.Is(err, context.DeadlineExceeded):
		return 408
	default:
		return 500
	}
}
