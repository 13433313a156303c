/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	stderrors "errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/suparena/familystore/errors"
)

// classify maps a DynamoDB failure onto the errors taxonomy. ResourceNotFound
// always refers to the table here, since missing items come back as empty
// GetItem results or failed conditions.
func classify(err error, table string) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var rnf *types.ResourceNotFoundException
	if stderrors.As(err, &rnf) {
		return errors.NewNotFoundError("Container", table, "")
	}
	var inUse *types.ResourceInUseException
	if stderrors.As(err, &inUse) {
		return errors.NewStoreError(errors.ErrConflict, inUse.ErrorCode(), inUse.ErrorMessage())
	}
	var ccf *types.ConditionalCheckFailedException
	if stderrors.As(err, &ccf) {
		return errors.NewConditionFailedError(table, ccf.ErrorMessage())
	}

	code, message := "", err.Error()
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		code, message = apiErr.ErrorCode(), apiErr.ErrorMessage()
	}
	switch {
	case isThrottle(err, code):
		return errors.NewStoreError(errors.ErrThrottled, code, message)
	case code == "ValidationException":
		return errors.NewStoreError(errors.ErrInvalidInput, code, message)
	}
	return errors.NewStoreError(errors.ErrUnavailable, code, message)
}

// isThrottle reports whether DynamoDB rejected the call for capacity reasons.
func isThrottle(err error, code string) bool {
	var pte *types.ProvisionedThroughputExceededException
	if stderrors.As(err, &pte) {
		return true
	}
	var rle *types.RequestLimitExceeded
	if stderrors.As(err, &rle) {
		return true
	}
	return code == "ThrottlingException"
}

// statusCode returns the HTTP status of a failed call, or one derived from the
// classified error when the call never reached the service.
func statusCode(raw, classified error) int {
	var re *smithyhttp.ResponseError
	if stderrors.As(raw, &re) {
		return re.HTTPStatusCode()
	}
	switch {
	case errors.IsNotFound(classified):
		return 404
	case errors.IsAlreadyExists(classified):
		return 409
	case errors.IsConditionFailed(classified):
		return 412
	case errors.IsValidationError(classified):
		return 400
	case errors.IsThrottled(classified):
		return 429
	default:
		return 500
	}
}

// requestID returns the service request id carried by a failed call.
func requestID(err error) string {
	var withID interface{ ServiceRequestID() string }
	if stderrors.As(err, &withID) {
		return withID.ServiceRequestID()
	}
	return ""
}
