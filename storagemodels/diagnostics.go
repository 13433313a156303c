/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"encoding/json"
	"time"

	"github.com/go-openapi/strfmt"
)

// Diagnostics is the per-call metadata a store returns alongside its payload.
// Program logic never branches on it; it is attached to telemetry.
type Diagnostics struct {
	// Operation is the store call, e.g. "ReadItem".
	Operation string
	// StartTime is when the call was issued.
	StartTime strfmt.DateTime
	// Latency is the wall time of the call.
	Latency time.Duration
	// RequestCharge is the capacity consumed, in the backend's units.
	RequestCharge float64
	// RequestID is the backend's trace identifier for the call, if any.
	RequestID string
	// StatusCode is an HTTP-like status for the outcome.
	StatusCode int
	// Detail carries backend specific information.
	Detail string
}

// BeginDiagnostics starts timing a store call.
func BeginDiagnostics(operation string) Diagnostics {
	return Diagnostics{
		Operation: operation,
		StartTime: strfmt.DateTime(time.Now().UTC()),
	}
}

// Complete returns a copy with the latency measured up to now and the status set.
func (d Diagnostics) Complete(statusCode int) Diagnostics {
	d.Latency = time.Since(time.Time(d.StartTime))
	d.StatusCode = statusCode
	return d
}

// String renders the bundle as compact JSON.
func (d Diagnostics) String() string {
	b, err := json.Marshal(struct {
		Operation     string          `json:"operation"`
		StartTime     strfmt.DateTime `json:"startTime"`
		LatencyMs     float64         `json:"latencyMs"`
		RequestCharge float64         `json:"requestCharge"`
		RequestID     string          `json:"requestId,omitempty"`
		StatusCode    int             `json:"statusCode"`
		Detail        string          `json:"detail,omitempty"`
	}{
		Operation:     d.Operation,
		StartTime:     d.StartTime,
		LatencyMs:     float64(d.Latency.Microseconds()) / 1000,
		RequestCharge: d.RequestCharge,
		RequestID:     d.RequestID,
		StatusCode:    d.StatusCode,
		Detail:        d.Detail,
	})
	if err != nil {
		return d.Operation
	}
	return string(b)
}
