/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package telemetry

import (
	"fmt"
	"math"

	"go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// newSampler builds the root sampler from config, wrapped so that child
// spans inherit the decision of their parent.
func newSampler(cfg SamplingConfig) trace.Sampler {
	if cfg.Adaptive {
		return trace.ParentBased(newRateLimitedSampler(cfg.MaxTracesPerSecond))
	}

	var root trace.Sampler
	switch {
	case cfg.FixedPercentage >= 100:
		root = trace.AlwaysSample()
	case cfg.FixedPercentage <= 0:
		root = trace.NeverSample()
	default:
		root = trace.TraceIDRatioBased(cfg.FixedPercentage / 100)
	}
	return trace.ParentBased(root)
}

// rateLimitedSampler samples at most a fixed number of root traces per
// second and drops the rest.
type rateLimitedSampler struct {
	limiter *rate.Limiter
	perSec  float64
}

func newRateLimitedSampler(perSec float64) *rateLimitedSampler {
	burst := int(math.Ceil(perSec))
	if burst < 1 {
		burst = 1
	}
	return &rateLimitedSampler{
		limiter: rate.NewLimiter(rate.Limit(perSec), burst),
		perSec:  perSec,
	}
}

func (s *rateLimitedSampler) ShouldSample(p trace.SamplingParameters) trace.SamplingResult {
	ts := oteltrace.SpanContextFromContext(p.ParentContext).TraceState()
	if s.limiter.Allow() {
		return trace.SamplingResult{Decision: trace.RecordAndSample, Tracestate: ts}
	}
	return trace.SamplingResult{Decision: trace.Drop, Tracestate: ts}
}

func (s *rateLimitedSampler) Description() string {
	return fmt.Sprintf("RateLimited{%g}", s.perSec)
}
