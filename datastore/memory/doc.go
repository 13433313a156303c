/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package memory provides an in-process datastore.Client for tests and local runs.
//
// Records are kept JSON encoded, so they round-trip the same way they would
// through a real store. Any call can be made to fail with WithError or
// WithErrorOnce, and Calls reports how often each call was attempted.
package memory
