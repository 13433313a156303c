/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

// PageMeta describes one page of a query feed.
type PageMeta struct {
	PageNumber int // 1-based
	ItemCount  int
	// HasMore reports whether the backend returned a continuation.
	HasMore bool
}
