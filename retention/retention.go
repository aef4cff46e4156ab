// Package retention enforces the two storage caps on the message store: an
// age cutoff and a total-record cap. Both are best-effort storage-pressure
// controls; a failed eviction is logged and never blocks accepting mail.
package retention

import (
	"context"
	"log"
	"time"
)

// Store is the slice of the message store eviction needs.
type Store interface {
	CountMessages(ctx context.Context) (int64, error)
	DeleteMessagesCreatedBefore(ctx context.Context, cutoff time.Time) error
	DeleteAllMessagesExceptNewest(ctx context.Context, keep int) error
}

// Enforce runs once per accepted message, before the new record counts
// against the cap. Count eviction keeps the newest maxRecords-1 rows so the
// incoming record lands exactly at the cap. A zero maxAge or maxRecords
// disables that cap.
func Enforce(ctx context.Context, store Store, maxAge time.Duration, maxRecords int) {
	if maxAge > 0 {
		cutoff := time.Now().Add(-maxAge)
		if err := store.DeleteMessagesCreatedBefore(ctx, cutoff); err != nil {
			log.Printf("retention: age eviction failed: %v", err)
		}
	}

	if maxRecords <= 0 {
		return
	}
	count, err := store.CountMessages(ctx)
	if err != nil {
		log.Printf("retention: count failed: %v", err)
		return
	}
	if count < int64(maxRecords) {
		return
	}
	if err := store.DeleteAllMessagesExceptNewest(ctx, maxRecords-1); err != nil {
		log.Printf("retention: count eviction failed: %v", err)
	}
}
