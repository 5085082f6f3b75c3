// Package ratewindow counts recent submissions per wallet for the rate guard.
//
// A sliding window is used rather than fixed buckets so a burst straddling a
// bucket boundary cannot double the allowed rate.
package ratewindow

import (
	"context"
	"time"

	"verivote/internal/oracle/store"
	id "verivote/pkg/domain"
)

// Window reports how many submissions a wallet made in the trailing window.
type Window interface {
	// Count returns the number of submissions inside the window.
	Count(ctx context.Context, wallet id.WalletAddress) (int, error)

	// Record notes one submission. Implementations backed by the request
	// store may no-op, the store's own records are the window.
	Record(ctx context.Context, wallet id.WalletAddress) error
}

// StoreWindow derives the window from the request store itself. This is the
// default single-instance implementation: no extra state to keep in sync.
type StoreWindow struct {
	requests store.Store
	window   time.Duration
}

func NewStoreWindow(requests store.Store, window time.Duration) *StoreWindow {
	return &StoreWindow{requests: requests, window: window}
}

func (w *StoreWindow) Count(ctx context.Context, wallet id.WalletAddress) (int, error) {
	recent, err := w.requests.FindRecent(ctx, wallet, w.window)
	if err != nil {
		return 0, err
	}
	return len(recent), nil
}

// Record is a no-op: creating the request record is the recording.
func (w *StoreWindow) Record(context.Context, id.WalletAddress) error { return nil }
