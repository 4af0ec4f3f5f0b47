// ABOUTME: Typed watch helpers: current value immediately, then a fresh value per committed change
// ABOUTME: Streams never terminate on their own; the subscriber detaches by cancelling its context

package service

import (
	"context"

	"github.com/2389/fedicache/internal/store"
	"github.com/2389/fedicache/internal/stream"
)

// watchBufferSize is the buffer for typed watch channels; a reader that falls
// this far behind loses intermediate values, never the latest one pending.
const watchBufferSize = 16

// StatusUpdate is one emission from WatchStatus. Deleted is set when the
// watched row was removed, in which case Status is the zero value.
type StatusUpdate struct {
	Status  *store.Status
	Deleted bool
}

// AccountUpdate is one emission from WatchAccount.
type AccountUpdate struct {
	Account *store.Account
	Deleted bool
}

// WatchStatus subscribes to a status id: the current value is delivered
// immediately, then a freshly loaded value after every committed write that
// changes it, until ctx is cancelled. Returns store.ErrNotFound when the id
// is not cached.
func (s *StatusService) WatchStatus(ctx context.Context, id string) (<-chan StatusUpdate, error) {
	initial, err := s.content.GetStatus(ctx, id)
	if err != nil {
		return nil, err
	}

	key := stream.Change{Kind: stream.KindStatus, ID: id}.Key()
	changes, _ := s.broadcaster.Subscribe(ctx, key)

	out := make(chan StatusUpdate, watchBufferSize)
	out <- StatusUpdate{Status: initial}

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case change, ok := <-changes:
				if !ok {
					return
				}
				if change.Deleted {
					deliverStatus(ctx, out, StatusUpdate{Deleted: true})
					continue
				}
				status, err := s.content.GetStatus(ctx, id)
				if err != nil {
					// Row vanished between commit and read; the
					// deletion change will follow.
					continue
				}
				deliverStatus(ctx, out, StatusUpdate{Status: status})
			}
		}
	}()

	return out, nil
}

// WatchAccount subscribes to an account id with the same contract as
// WatchStatus.
func (s *StatusService) WatchAccount(ctx context.Context, id string) (<-chan AccountUpdate, error) {
	initial, err := s.content.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	key := stream.Change{Kind: stream.KindAccount, ID: id}.Key()
	changes, _ := s.broadcaster.Subscribe(ctx, key)

	out := make(chan AccountUpdate, watchBufferSize)
	out <- AccountUpdate{Account: initial}

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case change, ok := <-changes:
				if !ok {
					return
				}
				if change.Deleted {
					deliverAccount(ctx, out, AccountUpdate{Deleted: true})
					continue
				}
				account, err := s.content.GetAccount(ctx, id)
				if err != nil {
					continue
				}
				deliverAccount(ctx, out, AccountUpdate{Account: account})
			}
		}
	}()

	return out, nil
}

func deliverStatus(ctx context.Context, out chan<- StatusUpdate, u StatusUpdate) {
	select {
	case out <- u:
	case <-ctx.Done():
	}
}

func deliverAccount(ctx context.Context, out chan<- AccountUpdate, u AccountUpdate) {
	select {
	case out <- u:
	case <-ctx.Done():
	}
}
