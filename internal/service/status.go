// ABOUTME: StatusService issues remote mutations and feeds confirmed results through the merge layer
// ABOUTME: Toggles read the display status, call exactly one flipping endpoint, and never write optimistically

package service

import (
	"context"
	"log/slog"

	"github.com/2389/fedicache/internal/api"
	"github.com/2389/fedicache/internal/merge"
	"github.com/2389/fedicache/internal/store"
	"github.com/2389/fedicache/internal/stream"
)

// StatusService is the per-entity action façade for statuses. Every call is a
// terminal pipeline: request in flight, then merged or failed. The cache only
// ever reflects server-confirmed state; a failed call leaves it untouched.
// Retry policy, if any, belongs to the api.Client.
type StatusService struct {
	client      api.Client
	content     *store.ContentStore
	reconciler  *merge.Reconciler
	broadcaster *stream.Broadcaster
	logger      *slog.Logger
}

// NewStatusService creates a StatusService over the given collaborators.
func NewStatusService(client api.Client, content *store.ContentStore, reconciler *merge.Reconciler, broadcaster *stream.Broadcaster) *StatusService {
	return &StatusService{
		client:      client,
		content:     content,
		reconciler:  reconciler,
		broadcaster: broadcaster,
		logger:      slog.Default().With("component", "status-service"),
	}
}

// toggle runs one toggle action: read the display status's boolean, issue the
// endpoint that flips it, merge the authoritative result.
func (s *StatusService) toggle(ctx context.Context, id string, current func(*store.Status) bool, on, off func(context.Context, string) (*api.Status, error)) error {
	display, err := s.content.DisplayStatus(ctx, id)
	if err != nil {
		return err
	}

	request := on
	if current(display) {
		request = off
	}

	snap, err := request(ctx, display.ID)
	if err != nil {
		return err
	}
	return s.reconciler.Status(ctx, snap)
}

// ToggleFavourite favourites or unfavourites the display status for id.
func (s *StatusService) ToggleFavourite(ctx context.Context, id string) error {
	return s.toggle(ctx, id,
		func(st *store.Status) bool { return st.Favourited },
		s.client.FavouriteStatus, s.client.UnfavouriteStatus)
}

// ToggleReblog reblogs or unreblogs the display status for id.
func (s *StatusService) ToggleReblog(ctx context.Context, id string) error {
	return s.toggle(ctx, id,
		func(st *store.Status) bool { return st.Reblogged },
		s.client.ReblogStatus, s.client.UnreblogStatus)
}

// ToggleBookmark bookmarks or unbookmarks the display status for id.
func (s *StatusService) ToggleBookmark(ctx context.Context, id string) error {
	return s.toggle(ctx, id,
		func(st *store.Status) bool { return st.Bookmarked },
		s.client.BookmarkStatus, s.client.UnbookmarkStatus)
}

// TogglePin pins or unpins the display status for id.
func (s *StatusService) TogglePin(ctx context.Context, id string) error {
	return s.toggle(ctx, id,
		func(st *store.Status) bool { return st.Pinned },
		s.client.PinStatus, s.client.UnpinStatus)
}

// ToggleMute mutes or unmutes the display status's conversation.
func (s *StatusService) ToggleMute(ctx context.Context, id string) error {
	return s.toggle(ctx, id,
		func(st *store.Status) bool { return st.Muted },
		s.client.MuteStatus, s.client.UnmuteStatus)
}

// ToggleShowContent flips the local show-content flag on the display status.
// No remote call is involved; this is presentation state the server never sees.
func (s *StatusService) ToggleShowContent(ctx context.Context, id string) error {
	display, err := s.content.DisplayStatus(ctx, id)
	if err != nil {
		return err
	}
	if err := s.content.SetStatusShowContent(ctx, display.ID, !display.ShowContent); err != nil {
		return err
	}
	s.broadcaster.Publish(stream.Change{Kind: stream.KindStatus, ID: display.ID})
	return nil
}

// Delete removes a status remotely, then — only after server confirmation —
// locally, cascading to everything the row owns. The last-known value is
// returned so callers can still show what was deleted.
func (s *StatusService) Delete(ctx context.Context, id string) (*store.Status, error) {
	last, err := s.content.GetStatus(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.client.DeleteStatus(ctx, id); err != nil {
		return nil, err
	}

	if err := s.content.DeleteStatus(ctx, id); err != nil {
		return nil, err
	}

	s.broadcaster.Publish(stream.Change{Kind: stream.KindStatus, ID: id, Deleted: true})
	s.logger.Debug("deleted status", "id", id)
	return last, nil
}

// DeleteAndRedraft deletes a status and, concurrently but independently,
// refetches its in-reply-to parent so the caller can pre-populate a new
// composition. A parent refetch failure degrades to a nil parent; it never
// fails the delete.
func (s *StatusService) DeleteAndRedraft(ctx context.Context, id string) (deleted, parent *store.Status, err error) {
	last, err := s.content.GetStatus(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	parentCh := make(chan *store.Status, 1)
	go func() {
		parentCh <- s.fetchParent(ctx, last.InReplyToID)
	}()

	deleted, err = s.Delete(ctx, id)
	parent = <-parentCh
	if err != nil {
		return nil, nil, err
	}
	return deleted, parent, nil
}

// fetchParent refetches and merges an in-reply-to status, degrading to nil on
// any failure.
func (s *StatusService) fetchParent(ctx context.Context, parentID *string) *store.Status {
	if parentID == nil {
		return nil
	}

	snap, err := s.client.Status(ctx, *parentID)
	if err != nil {
		s.logger.Debug("parent refetch failed", "id", *parentID, "error", err)
		return nil
	}
	if err := s.reconciler.Status(ctx, snap); err != nil {
		s.logger.Debug("parent merge failed", "id", *parentID, "error", err)
		return nil
	}

	parent, err := s.content.GetStatus(ctx, snap.ID)
	if err != nil {
		return nil
	}
	return parent
}

// Vote submits poll choices for the display status. Succeeds trivially when
// the display status has no poll; otherwise the returned snapshot replaces
// the cached poll wholesale.
func (s *StatusService) Vote(ctx context.Context, id string, choices []int) error {
	display, err := s.content.DisplayStatus(ctx, id)
	if err != nil {
		return err
	}
	if display.PollID == nil {
		return nil
	}

	snap, err := s.client.VotePoll(ctx, *display.PollID, choices)
	if err != nil {
		return err
	}
	return s.reconciler.Poll(ctx, display.ID, snap)
}

// RefreshPoll refetches the display status's poll. Succeeds trivially when
// there is no poll.
func (s *StatusService) RefreshPoll(ctx context.Context, id string) error {
	display, err := s.content.DisplayStatus(ctx, id)
	if err != nil {
		return err
	}
	if display.PollID == nil {
		return nil
	}

	snap, err := s.client.Poll(ctx, *display.PollID)
	if err != nil {
		return err
	}
	return s.reconciler.Poll(ctx, display.ID, snap)
}

// Refresh refetches a status by id and merges the result.
func (s *StatusService) Refresh(ctx context.Context, id string) error {
	snap, err := s.client.Status(ctx, id)
	if err != nil {
		return err
	}
	return s.reconciler.Status(ctx, snap)
}
