// ABOUTME: Reconciliation layer merging remote snapshots into the content store
// ABOUTME: Nested entities merge depth-first inside one transaction; changes publish after commit

package merge

import (
	"context"
	"log/slog"

	"github.com/2389/fedicache/internal/api"
	"github.com/2389/fedicache/internal/store"
	"github.com/2389/fedicache/internal/stream"
)

// Reconciler merges remote entity snapshots into a content store. A snapshot
// is authoritative for every field it carries; relationships it references by
// id only are preserved, never overwritten with nulls. Conflicts between
// concurrent merges of the same id resolve last-write-wins by transaction
// commit order.
type Reconciler struct {
	content     *store.ContentStore
	broadcaster *stream.Broadcaster
	logger      *slog.Logger
}

// New creates a Reconciler over the given content store and broadcaster.
func New(content *store.ContentStore, broadcaster *stream.Broadcaster) *Reconciler {
	return &Reconciler{
		content:     content,
		broadcaster: broadcaster,
		logger:      slog.Default().With("component", "merge"),
	}
}

// Status merges a status snapshot and everything nested in it: the author
// account, the reblogged target (recursively), the poll, and attachment
// metadata. Children commit before the parent references them, all within one
// transaction; a partially merged status is never observable.
func (r *Reconciler) Status(ctx context.Context, snap *api.Status) error {
	changes := make([]stream.Change, 0, 4)
	err := r.content.WithTx(ctx, func(tx *store.Tx) error {
		return mergeStatus(ctx, tx, snap, &changes)
	})
	if err != nil {
		return err
	}

	r.broadcaster.PublishAll(changes)
	r.logger.Debug("merged status", "id", snap.ID)
	return nil
}

// Account merges an account snapshot.
func (r *Reconciler) Account(ctx context.Context, snap *api.Account) error {
	err := r.content.WithTx(ctx, func(tx *store.Tx) error {
		return tx.UpsertAccount(ctx, accountRow(snap))
	})
	if err != nil {
		return err
	}

	r.broadcaster.Publish(stream.Change{Kind: stream.KindAccount, ID: snap.ID})
	r.logger.Debug("merged account", "id", snap.ID)
	return nil
}

// Poll replaces a status's poll wholesale with a fresh snapshot and repoints
// the status at it.
func (r *Reconciler) Poll(ctx context.Context, statusID string, snap *api.Poll) error {
	err := r.content.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.UpsertPoll(ctx, pollRow(snap)); err != nil {
			return err
		}
		return tx.SetStatusPoll(ctx, statusID, snap.ID)
	})
	if err != nil {
		return err
	}

	r.broadcaster.PublishAll([]stream.Change{
		{Kind: stream.KindPoll, ID: snap.ID},
		{Kind: stream.KindStatus, ID: statusID},
	})
	r.logger.Debug("merged poll", "id", snap.ID, "status_id", statusID)
	return nil
}

// mergeStatus writes a status snapshot depth-first within tx, appending a
// Change for every entity it touches.
func mergeStatus(ctx context.Context, tx *store.Tx, snap *api.Status, changes *[]stream.Change) error {
	if snap.Reblog != nil {
		if err := mergeStatus(ctx, tx, snap.Reblog, changes); err != nil {
			return err
		}
	}
	if snap.Account != nil {
		if err := tx.UpsertAccount(ctx, accountRow(snap.Account)); err != nil {
			return err
		}
		*changes = append(*changes, stream.Change{Kind: stream.KindAccount, ID: snap.Account.ID})
	}
	if snap.Poll != nil {
		if err := tx.UpsertPoll(ctx, pollRow(snap.Poll)); err != nil {
			return err
		}
		*changes = append(*changes, stream.Change{Kind: stream.KindPoll, ID: snap.Poll.ID})
	}

	if err := tx.UpsertStatus(ctx, statusRow(snap)); err != nil {
		return err
	}
	*changes = append(*changes, stream.Change{Kind: stream.KindStatus, ID: snap.ID})

	// nil means the snapshot did not carry attachments; preserve what's cached
	if snap.Attachments != nil {
		if err := tx.ReplaceAttachments(ctx, snap.ID, attachmentRows(snap)); err != nil {
			return err
		}
	}
	return nil
}

func accountRow(snap *api.Account) *store.Account {
	emoji := make([]store.Emoji, len(snap.Emojis))
	for i, e := range snap.Emojis {
		emoji[i] = store.Emoji(e)
	}
	return &store.Account{
		ID:                 snap.ID,
		Username:           snap.Username,
		DisplayName:        snap.DisplayName,
		URL:                snap.URL,
		Avatar:             snap.Avatar,
		AvatarStatic:       snap.AvatarStatic,
		Header:             snap.Header,
		HeaderStatic:       snap.HeaderStatic,
		Emoji:              emoji,
		FollowRequestCount: snap.FollowRequestCount,
	}
}

func pollRow(snap *api.Poll) *store.Poll {
	options := make([]store.PollOption, len(snap.Options))
	for i, o := range snap.Options {
		options[i] = store.PollOption(o)
	}
	return &store.Poll{
		ID:          snap.ID,
		ExpiresAt:   snap.ExpiresAt,
		Expired:     snap.Expired,
		Multiple:    snap.Multiple,
		VotesCount:  snap.VotesCount,
		VotersCount: snap.VotersCount,
		Voted:       snap.Voted,
		OwnVotes:    snap.OwnVotes,
		Options:     options,
	}
}

func statusRow(snap *api.Status) *store.Status {
	accountID := snap.AccountID
	if snap.Account != nil {
		accountID = snap.Account.ID
	}

	var reblogOfID, pollID *string
	if snap.Reblog != nil {
		id := snap.Reblog.ID
		reblogOfID = &id
	}
	if snap.Poll != nil {
		id := snap.Poll.ID
		pollID = &id
	}

	return &store.Status{
		ID:              snap.ID,
		AccountID:       accountID,
		URI:             snap.URI,
		CreatedAt:       snap.CreatedAt,
		Content:         snap.Content,
		Visibility:      snap.Visibility,
		SpoilerText:     snap.SpoilerText,
		Sensitive:       snap.Sensitive,
		InReplyToID:     snap.InReplyToID,
		ReblogOfID:      reblogOfID,
		PollID:          pollID,
		Language:        snap.Language,
		ReblogsCount:    snap.ReblogsCount,
		FavouritesCount: snap.FavouritesCount,
		RepliesCount:    snap.RepliesCount,
		Reblogged:       snap.Reblogged,
		Favourited:      snap.Favourited,
		Bookmarked:      snap.Bookmarked,
		Pinned:          snap.Pinned,
		Muted:           snap.Muted,
	}
}

func attachmentRows(snap *api.Status) []*store.Attachment {
	rows := make([]*store.Attachment, len(snap.Attachments))
	for i, a := range snap.Attachments {
		rows[i] = &store.Attachment{
			ID:          a.ID,
			StatusID:    snap.ID,
			Type:        a.Type,
			URL:         a.URL,
			PreviewURL:  a.PreviewURL,
			RemoteURL:   a.RemoteURL,
			Description: a.Description,
			Blurhash:    a.Blurhash,
			Ordering:    i,
		}
	}
	return rows
}
