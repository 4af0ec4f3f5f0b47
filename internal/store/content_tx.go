// ABOUTME: Transactional write path for the content store
// ABOUTME: Upserts are replace-on-primary-key-conflict; no write requires a prior read

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Tx is a single content-store transaction. All writes commit or roll back
// together; partial writes are never observable.
type Tx struct {
	tx *sql.Tx
}

// GetStatus reads a status within the transaction.
func (t *Tx) GetStatus(ctx context.Context, id string) (*Status, error) {
	return getStatus(ctx, t.tx, id)
}

// UpsertAccount writes an account, replacing every column on conflict.
// Conflicts update in place so rows referenced by statuses are never deleted.
func (t *Tx) UpsertAccount(ctx context.Context, account *Account) error {
	emoji, err := json.Marshal(emojiOrEmpty(account.Emoji))
	if err != nil {
		return fmt.Errorf("encoding emoji: %w", err)
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO accounts
			(id, username, display_name, url, avatar, avatar_static,
			 header, header_static, emoji, follow_request_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username             = excluded.username,
			display_name         = excluded.display_name,
			url                  = excluded.url,
			avatar               = excluded.avatar,
			avatar_static        = excluded.avatar_static,
			header               = excluded.header,
			header_static        = excluded.header_static,
			emoji                = excluded.emoji,
			follow_request_count = excluded.follow_request_count
	`,
		account.ID,
		account.Username,
		account.DisplayName,
		account.URL,
		account.Avatar,
		account.AvatarStatic,
		account.Header,
		account.HeaderStatic,
		string(emoji),
		account.FollowRequestCount,
	)
	if err != nil {
		return fmt.Errorf("upserting account: %w", err)
	}
	return nil
}

// UpsertStatus writes a status. Every snapshot column is replaced on conflict;
// show_content is local state the snapshot never carries, so an existing value
// survives and a new row defaults to !Sensitive.
func (t *Tx) UpsertStatus(ctx context.Context, status *Status) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO statuses
			(id, account_id, uri, created_at, content, visibility, spoiler_text,
			 sensitive, in_reply_to_id, reblog_of_id, poll_id, language,
			 reblogs_count, favourites_count, replies_count,
			 reblogged, favourited, bookmarked, pinned, muted, show_content)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			account_id       = excluded.account_id,
			uri              = excluded.uri,
			created_at       = excluded.created_at,
			content          = excluded.content,
			visibility       = excluded.visibility,
			spoiler_text     = excluded.spoiler_text,
			sensitive        = excluded.sensitive,
			in_reply_to_id   = excluded.in_reply_to_id,
			reblog_of_id     = excluded.reblog_of_id,
			poll_id          = excluded.poll_id,
			language         = excluded.language,
			reblogs_count    = excluded.reblogs_count,
			favourites_count = excluded.favourites_count,
			replies_count    = excluded.replies_count,
			reblogged        = excluded.reblogged,
			favourited       = excluded.favourited,
			bookmarked       = excluded.bookmarked,
			pinned           = excluded.pinned,
			muted            = excluded.muted
	`,
		status.ID,
		status.AccountID,
		status.URI,
		status.CreatedAt.UTC().Format(time.RFC3339),
		status.Content,
		status.Visibility,
		status.SpoilerText,
		status.Sensitive,
		status.InReplyToID,
		status.ReblogOfID,
		status.PollID,
		status.Language,
		status.ReblogsCount,
		status.FavouritesCount,
		status.RepliesCount,
		status.Reblogged,
		status.Favourited,
		status.Bookmarked,
		status.Pinned,
		status.Muted,
		!status.Sensitive,
	)
	if err != nil {
		return fmt.Errorf("upserting status: %w", err)
	}
	return nil
}

// UpsertPoll replaces a poll snapshot wholesale.
func (t *Tx) UpsertPoll(ctx context.Context, poll *Poll) error {
	ownVotes, err := json.Marshal(intsOrEmpty(poll.OwnVotes))
	if err != nil {
		return fmt.Errorf("encoding own_votes: %w", err)
	}
	options, err := json.Marshal(optionsOrEmpty(poll.Options))
	if err != nil {
		return fmt.Errorf("encoding options: %w", err)
	}

	var expiresAt any
	if poll.ExpiresAt != nil {
		expiresAt = poll.ExpiresAt.UTC().Format(time.RFC3339)
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO polls
			(id, expires_at, expired, multiple, votes_count, voters_count,
			 voted, own_votes, options)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		poll.ID,
		expiresAt,
		poll.Expired,
		poll.Multiple,
		poll.VotesCount,
		poll.VotersCount,
		poll.Voted,
		string(ownVotes),
		string(options),
	)
	if err != nil {
		return fmt.Errorf("upserting poll: %w", err)
	}
	return nil
}

// ReplaceAttachments swaps a status's attachment metadata for the given set.
func (t *Tx) ReplaceAttachments(ctx context.Context, statusID string, attachments []*Attachment) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM attachments WHERE status_id = ?`, statusID); err != nil {
		return fmt.Errorf("clearing attachments: %w", err)
	}

	for i, a := range attachments {
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO attachments
				(id, status_id, type, url, preview_url, remote_url, description, blurhash, ordering)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, a.ID, statusID, a.Type, a.URL, a.PreviewURL, a.RemoteURL, a.Description, a.Blurhash, i)
		if err != nil {
			return fmt.Errorf("inserting attachment: %w", err)
		}
	}
	return nil
}

// SetStatusPoll repoints a status at a poll snapshot.
func (t *Tx) SetStatusPoll(ctx context.Context, statusID, pollID string) error {
	result, err := t.tx.ExecContext(ctx,
		`UPDATE statuses SET poll_id = ? WHERE id = ?`, pollID, statusID)
	if err != nil {
		return fmt.Errorf("updating status poll: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStatusShowContent flips the local show-content flag.
func (t *Tx) SetStatusShowContent(ctx context.Context, id string, show bool) error {
	result, err := t.tx.ExecContext(ctx,
		`UPDATE statuses SET show_content = ? WHERE id = ?`, show, id)
	if err != nil {
		return fmt.Errorf("updating show_content: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteStatus removes a status row and collects every dependent before the
// transaction commits: reblog wrappers and attachments cascade through foreign
// keys; a poll is removed once nothing references it.
func (t *Tx) DeleteStatus(ctx context.Context, id string) error {
	var pollID sql.NullString
	err := t.tx.QueryRowContext(ctx,
		`SELECT poll_id FROM statuses WHERE id = ?`, id).Scan(&pollID)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("querying status poll: %w", err)
	}

	if _, err := t.tx.ExecContext(ctx, `DELETE FROM statuses WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting status: %w", err)
	}

	if pollID.Valid {
		var refs int
		err := t.tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM statuses WHERE poll_id = ?`, pollID.String).Scan(&refs)
		if err != nil {
			return fmt.Errorf("counting poll references: %w", err)
		}
		if refs == 0 {
			if _, err := t.tx.ExecContext(ctx, `DELETE FROM polls WHERE id = ?`, pollID.String); err != nil {
				return fmt.Errorf("deleting orphaned poll: %w", err)
			}
		}
	}

	return nil
}

func intsOrEmpty(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}

func optionsOrEmpty(v []PollOption) []PollOption {
	if v == nil {
		return []PollOption{}
	}
	return v
}
