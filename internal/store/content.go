// ABOUTME: Per-identity content store holding cached accounts, statuses, polls and attachments
// ABOUTME: All mutation goes through the transactional write path (WithTx); reads are point lookups

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// querier is satisfied by both *sql.DB and *sql.Tx so scan helpers can be
// shared between point lookups and the transactional write path.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ContentStore is a per-identity content SQLite store.
type ContentStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewContentStore opens (creating if needed) a content store at path and
// applies pending migrations. A migration failure is fatal and surfaces as a
// *MigrationError.
func NewContentStore(ctx context.Context, path string) (*ContentStore, error) {
	logger := slog.Default().With("component", "content-store")

	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}

	if err := Migrate(ctx, db, "content", contentMigrations); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("content store initialized", "path", path)
	return &ContentStore{db: db, path: path, logger: logger}, nil
}

// DB exposes the underlying handle for migration inspection in tests.
func (s *ContentStore) DB() *sql.DB { return s.db }

// Path returns the on-disk location of this store.
func (s *ContentStore) Path() string { return s.path }

// Close closes the database connection
func (s *ContentStore) Close() error {
	s.logger.Debug("closing content store")
	return s.db.Close()
}

// WithTx runs fn inside a single transaction. The transaction is rolled back
// if fn returns an error; otherwise it commits. One committed transaction is
// one visible state transition for subscribers.
func (s *ContentStore) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbtx.Rollback()

	if err := fn(&Tx{tx: dbtx}); err != nil {
		return err
	}

	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetStatus retrieves a status by ID.
// Returns ErrNotFound if it does not exist.
func (s *ContentStore) GetStatus(ctx context.Context, id string) (*Status, error) {
	return getStatus(ctx, s.db, id)
}

// DisplayStatus resolves the display status for id: the status itself, or the
// reblogged target if the row is a reblog wrapper.
func (s *ContentStore) DisplayStatus(ctx context.Context, id string) (*Status, error) {
	status, err := s.GetStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	if status.ReblogOfID == nil {
		return status, nil
	}
	return s.GetStatus(ctx, *status.ReblogOfID)
}

// GetAccount retrieves a cached account by ID.
// Returns ErrNotFound if it does not exist.
func (s *ContentStore) GetAccount(ctx context.Context, id string) (*Account, error) {
	return getContentAccount(ctx, s.db, id)
}

// GetPoll retrieves a poll by ID.
// Returns ErrNotFound if it does not exist.
func (s *ContentStore) GetPoll(ctx context.Context, id string) (*Poll, error) {
	return getPoll(ctx, s.db, id)
}

// GetStatusAttachments returns a status's attachment metadata in display order.
func (s *ContentStore) GetStatusAttachments(ctx context.Context, statusID string) ([]*Attachment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status_id, type, url, preview_url, remote_url, description, blurhash, ordering
		FROM attachments
		WHERE status_id = ?
		ORDER BY ordering
	`, statusID)
	if err != nil {
		return nil, fmt.Errorf("querying attachments: %w", err)
	}
	defer rows.Close()

	var attachments []*Attachment
	for rows.Next() {
		var a Attachment
		if err := rows.Scan(
			&a.ID, &a.StatusID, &a.Type, &a.URL,
			&a.PreviewURL, &a.RemoteURL, &a.Description, &a.Blurhash, &a.Ordering,
		); err != nil {
			return nil, fmt.Errorf("scanning attachment row: %w", err)
		}
		attachments = append(attachments, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating attachment rows: %w", err)
	}
	return attachments, nil
}

// UpsertAccount writes an account in its own transaction.
func (s *ContentStore) UpsertAccount(ctx context.Context, account *Account) error {
	return s.WithTx(ctx, func(tx *Tx) error { return tx.UpsertAccount(ctx, account) })
}

// UpsertStatus writes a status in its own transaction.
func (s *ContentStore) UpsertStatus(ctx context.Context, status *Status) error {
	return s.WithTx(ctx, func(tx *Tx) error { return tx.UpsertStatus(ctx, status) })
}

// UpsertPoll writes a poll snapshot in its own transaction.
func (s *ContentStore) UpsertPoll(ctx context.Context, poll *Poll) error {
	return s.WithTx(ctx, func(tx *Tx) error { return tx.UpsertPoll(ctx, poll) })
}

// DeleteStatus removes a status and everything it exclusively owns: reblog
// wrappers pointing at it, attachment metadata, and its poll if no other
// status references it. Returns only after all cascaded removals commit.
func (s *ContentStore) DeleteStatus(ctx context.Context, id string) error {
	err := s.WithTx(ctx, func(tx *Tx) error { return tx.DeleteStatus(ctx, id) })
	if err != nil {
		return err
	}
	s.logger.Debug("deleted status", "id", id)
	return nil
}

// SetStatusShowContent flips the local show-content flag on a status.
func (s *ContentStore) SetStatusShowContent(ctx context.Context, id string, show bool) error {
	return s.WithTx(ctx, func(tx *Tx) error { return tx.SetStatusShowContent(ctx, id, show) })
}

func getStatus(ctx context.Context, q querier, id string) (*Status, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, account_id, uri, created_at, content, visibility, spoiler_text,
		       sensitive, in_reply_to_id, reblog_of_id, poll_id, language,
		       reblogs_count, favourites_count, replies_count,
		       reblogged, favourited, bookmarked, pinned, muted, show_content
		FROM statuses
		WHERE id = ?
	`, id)

	var status Status
	var createdAtStr string
	err := row.Scan(
		&status.ID,
		&status.AccountID,
		&status.URI,
		&createdAtStr,
		&status.Content,
		&status.Visibility,
		&status.SpoilerText,
		&status.Sensitive,
		&status.InReplyToID,
		&status.ReblogOfID,
		&status.PollID,
		&status.Language,
		&status.ReblogsCount,
		&status.FavouritesCount,
		&status.RepliesCount,
		&status.Reblogged,
		&status.Favourited,
		&status.Bookmarked,
		&status.Pinned,
		&status.Muted,
		&status.ShowContent,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying status: %w", err)
	}

	status.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &status, nil
}

func getContentAccount(ctx context.Context, q querier, id string) (*Account, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, username, display_name, url, avatar, avatar_static,
		       header, header_static, emoji, follow_request_count
		FROM accounts
		WHERE id = ?
	`, id)

	var account Account
	var emoji string
	err := row.Scan(
		&account.ID,
		&account.Username,
		&account.DisplayName,
		&account.URL,
		&account.Avatar,
		&account.AvatarStatic,
		&account.Header,
		&account.HeaderStatic,
		&emoji,
		&account.FollowRequestCount,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying account: %w", err)
	}

	if err := json.Unmarshal([]byte(emoji), &account.Emoji); err != nil {
		return nil, fmt.Errorf("decoding emoji: %w", err)
	}
	return &account, nil
}

func getPoll(ctx context.Context, q querier, id string) (*Poll, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, expires_at, expired, multiple, votes_count, voters_count,
		       voted, own_votes, options
		FROM polls
		WHERE id = ?
	`, id)

	var poll Poll
	var expiresAt sql.NullString
	var ownVotes, options string
	err := row.Scan(
		&poll.ID,
		&expiresAt,
		&poll.Expired,
		&poll.Multiple,
		&poll.VotesCount,
		&poll.VotersCount,
		&poll.Voted,
		&ownVotes,
		&options,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying poll: %w", err)
	}

	if expiresAt.Valid {
		t, err := time.Parse(time.RFC3339, expiresAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing expires_at: %w", err)
		}
		poll.ExpiresAt = &t
	}
	if err := json.Unmarshal([]byte(ownVotes), &poll.OwnVotes); err != nil {
		return nil, fmt.Errorf("decoding own_votes: %w", err)
	}
	if err := json.Unmarshal([]byte(options), &poll.Options); err != nil {
		return nil, fmt.Errorf("decoding options: %w", err)
	}
	return &poll, nil
}
