// ABOUTME: Identity/runtime store holding identities, instances and identity-owned accounts
// ABOUTME: One per installation; deleting an identity cascades to its accounts

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// IdentityStore is the identity/runtime SQLite store.
type IdentityStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewIdentityStore opens (creating if needed) the identity store at path and
// applies pending migrations. A migration failure is fatal and surfaces as a
// *MigrationError.
func NewIdentityStore(ctx context.Context, path string) (*IdentityStore, error) {
	logger := slog.Default().With("component", "identity-store")

	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}

	if err := Migrate(ctx, db, "identity", identityMigrations); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("identity store initialized", "path", path)
	return &IdentityStore{db: db, logger: logger}, nil
}

// DB exposes the underlying handle for migration inspection in tests.
func (s *IdentityStore) DB() *sql.DB { return s.db }

// Close closes the database connection
func (s *IdentityStore) Close() error {
	s.logger.Debug("closing identity store")
	return s.db.Close()
}

// SaveIdentity upserts an identity by ID. Conflicts update in place so the
// cascade from identities to accounts never fires on a re-save.
func (s *IdentityStore) SaveIdentity(ctx context.Context, id *Identity) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO identities
			(id, account_url, authenticated, pending, last_used_at, instance_uri,
			 preferences, push_alerts, last_device_token)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			account_url       = excluded.account_url,
			authenticated     = excluded.authenticated,
			pending           = excluded.pending,
			last_used_at      = excluded.last_used_at,
			instance_uri      = excluded.instance_uri,
			preferences       = excluded.preferences,
			push_alerts       = excluded.push_alerts,
			last_device_token = excluded.last_device_token
	`,
		id.ID,
		id.AccountURL,
		id.Authenticated,
		id.Pending,
		id.LastUsedAt.UTC().Format(time.RFC3339),
		nullString(id.InstanceURI),
		id.Preferences,
		id.PushAlerts,
		id.LastDeviceToken,
	)
	if err != nil {
		return fmt.Errorf("saving identity: %w", err)
	}

	s.logger.Debug("saved identity", "id", id.ID)
	return nil
}

// GetIdentity retrieves an identity by ID.
// Returns ErrNotFound if it does not exist.
func (s *IdentityStore) GetIdentity(ctx context.Context, id string) (*Identity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, account_url, authenticated, pending, last_used_at, instance_uri,
		       preferences, push_alerts, last_device_token
		FROM identities
		WHERE id = ?
	`, id)
	return scanIdentity(row.Scan)
}

// ListIdentities returns all identities, most recently used first.
func (s *IdentityStore) ListIdentities(ctx context.Context) ([]*Identity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_url, authenticated, pending, last_used_at, instance_uri,
		       preferences, push_alerts, last_device_token
		FROM identities
		ORDER BY last_used_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying identities: %w", err)
	}
	defer rows.Close()

	var identities []*Identity
	for rows.Next() {
		identity, err := scanIdentity(rows.Scan)
		if err != nil {
			return nil, err
		}
		identities = append(identities, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating identity rows: %w", err)
	}
	return identities, nil
}

// DeleteIdentity removes an identity; its accounts cascade away with it.
// Returns ErrNotFound if the identity does not exist.
func (s *IdentityStore) DeleteIdentity(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM identities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting identity: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted identity", "id", id)
	return nil
}

// SetIdentityLastUsed stamps the identity's last-used time.
func (s *IdentityStore) SetIdentityLastUsed(ctx context.Context, id string, at time.Time) error {
	return s.updateIdentityField(ctx, id, "last_used_at", at.UTC().Format(time.RFC3339))
}

// SetIdentityAuthenticated flips the authenticated/pending pair after an
// OAuth flow completes.
func (s *IdentityStore) SetIdentityAuthenticated(ctx context.Context, id string, authenticated bool) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE identities SET authenticated = ?, pending = ? WHERE id = ?
	`, authenticated, !authenticated, id)
	if err != nil {
		return fmt.Errorf("updating identity authentication: %w", err)
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

// UpdateIdentityPreferences replaces the preferences blob.
func (s *IdentityStore) UpdateIdentityPreferences(ctx context.Context, id string, preferences []byte) error {
	return s.updateIdentityField(ctx, id, "preferences", preferences)
}

// UpdateIdentityPushAlerts replaces the push alert settings blob.
func (s *IdentityStore) UpdateIdentityPushAlerts(ctx context.Context, id string, pushAlerts []byte) error {
	return s.updateIdentityField(ctx, id, "push_alerts", pushAlerts)
}

// SetIdentityDeviceToken records the device token last registered for push.
func (s *IdentityStore) SetIdentityDeviceToken(ctx context.Context, id string, token []byte) error {
	return s.updateIdentityField(ctx, id, "last_device_token", token)
}

func (s *IdentityStore) updateIdentityField(ctx context.Context, id, column string, value any) error {
	// column is always a literal from this file, never caller input
	result, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE identities SET %s = ? WHERE id = ?`, column), value, id)
	if err != nil {
		return fmt.Errorf("updating identity %s: %w", column, err)
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

// SaveInstance upserts an instance by URI. The whole row is replaced; a later
// fetch for the same URI overwrites the prior row entirely.
func (s *IdentityStore) SaveInstance(ctx context.Context, instance *Instance) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO instances
			(uri, streaming_endpoint, title, thumbnail, version, max_post_length)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		instance.URI,
		instance.StreamingEndpoint,
		instance.Title,
		instance.Thumbnail,
		instance.Version,
		instance.MaxPostLength,
	)
	if err != nil {
		return fmt.Errorf("saving instance: %w", err)
	}

	s.logger.Debug("saved instance", "uri", instance.URI)
	return nil
}

// GetInstance retrieves an instance by URI.
// Returns ErrNotFound if it does not exist.
func (s *IdentityStore) GetInstance(ctx context.Context, uri string) (*Instance, error) {
	var instance Instance
	err := s.db.QueryRowContext(ctx, `
		SELECT uri, streaming_endpoint, title, thumbnail, version, max_post_length
		FROM instances
		WHERE uri = ?
	`, uri).Scan(
		&instance.URI,
		&instance.StreamingEndpoint,
		&instance.Title,
		&instance.Thumbnail,
		&instance.Version,
		&instance.MaxPostLength,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying instance: %w", err)
	}
	return &instance, nil
}

// InstanceForIdentity resolves an identity's weak instance reference.
// A dangling or empty reference yields (nil, nil), not an error.
func (s *IdentityStore) InstanceForIdentity(ctx context.Context, identityID string) (*Instance, error) {
	identity, err := s.GetIdentity(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if identity.InstanceURI == "" {
		return nil, nil
	}
	instance, err := s.GetInstance(ctx, identity.InstanceURI)
	if err == ErrNotFound {
		return nil, nil
	}
	return instance, err
}

// SaveAccount upserts an identity-owned account.
func (s *IdentityStore) SaveAccount(ctx context.Context, account *Account) error {
	emoji, err := json.Marshal(emojiOrEmpty(account.Emoji))
	if err != nil {
		return fmt.Errorf("encoding emoji: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO accounts
			(id, identity_id, username, display_name, url, avatar, avatar_static,
			 header, header_static, emoji, follow_request_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		account.ID,
		account.IdentityID,
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
		return fmt.Errorf("saving account: %w", err)
	}

	s.logger.Debug("saved account", "id", account.ID, "identity_id", account.IdentityID)
	return nil
}

// GetAccount retrieves an account by id within an identity's scope.
// Returns ErrNotFound if it does not exist.
func (s *IdentityStore) GetAccount(ctx context.Context, identityID, id string) (*Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, identity_id, username, display_name, url, avatar, avatar_static,
		       header, header_static, emoji, follow_request_count
		FROM accounts
		WHERE id = ? AND identity_id = ?
	`, id, identityID)
	return scanIdentityAccount(row.Scan)
}

// ListAccounts returns the accounts owned by an identity.
func (s *IdentityStore) ListAccounts(ctx context.Context, identityID string) ([]*Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, identity_id, username, display_name, url, avatar, avatar_static,
		       header, header_static, emoji, follow_request_count
		FROM accounts
		WHERE identity_id = ?
		ORDER BY username
	`, identityID)
	if err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		account, err := scanIdentityAccount(rows.Scan)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating account rows: %w", err)
	}
	return accounts, nil
}

func scanIdentity(scan func(...any) error) (*Identity, error) {
	var identity Identity
	var lastUsedStr string
	var instanceURI sql.NullString

	err := scan(
		&identity.ID,
		&identity.AccountURL,
		&identity.Authenticated,
		&identity.Pending,
		&lastUsedStr,
		&instanceURI,
		&identity.Preferences,
		&identity.PushAlerts,
		&identity.LastDeviceToken,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning identity: %w", err)
	}

	identity.LastUsedAt, err = time.Parse(time.RFC3339, lastUsedStr)
	if err != nil {
		return nil, fmt.Errorf("parsing last_used_at: %w", err)
	}
	if instanceURI.Valid {
		identity.InstanceURI = instanceURI.String
	}
	return &identity, nil
}

func scanIdentityAccount(scan func(...any) error) (*Account, error) {
	var account Account
	var emoji string

	err := scan(
		&account.ID,
		&account.IdentityID,
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
		return nil, fmt.Errorf("scanning account: %w", err)
	}

	if err := json.Unmarshal([]byte(emoji), &account.Emoji); err != nil {
		return nil, fmt.Errorf("decoding emoji: %w", err)
	}
	return &account, nil
}

// nullString returns nil for empty strings so optional columns store NULL
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func emojiOrEmpty(e []Emoji) []Emoji {
	if e == nil {
		return []Emoji{}
	}
	return e
}
