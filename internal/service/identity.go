// ABOUTME: IdentityService manages identity lifecycle, instance refresh and sign-out cascade
// ABOUTME: Concurrent refreshes of the same instance URI collapse via singleflight

package service

import (
	"context"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/2389/fedicache/internal/api"
	"github.com/2389/fedicache/internal/store"
	"github.com/2389/fedicache/internal/stream"
)

// IdentityService is the action façade for identities, instances and
// identity-owned accounts. The identity context is always explicit; there is
// no ambient "current identity".
type IdentityService struct {
	identities  *store.IdentityStore
	client      api.Client
	broadcaster *stream.Broadcaster
	contentDir  string
	flight      singleflight.Group
	logger      *slog.Logger
}

// NewIdentityService creates an IdentityService. contentDir is where
// per-identity content stores live; sign-out removes the identity's store
// files from it.
func NewIdentityService(identities *store.IdentityStore, client api.Client, broadcaster *stream.Broadcaster, contentDir string) *IdentityService {
	return &IdentityService{
		identities:  identities,
		client:      client,
		broadcaster: broadcaster,
		contentDir:  contentDir,
		logger:      slog.Default().With("component", "identity-service"),
	}
}

// CreateIdentity seeds a pending identity for an instance before the
// authorization flow completes.
func (s *IdentityService) CreateIdentity(ctx context.Context, id, accountURL, instanceURI string) (*store.Identity, error) {
	identity := &store.Identity{
		ID:          id,
		AccountURL:  accountURL,
		Pending:     true,
		LastUsedAt:  time.Now().UTC(),
		InstanceURI: instanceURI,
	}
	if err := s.identities.SaveIdentity(ctx, identity); err != nil {
		return nil, err
	}
	s.broadcaster.Publish(stream.Change{Kind: stream.KindIdentity, ID: id})
	return identity, nil
}

// Authenticate marks an identity authenticated once its authorization flow
// completes, and stamps it as most recently used.
func (s *IdentityService) Authenticate(ctx context.Context, id string) error {
	if err := s.identities.SetIdentityAuthenticated(ctx, id, true); err != nil {
		return err
	}
	if err := s.identities.SetIdentityLastUsed(ctx, id, time.Now().UTC()); err != nil {
		return err
	}
	s.broadcaster.Publish(stream.Change{Kind: stream.KindIdentity, ID: id})
	return nil
}

// SetLastUsed stamps an identity as most recently used.
func (s *IdentityService) SetLastUsed(ctx context.Context, id string) error {
	return s.identities.SetIdentityLastUsed(ctx, id, time.Now().UTC())
}

// RefreshInstance fetches server metadata for uri and replaces the cached row
// wholesale. Concurrent refreshes of the same uri share one flight.
func (s *IdentityService) RefreshInstance(ctx context.Context, uri string) (*store.Instance, error) {
	v, err, _ := s.flight.Do(uri, func() (any, error) {
		snap, err := s.client.Instance(ctx, uri)
		if err != nil {
			return nil, err
		}

		instance := &store.Instance{
			URI:               snap.URI,
			StreamingEndpoint: snap.StreamingEndpoint,
			Title:             snap.Title,
			Thumbnail:         snap.Thumbnail,
			Version:           snap.Version,
			MaxPostLength:     snap.MaxPostLength,
		}
		if err := s.identities.SaveInstance(ctx, instance); err != nil {
			return nil, err
		}
		return instance, nil
	})
	if err != nil {
		return nil, err
	}

	instance := v.(*store.Instance)
	s.broadcaster.Publish(stream.Change{Kind: stream.KindInstance, ID: uri})
	return instance, nil
}

// VerifyCredentials fetches the identity's own account from the server and
// caches it under the identity.
func (s *IdentityService) VerifyCredentials(ctx context.Context, identityID string) (*store.Account, error) {
	snap, err := s.client.VerifyCredentials(ctx)
	if err != nil {
		return nil, err
	}

	emoji := make([]store.Emoji, len(snap.Emojis))
	for i, e := range snap.Emojis {
		emoji[i] = store.Emoji(e)
	}
	account := &store.Account{
		ID:                 snap.ID,
		IdentityID:         identityID,
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
	if err := s.identities.SaveAccount(ctx, account); err != nil {
		return nil, err
	}

	s.broadcaster.Publish(stream.Change{Kind: stream.KindAccount, ID: account.ID})
	return account, nil
}

// SignOut removes an identity. Its owned accounts cascade away inside the
// delete transaction; the per-identity content store files are removed after.
func (s *IdentityService) SignOut(ctx context.Context, identityID string) error {
	if err := s.identities.DeleteIdentity(ctx, identityID); err != nil {
		return err
	}

	// WAL sidecars go with the database file
	base := store.ContentDBPath(s.contentDir, identityID)
	for _, path := range []string{base, base + "-wal", base + "-shm"} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("removing content store file", "path", path, "error", err)
		}
	}

	s.broadcaster.Publish(stream.Change{Kind: stream.KindIdentity, ID: identityID, Deleted: true})
	s.logger.Info("signed out identity", "id", identityID)
	return nil
}
