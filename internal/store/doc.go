// Package store provides SQLite persistence for fedicache.
//
// # Overview
//
// Two physical stores exist. The identity store is a single database holding
// identities, instances, and identity-owned account metadata. Each identity
// additionally owns a content database holding the statuses, accounts, polls,
// and attachments cached for that identity.
//
// # Schema Management
//
// Each database carries its own named-migration history in a
// schema_migrations table. Opening a store applies any pending migrations,
// each in its own transaction; already-applied names are skipped, so opening
// an up-to-date database is a no-op.
//
// # Stores
//
// IdentityStore wraps the identity database:
//
//	identities, err := store.NewIdentityStore(ctx, "/data/identity.db")
//
// ContentStore wraps one identity's content database and exposes WithTx for
// multi-row atomic writes:
//
//	err := content.WithTx(ctx, func(tx *store.Tx) error {
//	    if err := tx.UpsertAccount(ctx, account); err != nil {
//	        return err
//	    }
//	    return tx.UpsertStatus(ctx, status)
//	})
//
// # Errors
//
// Lookups of absent rows return ErrNotFound. Migration failures return a
// *MigrationError identifying the store and the failing step.
package store
