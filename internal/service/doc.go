// Package service implements the user-facing cache operations.
//
// # Overview
//
// StatusService performs status actions: favourite, reblog, bookmark, pin,
// and mute toggles, content visibility, deletion, delete-and-redraft, and
// poll voting. IdentityService manages identities, instance metadata, and
// credential verification.
//
// # Write Discipline
//
// Actions are confirmed-write: the upstream call happens first and the cache
// is updated only from the server's response. A failed upstream call leaves
// the cache exactly as it was.
//
// # Indirection
//
// Status actions target the display status: when the named status is a
// reblog wrapper, the action applies to the reblogged status, matching what
// the user sees.
package service
