// Package merge reconciles remote snapshots into the content store.
//
// # Overview
//
// Server responses arrive as nested snapshots: a status may carry its author,
// its poll, its attachments, and a reblogged status which itself nests the
// same shapes. The Reconciler flattens one snapshot graph into rows and
// writes them depth-first inside a single transaction, so readers observe
// either the whole snapshot or none of it.
//
// # Local State
//
// Snapshot columns are replaced wholesale on conflict. Columns the server
// never carries, such as a status's show_content flag, keep their stored
// values across merges.
//
// # Change Notification
//
// Every committed merge publishes one change per written row to the
// broadcaster, after the transaction commits.
package merge
