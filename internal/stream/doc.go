// Package stream fans out cache change notifications to subscribers.
//
// # Overview
//
// A Broadcaster maps subscription keys to buffered channels. Writers publish
// a Change after committing; subscribers receive changes for the key they
// subscribed to until their context is cancelled.
//
// Delivery is non-blocking. A subscriber whose buffer is full misses that
// change rather than stalling the writer, so consumers that must not miss
// updates should reload current state on every change they do receive.
package stream
