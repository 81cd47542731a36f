// Package notify contains the reconciliation engine: the live tracker that
// detects newly started streams and posts notification messages, the message
// reconciler that keeps posted messages in sync with observed stream state,
// the rebuildable name cache, and the scheduler driving all of them.
package notify
