// Package keyvalue wraps the pooled Redis client behind per-resource
// reader-writer locks, a connection watchdog, a distributed lock primitive and
// an envelope-based pub/sub channel. Redis holds only derived, rebuildable
// state; losing it costs performance, never correctness.
package keyvalue
