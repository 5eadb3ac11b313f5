// Package session holds per-conversation state: the append-only message
// history, accumulated token counters, and the progress snapshot observers
// read while a turn is running. Sessions live in memory only; nothing is
// persisted to disk.
package session
