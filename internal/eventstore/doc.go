// Package eventstore is the run journal: an append-only SQLite log of run,
// task and release-step events, plus the read models built from it
// (run history and the last release position used by release --resume).
package eventstore
