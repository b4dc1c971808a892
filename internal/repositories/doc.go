// Package repositories implements SQLite persistence for the migration run history.
//
// [RunRepository] stores one row per migrate invocation together with the tracks that could not be
// resolved during it. The resumable migration state itself lives in a JSON file (see the state
// package); the database only keeps history for the history command.
//
// Sequence numbers provide stable, human-readable ordering (run #42) independent of UUIDs and timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
