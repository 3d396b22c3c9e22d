// Package repositories implements SQLite persistence for studyx.
//
// Key Implementations:
//   - [KVRepository] : namespaced key/value records; holds the persisted timer state
//   - [SessionRepository] : completed focus and break phases, with daily aggregation for the dashboard
//
// Session records get a sequence number from [NextSequence], which increments a counter in the table's
// "_sequence" companion table inside the same transaction as the insert. Sequences give stable history
// ordering independent of UUIDs.
// Deletes are soft: deleted_at is set and the row is excluded from queries.
package repositories
