// Package models defines the persisted entities of studyx and the interfaces used to store them.
//
// Persistent entities:
//   - [SessionRecord] : one completed focus or break phase
//
// Read models:
//   - [DailyTotal] : per-day focus minutes and phase counts
//   - [Stats] : a window of daily totals plus running counters from the timer
//
// Persistent entities implement [Model] and, when deletes are soft, [SoftDeletable]. [Repository] is
// the CRUD contract; [SessionStore] extends it with the daily aggregation queries.
package models
