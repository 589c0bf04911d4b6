// Package history persists one record per conversion in SQLite.
//
// The database lives at config.Paths.DataDir/history.db. Count of completed
// records is the running download counter shown by `ugoira status`; Clear
// resets it. The schema is versioned: a mismatch is reported with
// ErrSchemaMismatch and the user is told to clear the database.
package history
