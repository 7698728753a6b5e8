// Package store executes rendered statements against a database/sql
// connection.
//
// Three drivers are registered: sqlite3 (github.com/mattn/go-sqlite3),
// postgres (github.com/lib/pq) and mysql (github.com/go-sql-driver/mysql).
//
// # SQLite Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait on lock contention instead of failing
//   - One open connection, so ":memory:" databases survive between calls
//
// Rows are scanned into maps keyed by column name. []byte values are
// returned as strings.
package store
