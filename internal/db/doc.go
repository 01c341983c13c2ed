// Package db contains the data-access layer for Doorman.
//
// The package hides the underlying database (SQLite, PostgreSQL or MySQL)
// behind the Store interface and a set of package-level helpers that delegate
// to the store installed by InitDB. Production code normally calls the
// helpers; the sshd server receives the store through its own narrow audit
// interface so it never depends on this package.
//
// Schema migrations are embedded per backend under migrations/<dbtype> and
// applied automatically whenever a store is created.
//
// Testing notes
//   - Prefer `db.InitDB("sqlite", ":memory:")` in tests that need real DB
//     semantics and migrations.
//   - `sqlOpenFunc` can be overridden to inject open failures.
package db
