// Package postgres provides PostgreSQL implementations of the store
// interfaces. All contention on shared circulation state (the available copy
// counter and active-loan uniqueness) is resolved by the database itself via
// conditional updates and a partial unique index, never by in-process locks.
package postgres
