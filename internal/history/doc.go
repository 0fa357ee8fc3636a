// Package history keeps a SQLite log of fuse checks.
//
// Each check is stored once with a UUIDv7 identifier and a sequence number
// assigned inside the insert transaction. Listing orders by sequence, so the
// log reads the same regardless of the host clock.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package history
