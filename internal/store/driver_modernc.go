//go:build !sqlite_vec || !cgo

package store

import (
	// Pure-Go SQLite driver so default builds need no C toolchain.
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"
