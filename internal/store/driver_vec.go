//go:build sqlite_vec && cgo

package store

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	// CGO SQLite driver, required for loading the sqlite-vec extension.
	_ "github.com/mattn/go-sqlite3"
)

const driverName = "sqlite3"

func init() {
	// Registers sqlite-vec with every connection mattn opens, so the
	// vec0 probe in detectVecExtension succeeds.
	vec.Auto()
}
