package kv

import (
	"fmt"
	"time"
)

// DriverFS selects the file-per-key provider.
const DriverFS = "fs"

// Open returns the provider named by driver: DriverFS treats path as a
// directory, the SQLite drivers treat it as a database file.
func Open(driver, path string, poll time.Duration) (Provider, error) {
	switch driver {
	case DriverFS, "":
		return NewFS(path)
	case DriverCGO, DriverPureGo:
		return OpenSQLite(driver, path, poll)
	default:
		return nil, fmt.Errorf("kv: unknown driver %q", driver)
	}
}
