package store

import (
	// Registers the "sqlite" driver used by SQLiteStrategy.
	_ "modernc.org/sqlite"
)
