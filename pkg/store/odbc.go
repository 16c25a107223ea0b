//go:build windows || odbc

package store

import (
	// Registers the "odbc" driver used by the Access strategies.
	_ "github.com/alexbrainman/odbc"
)
