package cli

import (
	"os"
	"time"

	"vla/internal/config"
)

// Function variables for dependency injection in tests.
// Default values are the real implementations; tests may temporarily swap them.
var (
	configLoad         = config.Load
	configWriteDefault = config.WriteDefault
	osStat             = os.Stat
	osMkdirAll         = os.MkdirAll
	loadLocation       = time.LoadLocation
)
