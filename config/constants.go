package config

import "github.com/brettbedarf/memfs/internal/util"

// Log verbosity as given on the command line or in config files.
// Higher is noisier.
const (
	ErrorVerbose = iota + 1
	WarnVerbose
	InfoVerbose
	DebugVerbose
	TraceVerbose
)

// Default configuration constants. See [Config] for field descriptions.
const (
	DefaultLogLvl         = util.InfoLevel
	DefaultUser           = "default_user"
	DefaultAdminPassword  = "admin123"
	DefaultAuthScheme     = "plaintext"
	DefaultBcryptCost     = 10
	DefaultSnapshotFormat = "json"
	DefaultStoreType      = "file"
	DefaultStatePath      = ".memfs_state"
)

// VerboseToLogLvl maps a verbosity between 1 (error) and 5 (trace) onto a
// log level. Out of range values are clamped.
func VerboseToLogLvl(verbose int) util.LogLevel {
	if verbose < ErrorVerbose {
		verbose = ErrorVerbose
	}
	if verbose > TraceVerbose {
		verbose = TraceVerbose
	}
	logLvls := [5]util.LogLevel{util.ErrorLevel, util.WarnLevel, util.InfoLevel, util.DebugLevel, util.TraceLevel}
	return logLvls[verbose-1]
}
