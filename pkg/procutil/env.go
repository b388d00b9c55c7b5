// Package procutil reads process-level settings from the environment.
package procutil

import (
	"os"
	"strings"
)

// EnvVar names an environment variable.
type EnvVar string

const (
	// BUNDLES_CONFIG is the configuration file used when --config is not
	// given.
	BUNDLES_CONFIG = EnvVar("BUNDLES_CONFIG")
	// BUNDLES_LOG_FILE, when set, receives log output instead of stderr.
	BUNDLES_LOG_FILE = EnvVar("BUNDLES_LOG_FILE")
	// BUNDLES_LOG_LEVEL overrides the configured log level unless
	// --log-level is given.
	BUNDLES_LOG_LEVEL = EnvVar("BUNDLES_LOG_LEVEL")
	// BUNDLES_DEBUG_PROCESS makes the CLI print its process ID and wait for
	// ENTER before doing anything, so a debugger can attach.
	BUNDLES_DEBUG_PROCESS = EnvVar("BUNDLES_DEBUG_PROCESS")
)

// LookupBoolEnv returns the boolean value of name.  "true" and "1" are true,
// "false" and "0" are false, case-insensitively; anything else yields
// defaultValue.
func LookupBoolEnv(name EnvVar, defaultValue bool) bool {
	if val, ok := os.LookupEnv(string(name)); ok {
		switch strings.ToLower(val) {
		case "true", "1":
			return true
		case "false", "0":
			return false
		}
	}
	return defaultValue
}

// LookupEnv returns the value of name and whether it is set and non-empty.
func LookupEnv(name EnvVar) (string, bool) {
	val, ok := os.LookupEnv(string(name))
	return val, ok && val != ""
}

// GetEnv returns the value of name, or defaultValue when it is unset or
// empty.
func GetEnv(name EnvVar, defaultValue string) string {
	if val, ok := LookupEnv(name); ok {
		return val
	}
	return defaultValue
}
