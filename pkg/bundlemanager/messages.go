package bundlemanager

// Diagnostics reported to the sink.  Arguments are formatted with
// fmt.Sprintf.
const (
	msgEmptyScriptLoad       = "Attempted to load a script with an empty path"
	msgEmptyScriptReload     = "Attempted to reload a script with an empty path"
	msgEmptyScriptUnload     = "Attempted to unload a script with an empty path"
	msgUnreadableScript      = "Unable to read script: %s"
	msgDirectoryDoesNotExist = "Bundle directory does not exist: %s"
	msgNotADirectory         = "Bundle path is not a directory: %s"
	msgUnreadableDirectory   = "Bundle directory is not readable: %s"
	msgNoBundleFile          = "Bundle directory %s does not contain a %s file"
	msgScriptFailed          = "Error running script %s: %v"
	msgMissingOwner          = "Element %q from %s has no owning bundle"
	msgManifestUnparsable    = "Unable to determine the declared bundle name of %s: %v"
	msgNoScriptEngine        = "No script engine is configured; skipped %s"
)
