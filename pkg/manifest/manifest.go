// Package manifest inspects bundle manifests without executing them.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bazelbuild/buildtools/build"
)

const (
	// FileName is the manifest script at the root of a bundle directory.
	FileName = "bundle.star"
	// ScriptExtension is the extension of bundle scripts, compared
	// case-insensitively.
	ScriptExtension = ".star"
	// LibDirectoryName is the bundle subdirectory holding loadable modules.
	LibDirectoryName = "lib"
	// BundleFunction is the builtin that declares a bundle.
	BundleFunction = "bundle"
)

// Path returns the manifest path of a bundle directory.
func Path(bundleDir string) string {
	return filepath.Join(bundleDir, FileName)
}

// IsManifest reports whether path names a manifest file.
func IsManifest(path string) bool {
	return filepath.Base(path) == FileName
}

// IsScript reports whether path has the script extension.
func IsScript(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ScriptExtension)
}

// DefaultName is the name a bundle gets when its manifest does not declare
// one: the base name of the manifest's directory.
func DefaultName(manifestPath string) string {
	return filepath.Base(filepath.Dir(manifestPath))
}

// LibDirectory returns the library directory of a bundle directory.
func LibDirectory(bundleDir string) string {
	return filepath.Join(bundleDir, LibDirectoryName)
}

// DeclaredName parses the manifest and returns the name passed to the first
// top-level bundle() call, either as the name keyword or the first
// positional argument.  When no name is declared the default name is
// returned.
func DeclaredName(manifestPath string) (string, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return "", err
	}
	return ParseDeclaredName(manifestPath, data)
}

// ParseDeclaredName is DeclaredName over manifest content.
func ParseDeclaredName(manifestPath string, data []byte) (string, error) {
	file, err := build.ParseDefault(manifestPath, data)
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", manifestPath, err)
	}
	for _, stmt := range file.Stmt {
		call, ok := stmt.(*build.CallExpr)
		if !ok {
			continue
		}
		if ident, ok := call.X.(*build.Ident); !ok || ident.Name != BundleFunction {
			continue
		}
		if name, ok := nameArgument(call); ok {
			return name, nil
		}
		break
	}
	return DefaultName(manifestPath), nil
}

func nameArgument(call *build.CallExpr) (string, bool) {
	for i, arg := range call.List {
		switch t := arg.(type) {
		case *build.AssignExpr:
			if lhs, ok := t.LHS.(*build.Ident); ok && lhs.Name == "name" {
				if s, ok := t.RHS.(*build.StringExpr); ok && s.Value != "" {
					return s.Value, true
				}
			}
		case *build.StringExpr:
			if i == 0 && t.Value != "" {
				return t.Value, true
			}
		}
	}
	return "", false
}
