// Package fsutil provides file system utility functions.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// paramExtensions lists the file extensions tried when locating a named
// parameter-file variant, in preference order.
var paramExtensions = []string{".yaml", ".yml"}

// FindParamFile locates the parameter file for a stage under the config
// directory. It looks for <configDir>/<stage>/<name>.yaml, then .yml, and
// returns the first path that exists. The boolean reports whether a file
// was found; an error is returned only when a candidate path could not be
// checked.
func FindParamFile(configDir, stage, name string) (string, bool, error) {
	for _, ext := range paramExtensions {
		candidate := filepath.Join(configDir, stage, name+ext)
		info, err := os.Stat(candidate)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", false, fmt.Errorf("error accessing path %s: %w", candidate, err)
		}
		if !info.IsDir() {
			return candidate, true, nil
		}
	}
	return "", false, nil
}
