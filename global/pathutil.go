/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package global

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidatePathWithinDir validates that a relative path, when resolved against
// baseDir, stays within baseDir. Export tools accept caller-supplied file
// names; this keeps them from escaping the files directory.
// Returns the absolute resolved path if valid, or an error if path traversal
// is detected.
func ValidatePathWithinDir(baseDir, relativePath string) (string, error) {
	// Reject absolute paths - they must be relative
	if filepath.IsAbs(relativePath) {
		return "", fmt.Errorf("absolute paths not allowed: %s", relativePath)
	}

	// Clean the path to normalize . and .. components
	cleanPath := filepath.Clean(relativePath)

	absBaseDir, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute base directory: %w", err)
	}

	absFilePath, err := filepath.Abs(filepath.Join(absBaseDir, cleanPath))
	if err != nil {
		return "", fmt.Errorf("failed to get absolute file path: %w", err)
	}

	// The resolved path must sit under the base directory or equal it exactly
	if !IsPathWithin(absBaseDir, absFilePath) {
		return "", fmt.Errorf("path traversal attempt detected: %s", relativePath)
	}

	return absFilePath, nil
}

// IsPathWithin checks if resolvedPath is within or equal to baseDir.
// Both paths should be absolute.
func IsPathWithin(baseDir, resolvedPath string) bool {
	return strings.HasPrefix(resolvedPath, baseDir+string(filepath.Separator)) ||
		resolvedPath == baseDir
}
