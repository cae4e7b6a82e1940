package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var folderNameRegex = regexp.MustCompile(`^[a-z0-9-]{3,64}$`)

// Names that collide with routes or storage-layer prefixes.
var reservedFolderNames = map[string]struct{}{
	"admin":    {},
	"api":      {},
	"auth":     {},
	"metrics":  {},
	"health":   {},
	"folders":  {},
	"projects": {},
	"escrow":   {},
	"tmp":      {},
}

// ValidateFolderName validates deliverable folder names. Folder names become
// part of storage paths, so the character set is deliberately narrow.
func ValidateFolderName(name string) error {
	if !folderNameRegex.MatchString(name) {
		return fmt.Errorf("folder name must be 3-64 characters and contain only lowercase letters, numbers, and hyphens")
	}

	if strings.HasPrefix(name, "-") || strings.HasSuffix(name, "-") {
		return fmt.Errorf("folder name cannot start or end with a hyphen")
	}

	if _, exists := reservedFolderNames[name]; exists {
		return fmt.Errorf("folder name is reserved")
	}

	return nil
}
