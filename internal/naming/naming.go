// Package naming produces collision-free names for entities whose
// namespace requires uniqueness (projects, folders, files, TMs).
//
// Collisions are resolved by suffixing: Name, Name_1, Name_2, and so on,
// with file extensions preserved (report.xlsx becomes report_1.xlsx).
// Platforms never auto-rename; their repositories reject collisions
// outright.
package naming

import (
	"context"
	"fmt"
	"strings"
)

// maxSuffix bounds the rename loop. Sibling sets are finite, so hitting
// the bound means the existence check is broken.
const maxSuffix = 1_000_000

// Exists reports whether name is already taken in the target namespace.
// Implementations must compare case-insensitively and honor any
// exclude-ID the caller needs for renames.
type Exists func(ctx context.Context, name string) (bool, error)

// Unique returns desired when it is free, otherwise the first
// base_n{ext} that is free, trying n = 1, 2, ... in order.
func Unique(ctx context.Context, desired string, exists Exists) (string, error) {
	taken, err := exists(ctx, desired)
	if err != nil {
		return "", err
	}
	if !taken {
		return desired, nil
	}

	base, ext := SplitExt(desired)
	for n := 1; n <= maxSuffix; n++ {
		candidate := fmt.Sprintf("%s_%d%s", base, n, ext)
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free name for %q after %d candidates", desired, maxSuffix)
}

// SplitExt splits a name at its last dot. A leading dot does not start an
// extension, so plain dotfiles keep an empty ext.
func SplitExt(name string) (base, ext string) {
	idx := strings.LastIndex(name, ".")
	if idx <= 0 {
		return name, ""
	}
	return name[:idx], name[idx:]
}
