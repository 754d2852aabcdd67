package attachments

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rescale/witdl/internal/constants"
	"github.com/rescale/witdl/internal/validation"
)

// Layout controls where attachment files land below the output root.
type Layout int

const (
	// LayoutPerItem writes root/<work item id>/<name>.
	LayoutPerItem Layout = iota
	// LayoutFlat writes root/<name>; a later attachment with the same name
	// replaces an earlier one.
	LayoutFlat
)

func (l Layout) String() string {
	if l == LayoutFlat {
		return "flat"
	}
	return "per-item"
}

// BuildOutputPath returns the destination of an attachment and creates the
// directories it needs. Directory creation is repeated on every call and is
// idempotent. The file itself is not inspected.
func BuildOutputPath(root string, id int, filename string, layout Layout) (string, error) {
	if err := validation.ValidateFilename(filename); err != nil {
		return "", fmt.Errorf("invalid attachment name: %w", err)
	}

	dir, err := normalizeRoot(root)
	if err != nil {
		return "", err
	}
	if err := ensureDir(dir); err != nil {
		return "", err
	}

	rel := filename
	if layout == LayoutPerItem {
		itemDir := strconv.Itoa(id)
		if err := ensureDir(filepath.Join(dir, itemDir)); err != nil {
			return "", err
		}
		rel = filepath.Join(itemDir, filename)
	}

	if err := validation.ValidatePathInDirectory(rel, dir); err != nil {
		return "", err
	}
	return filepath.Join(dir, rel), nil
}

// normalizeRoot trims trailing '/' and '\' characters. A root made only of
// separators is the filesystem root and is kept as one separator.
func normalizeRoot(root string) (string, error) {
	if root == "" {
		return "", fmt.Errorf("output directory cannot be empty")
	}
	trimmed := strings.TrimRight(root, `/\`)
	if trimmed == "" {
		return root[:1], nil
	}
	return trimmed, nil
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
