package validation

import (
	"path/filepath"
	"testing"
)

// TestValidateFilename tests strict validation for service-provided attachment names
func TestValidateFilename(t *testing.T) {
	testCases := []struct {
		name        string
		filename    string
		expectValid bool
	}{
		// Valid filenames
		{"simple", "file.txt", true},
		{"with_dash", "crash-dump.dmp", true},
		{"with_dots", "build.v1.2.3.zip", true},
		{"hidden_file", ".hidden", true},
		{"spaces", "screen shot 1.png", true},
		{"contains_dots", "file..txt", true},
		{"unicode", "Ablaufdiagramm-Ü.vsdx", true},

		// Invalid filenames
		{"empty", "", false},
		{"parent_dir", "..", false},
		{"current_dir", ".", false},
		{"unix_separator", "dir/file.txt", false},
		{"windows_separator", "dir\\file.txt", false},
		{"mixed_separators", "dir/sub\\file", false},
		{"traversal_attempt", "../etc/passwd", false},
		{"null_byte", "file\x00.txt", false},
		{"absolute_path", "/etc/passwd", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateFilename(tc.filename)
			if tc.expectValid && err != nil {
				t.Errorf("Expected filename %q to be valid, but got error: %v", tc.filename, err)
			}
			if !tc.expectValid && err == nil {
				t.Errorf("Expected filename %q to be invalid, but validation passed", tc.filename)
			}
		})
	}
}

// TestValidatePathInDirectory tests context-aware path validation
func TestValidatePathInDirectory(t *testing.T) {
	baseDir := t.TempDir()

	testCases := []struct {
		name        string
		path        string
		expectValid bool
	}{
		{"flat_file", "design.docx", true},
		{"per_item_file", "4711/design.docx", true},
		{"absolute_inside", filepath.Join(baseDir, "4711", "log.txt"), true},
		{"dot_segments_inside", "4711/../4712/log.txt", true},
		{"parent", "..", false},
		{"attack_ssh_key", "../../.ssh/id_rsa", false},
		{"attack_passwd", "../../../etc/passwd", false},
		{"absolute_outside", filepath.Join(filepath.Dir(baseDir), "elsewhere.txt"), false},
		{"empty", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePathInDirectory(tc.path, baseDir)
			if tc.expectValid && err != nil {
				t.Errorf("Expected %q to stay inside %q, got error: %v", tc.path, baseDir, err)
			}
			if !tc.expectValid && err == nil {
				t.Errorf("Expected %q to be rejected", tc.path)
			}
		})
	}
}

func TestValidatePathInDirectoryEmptyBase(t *testing.T) {
	if err := ValidatePathInDirectory("file.txt", ""); err == nil {
		t.Error("Expected error for empty base directory")
	}
}
