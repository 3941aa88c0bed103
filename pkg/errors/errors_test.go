package errors

import (
	"errors"
	"testing"
)

func TestWrap(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		msg      string
		expected string
	}{
		{
			name:     "wrap nil error",
			err:      nil,
			msg:      "scanning storage root",
			expected: "",
		},
		{
			name:     "wrap sentinel",
			err:      ErrProjectNotFound,
			msg:      "resolving latest release",
			expected: "resolving latest release: project not found",
		},
		{
			name:     "wrap with empty message",
			err:      errors.New("walk aborted"),
			msg:      "",
			expected: ": walk aborted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Wrap(tt.err, tt.msg)
			if tt.err == nil {
				if result != nil {
					t.Errorf("Expected nil, got %v", result)
				}
				return
			}
			if result.Error() != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, result.Error())
			}
			if !errors.Is(result, tt.err) {
				t.Errorf("Expected wrapped error to contain original error")
			}
		})
	}
}

func TestWrapf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		format   string
		args     []interface{}
		expected string
	}{
		{
			name:     "wrapf nil error",
			err:      nil,
			format:   "stat %s",
			args:     []interface{}{"demo-1.0.tar.gz"},
			expected: "",
		},
		{
			name:     "wrapf sentinel",
			err:      ErrManifestFormat,
			format:   "loading manifest %s",
			args:     []interface{}{"state/.pindex-manifest.json"},
			expected: "loading manifest state/.pindex-manifest.json: unsupported manifest format version",
		},
		{
			name:     "wrapf with multiple args",
			err:      ErrFileExists,
			format:   "upload of %s rejected after %d attempts",
			args:     []interface{}{"demo-1.0.tar.gz", 2},
			expected: "upload of demo-1.0.tar.gz rejected after 2 attempts: file already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Wrapf(tt.err, tt.format, tt.args...)
			if tt.err == nil {
				if result != nil {
					t.Errorf("Expected nil, got %v", result)
				}
				return
			}
			if result.Error() != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, result.Error())
			}
			if !errors.Is(result, tt.err) {
				t.Errorf("Expected wrapped error to contain original error")
			}
		})
	}
}
