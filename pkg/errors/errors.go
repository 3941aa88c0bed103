package errors

import (
	"errors"
	"fmt"
)

// Common error types.
var (
	// Config errors.
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("failed to parse config")
	ErrConfigValidation  = fmt.Errorf("invalid configuration")
	ErrConfigEncode      = fmt.Errorf("failed to encode config")
	ErrConfigDirectory   = fmt.Errorf("failed to create config directory")

	// Storage errors.
	ErrStorageRoot    = fmt.Errorf("storage root is not usable")
	ErrInvalidPath    = fmt.Errorf("invalid path")
	ErrFileExists     = fmt.Errorf("file already exists")
	ErrFileNotFound   = fmt.Errorf("file not found")
	ErrManifestFormat = fmt.Errorf("unsupported manifest format version")
	ErrManifestDecode = fmt.Errorf("failed to decode scan manifest")

	// Catalog errors.
	ErrNotInitialized  = fmt.Errorf("catalog not initialized")
	ErrProjectNotFound = fmt.Errorf("project not found")

	// Hook errors.
	ErrHookEventEmpty = fmt.Errorf("hook event cannot be empty")
	ErrHookExecution  = fmt.Errorf("error executing hook")
	ErrHookScript     = fmt.Errorf("hook script error")
	ErrHookLoad       = fmt.Errorf("failed to load hook")
)

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
