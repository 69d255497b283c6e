package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/calderdata/intentgate/internal/intent"
	"github.com/calderdata/intentgate/internal/policy"
)

// LoadResult contains the results of loading templates from a directory.
type LoadResult struct {
	Intents   []intent.Intent
	FileCount int // Number of template files found
}

// LoadError represents an error that occurred during template or policy loading.
type LoadError struct {
	Code    string
	Message string
	Path    string // Offending path if available
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadIntents loads every query template (with its metadata sidecar) under dir.
// Per-template problems stay on the intents themselves rather than failing the
// load: the gate reports malformed templates individually instead of aborting
// the run. Only directory-level problems are errors here.
func LoadIntents(dir string) (*LoadResult, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("template directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing template directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	intents, err := intent.LoadDir(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(intents) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no %s templates found in %s", intent.TemplateExt, dir)}
	}

	return &LoadResult{Intents: intents, FileCount: len(intents)}, nil
}

// LoadPolicyFile loads and validates a policy document. An empty path returns
// a nil document: structural and contract checks still run, policy rules are
// simply not enforced. A malformed policy is always an error, never a
// per-template finding.
func LoadPolicyFile(path string) (*policy.Document, error) {
	if path == "" {
		return nil, nil
	}
	doc, err := policy.Load(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodePolicy, Message: err.Error(), Path: path}
	}
	return doc, nil
}

// outputLoadError renders a load-stage error and converts it to a command
// error (exit code 2). Load problems are the caller's inputs being wrong,
// not the gate finding violations.
func outputLoadError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
		return NewExitError(ExitCommandError, loadErr.Message)
	}
	_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
	return NewExitError(ExitCommandError, err.Error())
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No template files found
	ErrCodePolicy      = "E004" // Policy load/validation failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeRegistry    = "E006" // Registry open/write error
	ErrCodeWriteFailed = "E007" // File write error
)
