package internal

import "fmt"

// ProvisionError represents a failure while preparing the worker runtime.
// It is fatal for the StartServer call that triggered it.
type ProvisionError struct {
	Step string // "runtime", "environment", "package"
	Err  error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provision error [%s]: %v", e.Step, e.Err)
}

func (e *ProvisionError) Unwrap() error {
	return e.Err
}

// StoreError represents errors accessing the session store.
type StoreError struct {
	Op  string // "open", "save", "load", "list", "delete"
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ExportError represents errors during transcript export.
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
