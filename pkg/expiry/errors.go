package expiry

import "fmt"

// StorageError represents an error from the storage backend.
type StorageError struct {
	Backend   string // Storage backend type ("sqlite", "memory")
	Operation string // Operation that failed ("sweep", "ledger_begin", etc.)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// PolicyError represents a TTL policy lookup failure. An unknown category is
// a programmer error: every category is registered at startup.
type PolicyError struct {
	Category Category
	Cause    error
}

// Error implements the error interface.
func (e *PolicyError) Error() string {
	return fmt.Sprintf("policy error [category=%s]: %v", e.Category, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *PolicyError) Unwrap() error {
	return e.Cause
}

// NewPolicyError creates a new PolicyError.
func NewPolicyError(category Category, cause error) *PolicyError {
	return &PolicyError{Category: category, Cause: cause}
}

// ReconcileError represents a failure of a whole reconciler operation, as
// opposed to the per-file failures accumulated inside a
// CleanupOperationResult.
type ReconcileError struct {
	Operation string
	Cause     error
}

// Error implements the error interface.
func (e *ReconcileError) Error() string {
	return fmt.Sprintf("reconcile error [operation=%s]: %v", e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ReconcileError) Unwrap() error {
	return e.Cause
}

// NewReconcileError creates a new ReconcileError.
func NewReconcileError(operation string, cause error) *ReconcileError {
	return &ReconcileError{Operation: operation, Cause: cause}
}
