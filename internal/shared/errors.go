package shared

import "fmt"

// OpsError is the base error type for all agentops errors.
type OpsError struct {
	Message string
	Code    string
	Details map[string]interface{}
}

func (e *OpsError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewOpsError creates a new OpsError.
func NewOpsError(message, code string, details map[string]interface{}) *OpsError {
	return &OpsError{
		Message: message,
		Code:    code,
		Details: details,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	OpsError
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string, details map[string]interface{}) *ValidationError {
	return &ValidationError{
		OpsError: OpsError{
			Message: message,
			Code:    "VALIDATION_ERROR",
			Details: details,
		},
	}
}

// ExecutionError represents a command or handler execution error.
type ExecutionError struct {
	OpsError
}

// NewExecutionError creates a new ExecutionError.
func NewExecutionError(message string, details map[string]interface{}) *ExecutionError {
	return &ExecutionError{
		OpsError: OpsError{
			Message: message,
			Code:    "EXECUTION_ERROR",
			Details: details,
		},
	}
}

// PermissionError represents a denied shell execution request.
type PermissionError struct {
	OpsError
}

// NewPermissionError creates a new PermissionError.
func NewPermissionError(message string, details map[string]interface{}) *PermissionError {
	return &PermissionError{
		OpsError: OpsError{
			Message: message,
			Code:    "PERMISSION_ERROR",
			Details: details,
		},
	}
}

// StorageError represents a history store error.
type StorageError struct {
	OpsError
}

// NewStorageError creates a new StorageError.
func NewStorageError(message string, details map[string]interface{}) *StorageError {
	return &StorageError{
		OpsError: OpsError{
			Message: message,
			Code:    "STORAGE_ERROR",
			Details: details,
		},
	}
}
