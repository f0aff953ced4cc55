// record.go defines the canonical error record data structures for faultline.

package faultline

import "time"

// Severity indicates the severity level of a tracked error.
type Severity string

const (
	// SeverityDebug indicates diagnostic noise that is tracked but rarely acted on.
	SeverityDebug Severity = "debug"

	// SeverityInfo indicates an informational condition worth recording.
	SeverityInfo Severity = "info"

	// SeverityWarning indicates a non-fatal issue that may need attention.
	SeverityWarning Severity = "warning"

	// SeverityError indicates a recoverable error that caused an operation to fail.
	SeverityError Severity = "error"

	// SeverityCritical indicates a severe failure such as a panic or resource exhaustion.
	SeverityCritical Severity = "critical"

	// SeverityFatal indicates an unrecoverable failure of the whole process.
	SeverityFatal Severity = "fatal"
)

// Category classifies an error by its failure domain.
type Category string

const (
	CategoryAuthentication Category = "authentication"
	CategoryAPI            Category = "api"
	CategoryNetwork        Category = "network"
	CategoryFileIO         Category = "file_io"
	CategoryParsing        Category = "parsing"
	CategoryMemory         Category = "memory"
	CategoryTimeout        Category = "timeout"
	CategoryConfiguration  Category = "configuration"
	CategoryDependency     Category = "dependency"
	CategoryBusinessLogic  Category = "business_logic"
	CategoryValidation     Category = "validation"
	CategoryUnknown        Category = "unknown"
)

// ErrorContext carries call-site provenance for an error occurrence.
// All fields are optional; empty values are omitted from exports.
type ErrorContext struct {
	// FunctionName is the function where the error occurred.
	FunctionName string `json:"function_name,omitempty"`

	// ModuleName is the package or module containing the function.
	ModuleName string `json:"module_name,omitempty"`

	// FilePath is the source file where the error occurred.
	FilePath string `json:"file_path,omitempty"`

	// LineNumber is the source line where the error occurred.
	LineNumber int `json:"line_number,omitempty"`

	// UserID identifies the end user affected by the error.
	UserID string `json:"user_id,omitempty"`

	// SessionID identifies the session in which the error occurred.
	SessionID string `json:"session_id,omitempty"`

	// RequestID identifies the request being served when the error occurred.
	RequestID string `json:"request_id,omitempty"`

	// AdditionalData contains arbitrary key-value pairs for extra context.
	AdditionalData map[string]string `json:"additional_data,omitempty"`
}

// ErrorRecord is the canonical representation of a tracked error group.
// One record exists per fingerprint; repeated occurrences increment Count.
type ErrorRecord struct {
	// Identity fields

	// ID is a unique identifier assigned when the fingerprint is first seen (UUID).
	ID string `json:"id"`

	// Fingerprint is the deterministic hash used to group similar errors.
	Fingerprint string `json:"fingerprint"`

	// Error details

	// Severity indicates how serious the error is.
	Severity Severity `json:"severity"`

	// Category indicates the failure domain of the error.
	Category Category `json:"category"`

	// Message is the human-readable error message (sanitized).
	Message string `json:"message"`

	// ErrorType is the error or exception type name.
	ErrorType string `json:"exception_type"`

	// StackTrace is the sanitized, truncated stack trace from the first occurrence.
	StackTrace string `json:"stack_trace,omitempty"`

	// Aggregation state

	// Count is the number of occurrences observed for this fingerprint.
	Count int `json:"count"`

	// FirstSeen is when the first occurrence was tracked.
	FirstSeen time.Time `json:"first_seen"`

	// LastSeen is when the most recent occurrence was tracked.
	LastSeen time.Time `json:"last_seen"`

	// Resolution state

	// Resolved marks the error as addressed. A new occurrence reopens it.
	Resolved bool `json:"resolved"`

	// ResolutionNote explains how the error was resolved.
	ResolutionNote string `json:"resolution_note,omitempty"`

	// ResolvedAt is when the error was marked resolved.
	// Uses a pointer to distinguish "not resolved" from "zero value".
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`

	// Context is the call-site context from the most recent occurrence.
	Context ErrorContext `json:"context"`
}

// Alert describes a threshold crossing detected by the tracker.
type Alert struct {
	// Name identifies the alert condition (error_rate, critical_errors, error_spike).
	Name string `json:"name"`

	// Severity indicates how urgent the alert is.
	Severity Severity `json:"severity"`

	// Message is a human-readable description of the condition.
	Message string `json:"message"`

	// Timestamp is when the condition was detected.
	Timestamp time.Time `json:"timestamp"`

	// Details carries condition-specific values (rates, counts, thresholds).
	Details map[string]any `json:"details,omitempty"`
}
