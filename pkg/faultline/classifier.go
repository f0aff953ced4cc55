// classifier.go assigns categories and severities to errors from an ordered
// rule list.

package faultline

import "strings"

// Rule maps error-type and message keywords to a category and severity.
// A rule matches when any Types keyword appears in the error type or any
// Messages keyword appears in the message; matching is case-insensitive.
type Rule struct {
	Category Category
	Severity Severity

	// Types are substrings matched against the error type name.
	Types []string

	// Messages are substrings matched against the error message.
	Messages []string
}

func (r Rule) matches(errType, message string) bool {
	for _, kw := range r.Types {
		if strings.Contains(errType, kw) {
			return true
		}
	}
	for _, kw := range r.Messages {
		if strings.Contains(message, kw) {
			return true
		}
	}
	return false
}

// Classifier assigns a category and severity to each error.
// Rules are evaluated in order; the first match wins. Errors matching no
// rule fall back to (CategoryUnknown, SeverityError).
type Classifier struct {
	rules []Rule
}

// NewClassifier creates a classifier with the given rules.
// With no rules, DefaultRules is used.
func NewClassifier(rules ...Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Classifier{rules: rules}
}

// Classify determines the category and severity for an error.
// It is pure and deterministic: equal inputs always yield equal outputs.
func (c *Classifier) Classify(errType, message string) (Category, Severity) {
	typeLower := strings.ToLower(errType)
	msgLower := strings.ToLower(message)

	for _, rule := range c.rules {
		if rule.matches(typeLower, msgLower) {
			return rule.Category, rule.Severity
		}
	}

	return CategoryUnknown, SeverityError
}

// DefaultRules returns the standard classification table.
// Escalation rules (panics, fatal conditions, memory exhaustion) are ordered
// before the broader category tables so they are never shadowed.
func DefaultRules() []Rule {
	return []Rule{
		{
			Category: CategoryUnknown,
			Severity: SeverityCritical,
			Types:    []string{"panic"},
		},
		{
			Category: CategoryUnknown,
			Severity: SeverityFatal,
			Messages: []string{"fatal", "emergency", "system failure"},
		},
		{
			Category: CategoryMemory,
			Severity: SeverityCritical,
			Types:    []string{"outofmemory", "memoryerror", "oomerror"},
			Messages: []string{"out of memory", "cannot allocate", "oom killed", "heap exhausted"},
		},
		{
			Category: CategoryAuthentication,
			Severity: SeverityError,
			Types:    []string{"autherror", "authenticationerror", "credentialerror"},
			Messages: []string{"authentication", "unauthorized", "login failed", "credential", "401"},
		},
		{
			Category: CategoryValidation,
			Severity: SeverityWarning,
			Types:    []string{"validationerror", "schemaerror"},
			Messages: []string{"validation", "invalid", "schema", "constraint", "400"},
		},
		{
			Category: CategoryTimeout,
			Severity: SeverityError,
			Types:    []string{"timeouterror", "deadlineexceeded"},
			Messages: []string{"timeout", "timed out", "deadline", "time limit"},
		},
		{
			Category: CategoryNetwork,
			Severity: SeverityError,
			Types:    []string{"networkerror", "connectionerror", "dnserror"},
			Messages: []string{"network", "connection", "dns", "socket", "unreachable", "refused"},
		},
		{
			Category: CategoryAPI,
			Severity: SeverityError,
			Types:    []string{"apierror", "httperror", "statuserror"},
			Messages: []string{"api", "http", "endpoint", "bad gateway", "502", "503", "504"},
		},
		{
			Category: CategoryFileIO,
			Severity: SeverityError,
			Types:    []string{"patherror", "ioerror", "fileerror", "linkerror"},
			Messages: []string{"file", "no such file", "permission denied", "disk", "read-only", "is a directory"},
		},
		{
			Category: CategoryParsing,
			Severity: SeverityError,
			Types:    []string{"parseerror", "syntaxerror", "unmarshaltypeerror", "decodeerror"},
			Messages: []string{"parse", "json", "xml", "csv", "decode", "unmarshal", "syntax"},
		},
		{
			Category: CategoryConfiguration,
			Severity: SeverityError,
			Types:    []string{"configerror"},
			Messages: []string{"config", "missing env", "environment variable", "setting", "parameter"},
		},
		{
			Category: CategoryDependency,
			Severity: SeverityError,
			Types:    []string{"dependencyerror", "moduleerror"},
			Messages: []string{"dependency", "module", "package", "version mismatch", "import"},
		},
		{
			Category: CategoryBusinessLogic,
			Severity: SeverityError,
			Types:    []string{"businesserror", "domainerror", "invarianterror"},
			Messages: []string{"business rule", "domain", "invariant"},
		},
	}
}
