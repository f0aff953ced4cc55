package faultline

import "testing"

func TestClassify_DefaultRules(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name         string
		errType      string
		message      string
		wantCategory Category
		wantSeverity Severity
	}{
		{"panic type", "panic", "runtime error: index out of range", CategoryUnknown, SeverityCritical},
		{"fatal message", "Error", "fatal: database cluster lost", CategoryUnknown, SeverityFatal},
		{"out of memory", "OOMError", "out of memory", CategoryMemory, SeverityCritical},
		{"auth failure", "AuthError", "token rejected", CategoryAuthentication, SeverityError},
		{"unauthorized message", "Error", "request unauthorized", CategoryAuthentication, SeverityError},
		{"validation", "ValidationError", "field is required", CategoryValidation, SeverityWarning},
		{"invalid message", "Error", "invalid cursor position", CategoryValidation, SeverityWarning},
		{"timeout", "TimeoutError", "operation took too long", CategoryTimeout, SeverityError},
		{"deadline message", "Error", "context deadline exceeded", CategoryTimeout, SeverityError},
		{"network", "ConnError", "connection refused", CategoryNetwork, SeverityError},
		{"dns message", "Error", "dns lookup failed", CategoryNetwork, SeverityError},
		{"api", "HTTPError", "bad gateway from upstream", CategoryAPI, SeverityError},
		{"file io", "PathError", "open /etc/app: permission denied", CategoryFileIO, SeverityError},
		{"parsing", "SyntaxError", "unexpected token", CategoryParsing, SeverityError},
		{"json message", "Error", "json: cannot unmarshal string", CategoryParsing, SeverityError},
		{"configuration", "ConfigError", "missing env DATABASE_URL", CategoryConfiguration, SeverityError},
		{"dependency", "ModuleError", "version mismatch for libfoo", CategoryDependency, SeverityError},
		{"business logic", "InvariantError", "balance below zero", CategoryBusinessLogic, SeverityError},
		{"unmatched", "WeirdError", "something odd happened", CategoryUnknown, SeverityError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			category, severity := c.Classify(tt.errType, tt.message)
			if category != tt.wantCategory {
				t.Errorf("Classify(%q, %q) category = %q, want %q", tt.errType, tt.message, category, tt.wantCategory)
			}
			if severity != tt.wantSeverity {
				t.Errorf("Classify(%q, %q) severity = %q, want %q", tt.errType, tt.message, severity, tt.wantSeverity)
			}
		})
	}
}

func TestClassify_CaseInsensitive(t *testing.T) {
	c := NewClassifier()

	c1, s1 := c.Classify("CONNERROR", "CONNECTION REFUSED")
	c2, s2 := c.Classify("connerror", "connection refused")

	if c1 != c2 || s1 != s2 {
		t.Errorf("classification should be case-insensitive: (%q,%q) vs (%q,%q)", c1, s1, c2, s2)
	}
	if c1 != CategoryNetwork {
		t.Errorf("category = %q, want %q", c1, CategoryNetwork)
	}
}

func TestClassify_EscalationBeatsCategory(t *testing.T) {
	c := NewClassifier()

	// A panic during a network call is still critical, not a plain
	// network error.
	category, severity := c.Classify("panic", "connection reset during flush")
	if severity != SeverityCritical {
		t.Errorf("severity = %q, want %q", severity, SeverityCritical)
	}
	if category != CategoryUnknown {
		t.Errorf("category = %q, want %q", category, CategoryUnknown)
	}
}

func TestClassify_CustomRules(t *testing.T) {
	c := NewClassifier(Rule{
		Category: CategoryBusinessLogic,
		Severity: SeverityCritical,
		Messages: []string{"ledger"},
	})

	category, severity := c.Classify("Error", "ledger drift detected")
	if category != CategoryBusinessLogic || severity != SeverityCritical {
		t.Errorf("custom rule not applied: got (%q, %q)", category, severity)
	}

	// A custom rule list replaces the defaults entirely.
	category, severity = c.Classify("ConnError", "connection refused")
	if category != CategoryUnknown || severity != SeverityError {
		t.Errorf("fallback = (%q, %q), want (unknown, error)", category, severity)
	}
}

func TestClassify_FirstMatchWins(t *testing.T) {
	c := NewClassifier()

	// "timeout" and "connection" both appear; the timeout rule is ordered
	// first.
	category, _ := c.Classify("Error", "timeout waiting for connection")
	if category != CategoryTimeout {
		t.Errorf("category = %q, want %q", category, CategoryTimeout)
	}
}
