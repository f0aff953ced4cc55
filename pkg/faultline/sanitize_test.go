package faultline

import (
	"strings"
	"testing"
)

func TestSanitizeMessage_TruncatesWithMarker(t *testing.T) {
	s := NewSanitizer(SanitizerConfig{MaxMessageLen: 50})

	long := strings.Repeat("a", 200)
	got := s.SanitizeMessage(long)

	if len(got) != 50 {
		t.Errorf("sanitized length = %d, want 50", len(got))
	}
	if !strings.HasSuffix(got, "...[TRUNCATED]") {
		t.Errorf("sanitized message should end with the truncation marker, got %q", got[len(got)-20:])
	}
}

func TestSanitizeMessage_ShortMessageUntouched(t *testing.T) {
	s := NewSanitizer(DefaultSanitizerConfig())

	msg := "connection refused"
	if got := s.SanitizeMessage(msg); got != msg {
		t.Errorf("SanitizeMessage(%q) = %q, want unchanged", msg, got)
	}
}

func TestSanitizeStack_NormalizesPaths(t *testing.T) {
	s := NewSanitizer(DefaultSanitizerConfig())

	stack := `goroutine 1 [running]:
main.handler()
	/home/alice/src/app/main.go:42 +0x123
main.main()
	/Users/bob/work/app/main.go:10 +0x456`

	got := s.SanitizeStack(stack)

	if strings.Contains(got, "alice") || strings.Contains(got, "bob") {
		t.Errorf("user directories should be rewritten, got %q", got)
	}
	if !strings.Contains(got, "/[PATH]/src/app/main.go") {
		t.Errorf("expected normalized path marker, got %q", got)
	}
}

func TestSanitizeStack_MasksAddresses(t *testing.T) {
	s := NewSanitizer(DefaultSanitizerConfig())

	got := s.SanitizeStack("main.handler(0x1234abcd)\n\t/app/main.go:42 +0x100")

	if strings.Contains(got, "0x1234abcd") || strings.Contains(got, "0x100") {
		t.Errorf("addresses should be masked, got %q", got)
	}
	if !strings.Contains(got, "0x...") {
		t.Errorf("expected address mask, got %q", got)
	}
}

func TestSanitizeStack_Bounded(t *testing.T) {
	s := NewSanitizer(SanitizerConfig{MaxStackLen: 100})

	got := s.SanitizeStack(strings.Repeat("frame\n", 100))
	if len(got) != 100 {
		t.Errorf("sanitized stack length = %d, want 100", len(got))
	}
}

func TestSanitizeStack_EmptyStack(t *testing.T) {
	s := NewSanitizer(DefaultSanitizerConfig())

	if got := s.SanitizeStack(""); got != "" {
		t.Errorf("SanitizeStack(\"\") = %q, want empty", got)
	}
}
