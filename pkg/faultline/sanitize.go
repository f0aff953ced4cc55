// sanitize.go bounds and masks messages and stack traces before storage.

package faultline

import "regexp"

// SanitizerConfig controls sanitization behavior.
type SanitizerConfig struct {
	// MaxMessageLen is the maximum length for error messages (default: 4096).
	MaxMessageLen int `yaml:"maxMessageLen"`

	// MaxStackLen is the maximum length for stack traces (default: 32768).
	MaxStackLen int `yaml:"maxStackLen"`

	// NormalizePaths rewrites user-specific directories in stack traces (default: true).
	NormalizePaths bool `yaml:"normalizePaths"`

	// MaskAddresses rewrites memory addresses in stack traces (default: true).
	MaskAddresses bool `yaml:"maskAddresses"`
}

// DefaultSanitizerConfig returns production-safe defaults.
func DefaultSanitizerConfig() SanitizerConfig {
	return SanitizerConfig{
		MaxMessageLen:  4096,
		MaxStackLen:    32768,
		NormalizePaths: true,
		MaskAddresses:  true,
	}
}

// Path patterns to normalize in stack traces
var pathPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/home/[^/]+/`),
	regexp.MustCompile(`/Users/[^/]+/`),
	regexp.MustCompile(`C:\\Users\\[^\\]+\\`),
	regexp.MustCompile(`/tmp/[^/]+/`),
}

var addressPattern = regexp.MustCompile(`0x[0-9a-fA-F]+`)

// Sanitizer bounds and masks record fields before they reach the aggregator
// and sinks.
type Sanitizer struct {
	cfg SanitizerConfig
}

// NewSanitizer creates a sanitizer with the given configuration.
func NewSanitizer(cfg SanitizerConfig) *Sanitizer {
	return &Sanitizer{cfg: cfg}
}

// SanitizeMessage truncates an error message to the configured bound.
func (s *Sanitizer) SanitizeMessage(msg string) string {
	if s.cfg.MaxMessageLen > 0 && len(msg) > s.cfg.MaxMessageLen {
		return truncateWithMarker(msg, s.cfg.MaxMessageLen)
	}
	return msg
}

// SanitizeStack normalizes paths, masks addresses, and bounds a stack trace.
func (s *Sanitizer) SanitizeStack(trace string) string {
	if trace == "" {
		return trace
	}

	result := trace
	if s.cfg.NormalizePaths {
		for _, pattern := range pathPatterns {
			result = pattern.ReplaceAllString(result, "/[PATH]/")
		}
	}
	if s.cfg.MaskAddresses {
		result = addressPattern.ReplaceAllString(result, "0x...")
	}
	if s.cfg.MaxStackLen > 0 && len(result) > s.cfg.MaxStackLen {
		result = truncateWithMarker(result, s.cfg.MaxStackLen)
	}

	return result
}

// truncateWithMarker truncates a string and adds a truncation marker.
func truncateWithMarker(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	marker := "...[TRUNCATED]"
	if maxLen <= len(marker) {
		return marker[:maxLen]
	}
	return s[:maxLen-len(marker)] + marker
}
