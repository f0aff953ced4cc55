// normalize.go implements the message normalization policy used for
// fingerprinting. Normalization strips variable payloads from messages so
// that occurrences of the same defect group together.

package faultline

import (
	"regexp"
	"strings"
)

// NormalizerConfig controls which normalization rules apply.
// Each rule is independently switchable; the defaults enable all of them.
type NormalizerConfig struct {
	// Lowercase folds the message to lower case before matching.
	Lowercase bool `yaml:"lowercase"`

	// MaskUUIDs replaces UUID literals with "<uuid>".
	MaskUUIDs bool `yaml:"maskUUIDs"`

	// MaskHex replaces 0x-prefixed and long bare hex literals with "<hex>".
	MaskHex bool `yaml:"maskHex"`

	// MaskQuoted replaces single- and double-quoted payloads with "<str>".
	MaskQuoted bool `yaml:"maskQuoted"`

	// MaskNumbers replaces runs of digits with "#".
	MaskNumbers bool `yaml:"maskNumbers"`

	// MaxLength bounds the normalized message; longer input is cut.
	MaxLength int `yaml:"maxLength"`
}

// DefaultNormalizerConfig returns the policy applied when none is configured:
// lowercase, all masks on, 200-character bound.
func DefaultNormalizerConfig() NormalizerConfig {
	return NormalizerConfig{
		Lowercase:   true,
		MaskUUIDs:   true,
		MaskHex:     true,
		MaskQuoted:  true,
		MaskNumbers: true,
		MaxLength:   200,
	}
}

// Patterns for variable payloads (compiled once at package init).
// UUIDs must be masked before hex and numbers so their segments are not
// partially rewritten.
var (
	uuidPattern   = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
	hexPattern    = regexp.MustCompile(`0x[0-9a-fA-F]+|\b[0-9a-f]{16,}\b`)
	quotedPattern = regexp.MustCompile(`'[^']*'|"[^"]*"`)
	numberPattern = regexp.MustCompile(`\d+`)
)

// Normalizer rewrites messages according to a NormalizerConfig.
// It is a pure function of its configuration and safe for concurrent use.
type Normalizer struct {
	cfg NormalizerConfig
}

// NewNormalizer creates a normalizer with the given configuration.
func NewNormalizer(cfg NormalizerConfig) *Normalizer {
	return &Normalizer{cfg: cfg}
}

// Normalize applies the configured rewrite rules to a message.
// The same input and configuration always produce the same output.
func (n *Normalizer) Normalize(message string) string {
	result := message

	if n.cfg.Lowercase {
		result = strings.ToLower(result)
	}
	if n.cfg.MaskQuoted {
		result = quotedPattern.ReplaceAllString(result, "<str>")
	}
	if n.cfg.MaskUUIDs {
		result = uuidPattern.ReplaceAllString(result, "<uuid>")
	}
	if n.cfg.MaskHex {
		result = hexPattern.ReplaceAllString(result, "<hex>")
	}
	if n.cfg.MaskNumbers {
		result = numberPattern.ReplaceAllString(result, "#")
	}
	if n.cfg.MaxLength > 0 && len(result) > n.cfg.MaxLength {
		result = result[:n.cfg.MaxLength]
	}

	return result
}
