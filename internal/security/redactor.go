// Package security provides log redaction, per-client rate limiting and
// request payload validation.
package security

import (
	"regexp"
	"strings"
	"sync"
)

// RedactPlaceholder is the replacement string for redacted secrets.
const RedactPlaceholder = "***REDACTED***"

// RedactorService is the AppContext service name of the process-wide
// Redactor. Modules add the secrets they resolve to it.
const RedactorService = "security.redactor"

// secretKeyPattern matches map keys that likely contain secrets.
var secretKeyPattern = regexp.MustCompile(`(?i)(secret|token|password|key|dsn|credential)`)

// Redactor replaces secret values in strings and maps with a redaction placeholder.
// It supports both regex pattern matching (for known API key formats) and
// literal value matching (for credentials resolved at runtime, such as the
// configured provider keys). All methods are safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	patterns []*regexp.Regexp
	literals []string
}

// NewRedactor creates a Redactor pre-loaded with DefaultPatterns.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: DefaultPatterns(),
	}
}

// AddPattern adds a compiled regex pattern to the redactor.
func (r *Redactor) AddPattern(pattern *regexp.Regexp) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns = append(r.patterns, pattern)
}

// AddLiteral adds a literal secret value that should be redacted on sight.
// Empty strings and duplicates are ignored.
func (r *Redactor) AddLiteral(secret string) {
	if secret == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, lit := range r.literals {
		if lit == secret {
			return
		}
	}
	r.literals = append(r.literals, secret)
}

// Redact replaces all known secret patterns and literal values in s
// with RedactPlaceholder.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}

	r.mu.RLock()
	patterns := r.patterns
	literals := r.literals
	r.mu.RUnlock()

	// Literals first: a configured key may only partially match a pattern.
	for _, lit := range literals {
		if strings.Contains(s, lit) {
			s = strings.ReplaceAll(s, lit, RedactPlaceholder)
		}
	}

	for _, p := range patterns {
		s = p.ReplaceAllStringFunc(s, func(match string) string {
			sub := p.FindStringSubmatchIndex(match)
			// Patterns with a capture group only redact the group.
			if len(sub) >= 4 && sub[2] >= 0 {
				return match[:sub[2]] + RedactPlaceholder + match[sub[3]:]
			}
			return RedactPlaceholder
		})
	}

	return s
}

// RedactMap walks a map and replaces values whose keys match common secret
// key names (secret, token, password, key, dsn, credential). Keys ending in
// "_env" name a variable, not a secret, and are kept.
func (r *Redactor) RedactMap(m map[string]any) {
	for k, v := range m {
		if secretKeyPattern.MatchString(k) && !strings.HasSuffix(k, "_env") {
			if s, ok := v.(string); ok && s != "" {
				m[k] = RedactPlaceholder
				continue
			}
		}
		switch val := v.(type) {
		case map[string]any:
			r.RedactMap(val)
		case []any:
			for _, item := range val {
				if sub, ok := item.(map[string]any); ok {
					r.RedactMap(sub)
				}
			}
		case string:
			if redacted := r.Redact(val); redacted != val {
				m[k] = redacted
			}
		}
	}
}

// DefaultPatterns returns compiled regex patterns for the credential formats
// mindcanvas handles.
func DefaultPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		// Google AI Studio / Gemini: AIza + 35 chars
		regexp.MustCompile(`AIza[0-9A-Za-z_\-]{35}`),
		// OpenAI-style: sk-... (covers sk-proj- and sk-ant-)
		regexp.MustCompile(`sk-[a-zA-Z0-9_\-]{20,}`),
		// JWTs such as Supabase anon and service-role keys
		regexp.MustCompile(`eyJ[a-zA-Z0-9_\-]{10,}\.[a-zA-Z0-9_\-]{10,}\.[a-zA-Z0-9_\-]{10,}`),
		// Password component of a postgres:// DSN
		regexp.MustCompile(`postgres(?:ql)?://[^:/@\s]+:([^@\s]+)@`),
		// Bearer tokens in headers
		regexp.MustCompile(`(?i)bearer\s+([a-zA-Z0-9_\-\.=]{16,})`),
	}
}
