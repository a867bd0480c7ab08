package taxonomy

import "strings"

// LintConfig controls the YAML lint pass applied to version 2+ files.
type LintConfig struct {
	// MaxLineLength is the longest allowed line. Lines over it are
	// reported as warnings, or as errors in strict mode.
	MaxLineLength int
	// Strict promotes lint findings from warnings to errors.
	Strict bool
}

// DefaultLintConfig matches the relaxed rules taxonomy files have always
// been linted with.
func DefaultLintConfig() LintConfig {
	return LintConfig{MaxLineLength: 120}
}

// lintContent applies the lint rules to the raw file content.
func (p *Parser) lintContent(content []byte, t *Taxonomy) {
	if p.lint.MaxLineLength <= 0 {
		return
	}

	for i, line := range strings.Split(string(content), "\n") {
		length := len([]rune(line))
		if length <= p.lint.MaxLineLength {
			continue
		}
		if p.lint.Strict {
			t.Errorf(i+1, p.lint.MaxLineLength+1, "", "line too long (%d > %d characters)", length, p.lint.MaxLineLength)
		} else {
			t.Warnf(i+1, p.lint.MaxLineLength+1, "", "line too long (%d > %d characters)", length, p.lint.MaxLineLength)
		}
	}
}
