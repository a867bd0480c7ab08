package taxonomy

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSkillYAML = `version: 3
created_by: alice
task_description: Teach the model to write short poems
seed_examples:
  - question: Write a haiku about autumn leaves.
    answer: Crimson leaves drifting, resting on the quiet pond, autumn exhales slow.
  - question: Write a haiku about the sea.
    answer: Waves fold into foam, the horizon keeps its line, gulls stitch sky to sea.
  - question: Write a haiku about morning coffee.
    answer: Steam curls from the cup, the house still wrapped in silence, day begins with warmth.
  - question: Write a haiku about a city at night.
    answer: Windows burn like stars, the streets hum their low chorus, night wears neon clothes.
  - question: Write a haiku about snowfall.
    answer: Snow erases roads, each branch holds its white burden, the world speaks softly.
`

const validKnowledgeYAML = `version: 3
created_by: alice
domain: astronomy
document_outline: An overview of the planets of the solar system
seed_examples:
  - context: Mercury is the smallest planet and the closest to the Sun.
    questions_and_answers:
      - question: Which planet is closest to the Sun?
        answer: Mercury.
      - question: Is Mercury larger than Earth?
        answer: No, Mercury is the smallest planet.
      - question: What is the smallest planet?
        answer: Mercury.
  - context: Venus is the second planet and the hottest in the solar system.
    questions_and_answers:
      - question: Which planet is the hottest?
        answer: Venus.
      - question: What is the second planet from the Sun?
        answer: Venus.
      - question: Is Venus hotter than Mercury?
        answer: Yes, Venus is the hottest planet.
  - context: Earth is the third planet and the only one known to harbor life.
    questions_and_answers:
      - question: Which planet harbors life?
        answer: Earth.
      - question: What is the third planet from the Sun?
        answer: Earth.
      - question: Is Earth known to harbor life?
        answer: Yes.
  - context: Mars is the fourth planet, known as the red planet.
    questions_and_answers:
      - question: Which planet is called the red planet?
        answer: Mars.
      - question: What is the fourth planet from the Sun?
        answer: Mars.
      - question: Why is Mars red?
        answer: Iron oxide on its surface gives it a reddish appearance.
  - context: Jupiter is the fifth planet and the largest in the solar system.
    questions_and_answers:
      - question: Which planet is the largest?
        answer: Jupiter.
      - question: What is the fifth planet from the Sun?
        answer: Jupiter.
      - question: Is Jupiter larger than Earth?
        answer: Yes, by a wide margin.
  - context: Saturn is the sixth planet, famous for its ring system.
    questions_and_answers:
      - question: Which planet is famous for its rings?
        answer: Saturn.
      - question: What is the sixth planet from the Sun?
        answer: Saturn.
      - question: Are Saturn's rings made of rock only?
        answer: No, they are mostly ice with some rocky debris.
document:
  repo: https://github.com/example/astronomy-docs
  commit: 0123456789abcdef0123456789abcdef01234567
  patterns:
    - solar-system*.md
`

const version1SkillYAML = `created_by: alice
seed_examples:
  - question: First question?
    answer: First answer.
  - question: Second question?
    answer: Second answer.
  - question: Third question?
    answer: Third answer.
  - question: Fourth question?
    answer: Fourth answer.
  - question: Fifth question?
    answer: Fifth answer.
`

// writeFile writes content at relPath under root, creating directories.
func writeFile(t *testing.T, root, relPath, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(relPath))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestParser(t *testing.T, buf *bytes.Buffer, opts ...Option) *Parser {
	t.Helper()
	opts = append([]Option{
		WithSchemaVersion(0),
		WithMessageFormat(FormatStandard),
		WithOutput(buf),
	}, opts...)
	parser, err := NewParser(opts...)
	require.NoError(t, err)
	return parser
}

func TestParseValidSkill(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeFile(t, tmpDir, "compositional_skills/writing/poetry/qna.yaml", validSkillYAML)

	var buf bytes.Buffer
	tax, err := newTestParser(t, &buf).Parse(path)
	require.NoError(t, err)

	assert.Zero(t, tax.Errors, "unexpected output:\n%s", buf.String())
	assert.Zero(t, tax.Warnings)
	assert.Equal(t, "compositional_skills/writing/poetry/qna.yaml", tax.Path)
	assert.Equal(t, 3, tax.Version)
	assert.Len(t, tax.Parsed["seed_examples"], 5)
	assert.Equal(t, "alice", tax.Parsed["created_by"])
}

func TestParseValidKnowledge(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeFile(t, tmpDir, "knowledge/science/astronomy/qna.yaml", validKnowledgeYAML)

	var buf bytes.Buffer
	tax, err := newTestParser(t, &buf).Parse(path)
	require.NoError(t, err)

	assert.Zero(t, tax.Errors, "unexpected output:\n%s", buf.String())
	assert.Zero(t, tax.Warnings)
	assert.Equal(t, "knowledge/science/astronomy/qna.yaml", tax.Path)
	assert.Len(t, tax.Parsed["seed_examples"], 6)
}

func TestParseMissingFile(t *testing.T) {
	tmpDir := t.TempDir()

	var buf bytes.Buffer
	tax, err := newTestParser(t, &buf).Parse(filepath.Join(tmpDir, "knowledge/missing/qna.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 1, tax.Errors)
	assert.Zero(t, tax.Warnings)
	assert.Contains(t, buf.String(), "does not exist or is not a file")
}

func TestParseWrongFileName(t *testing.T) {
	tests := []string{"knowledge/naming/qna.yml", "knowledge/naming/file.yaml"}
	for _, relPath := range tests {
		t.Run(filepath.Base(relPath), func(t *testing.T) {
			tmpDir := t.TempDir()
			path := writeFile(t, tmpDir, relPath, validKnowledgeYAML)

			var buf bytes.Buffer
			tax, err := newTestParser(t, &buf).Parse(path)
			require.NoError(t, err)

			assert.Equal(t, 1, tax.Errors)
			assert.Contains(t, buf.String(), `must be named "qna.yaml"`)
			assert.Contains(t, buf.String(), filepath.Base(relPath))
		})
	}
}

func TestParseEmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeFile(t, tmpDir, "compositional_skills/empty/qna.yaml", "")

	var buf bytes.Buffer
	tax, err := newTestParser(t, &buf).Parse(path)
	require.NoError(t, err)

	assert.Zero(t, tax.Errors)
	assert.Equal(t, 1, tax.Warnings)
	assert.Contains(t, buf.String(), "The file is empty")
}

func TestParseArrayTopLevel(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeFile(t, tmpDir, "compositional_skills/array/qna.yaml", "- a\n- b\n")

	var buf bytes.Buffer
	tax, err := newTestParser(t, &buf).Parse(path)
	require.NoError(t, err)

	assert.Equal(t, 1, tax.Errors)
	assert.Contains(t, buf.String(), "The file is not valid")
}

func TestParseUnparseableYAML(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeFile(t, tmpDir, "compositional_skills/broken/qna.yaml", "created_by: [unclosed\n")

	var buf bytes.Buffer
	tax, err := newTestParser(t, &buf).Parse(path)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, tax.Errors, 1)
	assert.Contains(t, buf.String(), "not valid YAML")
}

func TestParseIncompleteSkill(t *testing.T) {
	content := `version: 3
created_by: alice
task_description: Teach the model to write short poems
seed_examples:
  - question: Write a haiku about autumn leaves.
    answer: Crimson leaves drifting.
  - question: Write a haiku about the sea.
    answer: Waves fold into foam.
`
	tmpDir := t.TempDir()
	path := writeFile(t, tmpDir, "compositional_skills/incomplete/qna.yaml", content)

	var buf bytes.Buffer
	tax, err := newTestParser(t, &buf).Parse(path)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, tax.Errors, 1)
	assert.Contains(t, buf.String(), "[.seed_examples]")
	// The violation points into the seed_examples block
	assert.Contains(t, buf.String(), ":5:")
}

func TestParseExtraProperty(t *testing.T) {
	content := strings.Replace(validSkillYAML, "created_by: alice", "created_by: alice\ncreatedby: bob", 1)
	tmpDir := t.TempDir()
	path := writeFile(t, tmpDir, "compositional_skills/extra/qna.yaml", content)

	var buf bytes.Buffer
	tax, err := newTestParser(t, &buf).Parse(path)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, tax.Errors, 1, "closed-world violation expected:\n%s", buf.String())
}

func TestParseLongLines(t *testing.T) {
	long := strings.Repeat("x", 130)
	content := validSkillYAML + "# " + long + "\n"
	tmpDir := t.TempDir()
	path := writeFile(t, tmpDir, "compositional_skills/longline/qna.yaml", content)

	t.Run("warning by default", func(t *testing.T) {
		var buf bytes.Buffer
		tax, err := newTestParser(t, &buf).Parse(path)
		require.NoError(t, err)

		assert.Zero(t, tax.Errors)
		assert.Equal(t, 1, tax.Warnings)
		assert.Contains(t, buf.String(), "line too long")
	})

	t.Run("error in strict mode", func(t *testing.T) {
		var buf bytes.Buffer
		parser := newTestParser(t, &buf, WithLint(LintConfig{MaxLineLength: 120, Strict: true}))
		tax, err := parser.Parse(path)
		require.NoError(t, err)

		assert.Equal(t, 1, tax.Errors)
		assert.Zero(t, tax.Warnings)
	})

	t.Run("raised limit silences the finding", func(t *testing.T) {
		var buf bytes.Buffer
		parser := newTestParser(t, &buf, WithLint(LintConfig{MaxLineLength: 180}))
		tax, err := parser.Parse(path)
		require.NoError(t, err)

		assert.Zero(t, tax.Errors)
		assert.Zero(t, tax.Warnings)
	})
}

func TestParseVersion1Document(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeFile(t, tmpDir, "compositional_skills/legacy/qna.yaml", version1SkillYAML)

	var buf bytes.Buffer
	tax, err := newTestParser(t, &buf).Parse(path)
	require.NoError(t, err)

	assert.Equal(t, 1, tax.Version)
	assert.Zero(t, tax.Errors, "unexpected output:\n%s", buf.String())
	assert.Zero(t, tax.Warnings)
}

func TestParseVersion1DocumentAsVersion2(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeFile(t, tmpDir, "compositional_skills/legacy/qna.yaml", version1SkillYAML)

	var buf bytes.Buffer
	parser := newTestParser(t, &buf, WithSchemaVersion(2))
	tax, err := parser.Parse(path)
	require.NoError(t, err)

	assert.Equal(t, 2, tax.Version)
	assert.GreaterOrEqual(t, tax.Errors, 1)
	assert.Contains(t, buf.String(), "version")
}

func TestParseUnknownSchemaVersion(t *testing.T) {
	content := strings.Replace(validSkillYAML, "version: 3", "version: 99", 1)
	tmpDir := t.TempDir()
	path := writeFile(t, tmpDir, "compositional_skills/future/qna.yaml", content)

	var buf bytes.Buffer
	tax, err := newTestParser(t, &buf).Parse(path)
	require.NoError(t, err)

	assert.Equal(t, 99, tax.Version)
	assert.Equal(t, 1, tax.Errors)
	assert.Contains(t, buf.String(), "Cannot load schema document")
}

func TestParseKnowledgeFallbackOutsideFolders(t *testing.T) {
	// A file outside every taxonomy folder with a document key is
	// validated against the knowledge schema.
	tmpDir := t.TempDir()
	path := writeFile(t, tmpDir, "somewhere/qna.yaml", validKnowledgeYAML)

	var buf bytes.Buffer
	tax, err := newTestParser(t, &buf).Parse(path)
	require.NoError(t, err)

	assert.Zero(t, tax.Errors, "unexpected output:\n%s", buf.String())
	absPath, err := filepath.Abs(path)
	require.NoError(t, err)
	assert.Equal(t, absPath, tax.Path)
}

func TestParseGitHubFormat(t *testing.T) {
	content := `version: 3
created_by: alice
seed_examples: []
`
	tmpDir := t.TempDir()
	path := writeFile(t, tmpDir, "compositional_skills/bad/qna.yaml", content)

	var buf bytes.Buffer
	parser := newTestParser(t, &buf, WithMessageFormat(FormatGitHub))
	tax, err := parser.Parse(path)
	require.NoError(t, err)

	require.GreaterOrEqual(t, tax.Errors, 1)
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		assert.Regexp(t, `^::(error|warning) file=.+,line=\d+,col=\d+::`, line)
	}
}

func TestNewParserDefaultsToLatest(t *testing.T) {
	parser, err := NewParser()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, parser.schemaVersion, 1)
}
