package taxonomy

import (
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/jingkaihe/taxonomy/pkg/schema"
)

// QnaFileName is the only file name taxonomy contribution files may use.
const QnaFileName = "qna.yaml"

// DefaultFolders are the taxonomy folders, which double as the schema
// document names used to validate files found under them.
var DefaultFolders = []string{"compositional_skills", "knowledge"}

// Parser parses qna.yaml files into Taxonomy objects.
type Parser struct {
	folders       []string
	schemaVersion int
	versionSet    bool
	format        MessageFormat
	lint          LintConfig
	out           io.Writer
}

// Option configures a Parser.
type Option func(*Parser)

// WithFolders overrides the taxonomy folder names.
func WithFolders(folders ...string) Option {
	return func(p *Parser) {
		p.folders = folders
	}
}

// WithSchemaVersion pins the schema version used for validation. A version
// below 1 means each file is validated against the version its own
// "version" key declares. When this option is not given, the latest
// embedded schema version is used.
func WithSchemaVersion(version int) Option {
	return func(p *Parser) {
		p.schemaVersion = version
		p.versionSet = true
	}
}

// WithMessageFormat sets how findings are reported.
func WithMessageFormat(format MessageFormat) Option {
	return func(p *Parser) {
		p.format = format
	}
}

// WithLint overrides the lint configuration.
func WithLint(config LintConfig) Option {
	return func(p *Parser) {
		p.lint = config
	}
}

// WithOutput redirects standard and github format messages. Defaults to
// os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(p *Parser) {
		p.out = w
	}
}

// NewParser creates a Parser.
func NewParser(opts ...Option) (*Parser, error) {
	p := &Parser{
		folders: DefaultFolders,
		format:  FormatAuto,
		lint:    DefaultLintConfig(),
		out:     os.Stdout,
	}
	for _, opt := range opts {
		opt(p)
	}

	if !p.versionSet {
		latest, err := schema.Latest()
		if err != nil {
			return nil, err
		}
		p.schemaVersion = latest
	}
	return p, nil
}

// Parse parses one qna.yaml file, lints it, and validates it against the
// selected schema version. Findings are recorded on the returned Taxonomy;
// the error return is reserved for internal failures such as a broken
// embedded schema repository.
func (p *Parser) Parse(path string) (*Taxonomy, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve path %s", path)
	}

	t := &Taxonomy{
		Path:    p.taxonomyPath(absPath),
		RelPath: relPath(absPath),
		format:  p.format.resolve(),
		out:     p.out,
	}

	info, err := os.Stat(absPath)
	if err != nil || info.IsDir() {
		t.Errorf(1, 1, "", "The file %q does not exist or is not a file", absPath)
		return t, nil
	}

	if name := filepath.Base(absPath); name != QnaFileName {
		t.Errorf(1, 1, "", "Taxonomy file must be named %q; %q is not a valid name", QnaFileName, name)
		return t, nil
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", absPath)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(content, &root); err != nil {
		t.Errorf(1, 1, "", "The file is not valid YAML: %v", err)
		return t, nil
	}

	if root.Kind == 0 || len(root.Content) == 0 {
		t.Warnf(1, 1, "", "The file is empty")
		return t, nil
	}

	doc := root.Content[0]
	if doc.Kind == yaml.ScalarNode && doc.Tag == "!!null" {
		t.Warnf(1, 1, "", "The file is empty")
		return t, nil
	}
	if doc.Kind != yaml.MappingNode {
		t.Errorf(doc.Line, doc.Column, "", "The file is not valid. The top-level element is not an object with key-value pairs.")
		return t, nil
	}

	var parsed map[string]any
	if err := root.Decode(&parsed); err != nil {
		t.Errorf(1, 1, "", "The file is not valid YAML: %v", err)
		return t, nil
	}

	t.Version = p.documentVersion(parsed)
	t.Parsed = parsed

	// Version 1 files predate the lint rules.
	if t.Version > 1 {
		p.lintContent(content, t)
	}

	if err := p.validate(t, doc); err != nil {
		return nil, err
	}
	return t, nil
}

// documentVersion resolves the schema version for a parsed document. A
// pinned parser version wins; otherwise the document's own "version" key is
// used, defaulting to 1 so that files predating the version key still
// validate against the original schema.
func (p *Parser) documentVersion(parsed map[string]any) int {
	if p.schemaVersion >= 1 {
		return p.schemaVersion
	}

	switch v := parsed["version"].(type) {
	case int:
		return v
	case string:
		// Schema validation will complain about the type; parse it anyway
		// so the right schema version does the complaining.
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 1
}

// validate checks the parsed document against its schema document and
// records every violation with its position in the YAML source.
func (p *Parser) validate(t *Taxonomy, doc *yaml.Node) error {
	schemaName := t.Path
	if i := strings.IndexByte(schemaName, '/'); i >= 0 {
		schemaName = schemaName[:i]
	}
	if !slices.Contains(p.folders, schemaName) {
		if _, ok := t.Parsed["document"]; ok {
			schemaName = "knowledge"
		} else {
			schemaName = "compositional_skills"
		}
	}

	compiled, err := schema.Compile(t.Version, schemaName+".json")
	if err != nil {
		var ce *schema.CompileError
		if errors.As(err, &ce) {
			t.Errorf(1, 1, "", "Cannot load schema document v%d/%s: %v", ce.SchemaVersion, ce.Name, ce.Unwrap())
			return nil
		}
		return err
	}

	violations, err := schema.Validate(compiled, t.Parsed)
	if err != nil {
		return err
	}

	for _, v := range violations {
		line, col := locate(doc, v.InstanceLocation)
		t.Errorf(line, col, pointerToPath(v.InstanceLocation), "%s", v.Message)
	}
	return nil
}

// taxonomyPath returns the path of the file starting at its taxonomy
// folder, or the absolute path when the file is outside every folder.
func (p *Parser) taxonomyPath(absPath string) string {
	parts := strings.Split(filepath.ToSlash(absPath), "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if slices.Contains(p.folders, parts[i]) {
			return strings.Join(parts[i:], "/")
		}
	}
	return absPath
}

// relPath makes the path relative to the working directory when the file
// lives under it.
func relPath(absPath string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return absPath
	}
	rel, err := filepath.Rel(cwd, absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return absPath
	}
	return rel
}
