package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/taxonomy/pkg/logger"
	"github.com/jingkaihe/taxonomy/pkg/presenter"
	"github.com/jingkaihe/taxonomy/pkg/taxonomy"
)

// ValidateConfig holds configuration for the validate command
type ValidateConfig struct {
	SchemaVersion int
	Format        string
	LintStrict    bool
	MaxLineLength int
	Quiet         bool
	Watch         bool
	DebounceTime  int
}

// NewValidateConfig creates a ValidateConfig with default values
func NewValidateConfig() *ValidateConfig {
	defaults := taxonomy.DefaultLintConfig()
	return &ValidateConfig{
		SchemaVersion: 0,
		Format:        "auto",
		MaxLineLength: defaults.MaxLineLength,
		DebounceTime:  500,
	}
}

var validateCmd = &cobra.Command{
	Use:   "validate [path...]",
	Short: "Validate taxonomy qna.yaml files",
	Long: `Validate taxonomy qna.yaml files against the embedded schema documents.

Directory arguments are searched recursively for qna.yaml files. With no
arguments the current directory is searched. Every lint finding and schema
violation is reported; the command exits non-zero when any file has errors.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config := getValidateConfigFromFlags(cmd)

		p := presenter.Default()
		p.SetQuiet(config.Quiet)

		format, err := taxonomy.ParseMessageFormat(config.Format)
		if err != nil {
			return err
		}

		parser, err := taxonomy.NewParser(
			taxonomy.WithSchemaVersion(config.SchemaVersion),
			taxonomy.WithMessageFormat(format),
			taxonomy.WithLint(taxonomy.LintConfig{
				MaxLineLength: config.MaxLineLength,
				Strict:        config.LintStrict,
			}),
		)
		if err != nil {
			return err
		}

		roots := args
		if len(roots) == 0 {
			roots = []string{"."}
		}

		if config.Watch {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, parser, roots, config, p)
		}

		files, err := discoverFiles(roots)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			p.Warning("No qna.yaml files found")
			return nil
		}

		failed, err := validateFiles(parser, files)
		if err != nil {
			return err
		}
		if failed > 0 {
			return errors.Errorf("%d of %d files failed validation", failed, len(files))
		}
		p.Success(fmt.Sprintf("All %d files are valid", len(files)))
		return nil
	},
}

func init() {
	defaults := NewValidateConfig()
	validateCmd.Flags().IntP("schema-version", "s", defaults.SchemaVersion, "Schema version to validate against (0 uses each file's own version key)")
	validateCmd.Flags().StringP("format", "f", defaults.Format, "Message format (auto, standard, github, logging)")
	validateCmd.Flags().Bool("lint-strict", defaults.LintStrict, "Treat lint findings as errors")
	validateCmd.Flags().Int("max-line-length", defaults.MaxLineLength, "Longest allowed line in a qna.yaml file")
	validateCmd.Flags().BoolP("quiet", "q", defaults.Quiet, "Only print findings, no summary output")
	validateCmd.Flags().BoolP("watch", "w", defaults.Watch, "Watch for changes and re-validate")
	validateCmd.Flags().Int("debounce", defaults.DebounceTime, "Debounce time in milliseconds for watch mode")
}

// getValidateConfigFromFlags extracts validate configuration from command flags
func getValidateConfigFromFlags(cmd *cobra.Command) *ValidateConfig {
	config := NewValidateConfig()
	config.SchemaVersion, _ = cmd.Flags().GetInt("schema-version")
	config.Format, _ = cmd.Flags().GetString("format")
	config.LintStrict, _ = cmd.Flags().GetBool("lint-strict")
	config.MaxLineLength, _ = cmd.Flags().GetInt("max-line-length")
	config.Quiet, _ = cmd.Flags().GetBool("quiet")
	config.Watch, _ = cmd.Flags().GetBool("watch")
	config.DebounceTime, _ = cmd.Flags().GetInt("debounce")
	return config
}

// discoverFiles expands the argument list into qna.yaml files. Directories
// are searched recursively; explicit file arguments are kept as-is so the
// parser can report a bad file name.
func discoverFiles(roots []string) ([]string, error) {
	var files []string
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot access %s", root)
		}
		if !info.IsDir() {
			files = append(files, root)
			continue
		}

		matches, err := doublestar.Glob(os.DirFS(root), "**/"+taxonomy.QnaFileName)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to search %s", root)
		}
		for _, match := range matches {
			files = append(files, filepath.Join(root, filepath.FromSlash(match)))
		}
	}
	sort.Strings(files)
	return files, nil
}

// validateFiles parses every file and returns how many had at least one
// error. Findings are reported by the parser in its configured format.
func validateFiles(parser *taxonomy.Parser, files []string) (int, error) {
	failed := 0
	for _, file := range files {
		t, err := parser.Parse(file)
		if err != nil {
			return 0, err
		}
		if !t.Valid() {
			failed++
		}
	}
	return failed, nil
}

// runWatch re-validates qna.yaml files whenever they change under the given
// roots. Events are debounced so editors that write multiple times per save
// only trigger one validation.
func runWatch(ctx context.Context, parser *taxonomy.Parser, roots []string, config *ValidateConfig, p *presenter.Presenter) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer watcher.Close()

	for _, root := range roots {
		if err := watchRecursively(watcher, root); err != nil {
			return err
		}
	}

	p.Info("Watching for changes, press Ctrl+C to stop")

	debounce := time.Duration(config.DebounceTime) * time.Millisecond
	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// New directories need to be watched as they appear.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watchRecursively(watcher, event.Name)
				}
			}
			if filepath.Base(event.Name) != taxonomy.QnaFileName {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				pending[event.Name] = struct{}{}
				if timer == nil {
					timer = time.NewTimer(debounce)
				} else {
					timer.Reset(debounce)
				}
				timerC = timer.C
			}
		case <-timerC:
			timerC = nil
			files := make([]string, 0, len(pending))
			for file := range pending {
				files = append(files, file)
				delete(pending, file)
			}
			sort.Strings(files)
			failed, err := validateFiles(parser, files)
			if err != nil {
				return err
			}
			if failed == 0 {
				p.Success(fmt.Sprintf("%d files valid", len(files)))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.G(ctx).WithError(err).Warn("file watcher error")
		}
	}
}

func watchRecursively(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			return errors.Wrapf(err, "failed to watch %s", path)
		}
		return nil
	})
}
