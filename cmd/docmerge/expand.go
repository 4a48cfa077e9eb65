package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/benjaminschreck/go-docmerge/pkg/docmerge"
	"github.com/benjaminschreck/go-docmerge/pkg/docmerge/markup"
)

var logLevel string

// templates holds parsed XML templates so --watch only parses a template
// again after it changed
var templates = docmerge.NewTemplateCache(docmerge.CacheConfig{MaxSize: 16})

type expandOptions struct {
	template   string
	data       string
	out        string
	configPath string
	watch      bool
	minify     bool
	failFast   *bool // nil keeps the configured FailFast
}

func newExpandCommand() *cobra.Command {
	var opts expandOptions

	cmd := &cobra.Command{
		Use:   "expand",
		Short: "Expand a template with data",
		Long: `Expands a .docx or .xml template with values from a YAML or JSON data
file. The result is written to --out, or to stdout when --out is empty.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.failFast = failFastFlag(cmd)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if !opts.watch {
				return runExpand(ctx, opts)
			}
			if opts.out == "" {
				return fmt.Errorf("--watch requires --out")
			}
			return watchExpand(ctx, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.template, "template", "t", "", "Template file (.docx or .xml)")
	cmd.Flags().StringVarP(&opts.data, "data", "d", "", "Data file (YAML or JSON)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output file (defaults to stdout)")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Engine configuration file (YAML)")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Expand again whenever the template or data changes")
	cmd.Flags().BoolVar(&opts.minify, "minify", false, "Minify XML output")
	cmd.Flags().Bool("fail-fast", true, "Stop at the first unresolved placeholder")
	cmd.Flags().Bool("keep-going", false, "Report every unresolved placeholder instead of stopping at the first (same as --fail-fast=false)")
	cmd.MarkFlagsMutuallyExclusive("fail-fast", "keep-going")
	_ = cmd.MarkFlagRequired("template")

	return cmd
}

// newEngine builds an engine from the configuration file, the command line
// flags and the data file
func newEngine(opts expandOptions) (*docmerge.Engine, error) {
	config := docmerge.GetGlobalConfig()
	if opts.configPath != "" {
		loaded, err := docmerge.LoadConfigFile(opts.configPath)
		if err != nil {
			return nil, err
		}
		config = loaded
	}
	if opts.minify {
		config.Minify = true
	}
	if opts.failFast != nil {
		config.FailFast = *opts.failFast
	}
	if logLevel != "" {
		config.LogLevel = logLevel
	}

	data, err := loadData(opts.data)
	if err != nil {
		return nil, err
	}

	logger := docmerge.NewLogger(os.Stderr, docmerge.ParseLogLevel(config.LogLevel))
	return docmerge.New(
		docmerge.WithConfig(config),
		docmerge.WithData(data),
		docmerge.WithLogger(logger),
	)
}

// failFastFlag returns the fail-fast choice made on the command line, or nil
// when neither --fail-fast nor --keep-going was given
func failFastFlag(cmd *cobra.Command) *bool {
	flags := cmd.Flags()
	var failFast bool
	switch {
	case flags.Changed("keep-going"):
		keepGoing, _ := flags.GetBool("keep-going")
		failFast = !keepGoing
	case flags.Changed("fail-fast"):
		failFast, _ = flags.GetBool("fail-fast")
	default:
		return nil
	}
	return &failFast
}

// loadData reads a YAML document into template data. JSON files parse as
// YAML too.
func loadData(path string) (docmerge.TemplateData, error) {
	data := docmerge.TemplateData{}
	if path == "" {
		return data, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}
	if err := yaml.Unmarshal(content, &data); err != nil {
		return nil, fmt.Errorf("failed to parse data file %s: %w", path, err)
	}
	return data, nil
}

func runExpand(ctx context.Context, opts expandOptions) error {
	engine, err := newEngine(opts)
	if err != nil {
		return err
	}

	content, err := os.ReadFile(opts.template)
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}

	var buf bytes.Buffer
	if isDocx(opts.template) {
		err = engine.ExpandDocx(ctx, bytes.NewReader(content), int64(len(content)), &buf)
	} else {
		err = expandXML(ctx, engine, opts.template, content, &buf)
	}
	if err != nil {
		return err
	}

	if opts.out == "" {
		_, err = io.Copy(os.Stdout, &buf)
		return err
	}
	if err := os.WriteFile(opts.out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func expandXML(ctx context.Context, engine *docmerge.Engine, path string, content []byte, w io.Writer) error {
	key := path
	if info, err := os.Stat(path); err == nil {
		key = fmt.Sprintf("%s@%d", path, info.ModTime().UnixNano())
	}
	tmpl, err := templates.Load(key, func() (*docmerge.Template, error) {
		doc, err := markup.ParseDocument(bytes.NewReader(content))
		if err != nil {
			return nil, err
		}
		tmpl, err := engine.Prepare(doc.Root)
		if err != nil {
			return nil, err
		}
		tmpl.Prolog = doc.Prolog
		return tmpl, nil
	})
	if err != nil {
		return err
	}

	out, err := engine.ExpandTemplate(ctx, tmpl)
	if err != nil {
		return err
	}
	return markup.Write(w, out, markup.WriteOptions{Header: true, Prolog: tmpl.Prolog, Minify: engine.Config().Minify})
}

func isDocx(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".docx")
}

// watchExpand expands once, then again after every change to the template
// or data file until ctx is canceled. Directories are watched because
// editors often replace files instead of writing them in place.
func watchExpand(ctx context.Context, opts expandOptions) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	watched := map[string]bool{}
	dirs := map[string]bool{}
	for _, path := range []string{opts.template, opts.data, opts.configPath} {
		if path == "" {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		watched[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	expandOnce := func() {
		start := time.Now()
		if err := runExpand(ctx, opts); err != nil {
			fmt.Fprintf(os.Stderr, "expand failed: %v\n", err)
			return
		}
		fmt.Fprintf(os.Stderr, "wrote %s in %v\n", opts.out, time.Since(start).Round(time.Millisecond))
	}
	expandOnce()

	debounce := time.NewTimer(0)
	<-debounce.C

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !watched[abs] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(100 * time.Millisecond)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watcher error: %v\n", err)
		case <-debounce.C:
			expandOnce()
		}
	}
}
