package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/benjaminschreck/go-docmerge/pkg/docmerge"
	"github.com/benjaminschreck/go-docmerge/pkg/docmerge/markup"
	"github.com/benjaminschreck/go-docmerge/pkg/docmerge/render"
)

func newCommandsCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "commands <template>",
		Short: "List the commands of a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine(expandOptions{configPath: configPath})
			if err != nil {
				return err
			}
			return listCommands(engine, args[0], cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Engine configuration file (YAML)")
	return cmd
}

func listCommands(engine *docmerge.Engine, path string, w io.Writer) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}

	if !isDocx(path) {
		root, err := markup.Parse(bytes.NewReader(content))
		if err != nil {
			return err
		}
		cmds, err := engine.ListCommands(root)
		if err != nil {
			return err
		}
		printCommands(w, cmds)
		return nil
	}

	parts, err := engine.ListDocxCommands(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return err
	}
	names := make([]string, 0, len(parts))
	for name := range parts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s:\n", name)
		printCommands(w, parts[name])
	}
	return nil
}

func printCommands(w io.Writer, cmds []render.Command) {
	for _, c := range cmds {
		fmt.Fprintf(w, "  %-6s %s\n", c.Kind, c.Raw)
	}
}

func newMetadataCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "metadata <template.docx>",
		Short: "Print the document properties of a DOCX package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printMetadata(args[0], cmd.OutOrStdout())
		},
	}
}

func printMetadata(path string, w io.Writer) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}
	md, err := docmerge.GetMetadata(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(md); err != nil {
		return err
	}
	return enc.Close()
}
