package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/coursecrawl/internal/config"
)

//go:embed templates/coursecrawl.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a commented .coursecrawl site file",
		Long: `Init writes a .coursecrawl site file in the current directory.

The generated file documents every setting that can be given per site:
- the catalog query token and course link prefix
- cookies and extra request headers
- CSS selector overrides for each extracted field

Examples:
  # Create .coursecrawl in the current directory
  coursecrawl init

  # Create the file at a specific path
  coursecrawl init -o ~/.coursecrawl

  # Overwrite an existing file
  coursecrawl init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the site file")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite an existing site file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("site file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/coursecrawl.yaml")
	if err != nil {
		return fmt.Errorf("failed to read site file template: %w", err)
	}

	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write site file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created site file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit it to set per-site options such as:")
	fmt.Fprintln(out, "  - session cookies and request headers")
	fmt.Fprintln(out, "  - the catalog query token")
	fmt.Fprintln(out, "  - selectors for changed catalog markup")

	return nil
}
