// Package cli implements the headless command-line interface. Every command
// goes through the service; running with no command starts the TUI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dpshade/pocket-problem/internal/errors"
	"github.com/dpshade/pocket-problem/internal/models"
	"github.com/dpshade/pocket-problem/internal/service"
	"github.com/dpshade/pocket-problem/internal/ui"
)

// Version is reported by the version command
var Version = "0.1.0"

// CLI provides headless command-line interface functionality
type CLI struct {
	newService   func() (*service.Service, error)
	svc          *service.Service
	runTUI       func(*service.Service) error
	errorHandler *errors.CLIErrorHandler

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// NewCLI creates a CLI that opens the library with newService on first use
func NewCLI(newService func() (*service.Service, error)) *CLI {
	return &CLI{
		newService:   newService,
		runTUI:       ui.Run,
		errorHandler: errors.NewCLIErrorHandler(os.Getenv("POCKET_PROBLEM_DEBUG") != ""),
		stdin:        os.Stdin,
		stdout:       os.Stdout,
		stderr:       os.Stderr,
	}
}

// service opens the library once
func (c *CLI) service() (*service.Service, error) {
	if c.svc != nil {
		return c.svc, nil
	}
	svc, err := c.newService()
	if err != nil {
		return nil, err
	}
	c.svc = svc
	return svc, nil
}

// Execute runs the command line and returns the process exit code
func (c *CLI) Execute(args []string) int {
	if args == nil {
		args = []string{}
	}
	root := c.RootCommand()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		if c.svc != nil {
			c.errorHandler.Log = c.svc.ErrorLog()
		}
		fmt.Fprintln(c.stderr, c.errorHandler.HandleError(err))
		return 1
	}
	return 0
}

// RootCommand builds the command tree
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "pocket-problem",
		Short: "Author physics and math problems in markdown and compile them to LaTeX",
		Long: `pocket-problem compiles lightweight problem markdown (#problem, #eq,
#align, #question, #solution, ...) and filled templates into complete LaTeX
documents, and keeps a library of problems, templates and problem sets.

Running without a command starts the interactive editor.

STORAGE:
    Default directory: ~/.pocket-problem
    Override with: POCKET_PROBLEM_DIR=<path>`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service()
			if err != nil {
				return err
			}
			return c.runTUI(svc)
		},
	}
	root.SetIn(c.stdin)
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	root.AddCommand(
		c.initCommand(),
		c.compileCommand(),
		c.templateCommand(),
		c.problemCommand(),
		c.setCommand(),
		c.configCommand(),
		c.syncCommand(),
		c.serveCommand(),
		c.helpSyntaxCommand(),
		c.versionCommand(),
	)
	return root
}

func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pocket-problem version %s\n", Version)
		},
	}
}

func (c *CLI) helpSyntaxCommand() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "help-syntax",
		Short: "Show the problem markdown syntax",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if raw {
				fmt.Fprint(cmd.OutOrStdout(), ui.SyntaxGuide)
				return nil
			}
			out, err := ui.RenderSyntaxGuide(80)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the guide as plain markdown")
	return cmd
}

// Output formatting

func formatProblems(w io.Writer, problems []*models.Problem, format string) error {
	switch format {
	case "json":
		if problems == nil {
			problems = []*models.Problem{}
		}
		return json.NewEncoder(w).Encode(problems)
	case "ids":
		for _, p := range problems {
			fmt.Fprintln(w, p.ID)
		}
	case "table":
		fmt.Fprintf(w, "%-24s %-30s %-16s %s\n", "ID", "Title", "Template", "Updated")
		fmt.Fprintln(w, strings.Repeat("-", 84))
		for _, p := range problems {
			title := p.Name
			if len(title) > 30 {
				title = title[:27] + "..."
			}
			fmt.Fprintf(w, "%-24s %-30s %-16s %s\n",
				p.ID, title, p.Template, p.UpdatedAt.Format("2006-01-02"))
		}
	default:
		for _, p := range problems {
			if p.Name != "" {
				fmt.Fprintf(w, "%s - %s\n", p.ID, p.Name)
			} else {
				fmt.Fprintln(w, p.ID)
			}
			if p.Template != "" {
				fmt.Fprintf(w, "  Template: %s\n", p.Template)
			}
			if len(p.Tags) > 0 {
				fmt.Fprintf(w, "  Tags: %s\n", strings.Join(p.Tags, ", "))
			}
		}
	}
	return nil
}

func formatProblem(w io.Writer, problem *models.Problem, format string) error {
	switch format {
	case "json":
		return json.NewEncoder(w).Encode(problem)
	default:
		fmt.Fprintf(w, "ID: %s\n", problem.ID)
		if problem.Name != "" {
			fmt.Fprintf(w, "Title: %s\n", problem.Name)
		}
		if len(problem.Tags) > 0 {
			fmt.Fprintf(w, "Tags: %s\n", strings.Join(problem.Tags, ", "))
		}
		if problem.Template != "" {
			fmt.Fprintf(w, "Template: %s\n", problem.Template)
		}
		fmt.Fprintf(w, "Created: %s\n", problem.CreatedAt.Format("2006-01-02 15:04"))
		fmt.Fprintf(w, "Updated: %s\n", problem.UpdatedAt.Format("2006-01-02 15:04"))
		if problem.Content != "" {
			fmt.Fprintf(w, "\nContent:\n%s\n", problem.Content)
		}
	}
	return nil
}

func formatTemplates(w io.Writer, defs []*models.TemplateDefinition, format string) error {
	switch format {
	case "json":
		if defs == nil {
			defs = []*models.TemplateDefinition{}
		}
		return json.NewEncoder(w).Encode(defs)
	case "ids":
		for _, d := range defs {
			fmt.Fprintln(w, d.ID)
		}
	default:
		for _, d := range defs {
			origin := "builtin"
			if d.FilePath != "" {
				origin = "user"
			}
			fmt.Fprintf(w, "%-20s %-8s %s\n", d.ID, origin, d.Name)
		}
	}
	return nil
}

func formatTemplate(w io.Writer, def *models.TemplateDefinition, format string) error {
	if format == "json" {
		return json.NewEncoder(w).Encode(def)
	}

	fmt.Fprintf(w, "ID: %s\n", def.ID)
	if def.Name != "" {
		fmt.Fprintf(w, "Name: %s\n", def.Name)
	}
	if def.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", def.Description)
	}
	if def.FilePath != "" {
		fmt.Fprintf(w, "File: %s\n", def.FilePath)
	}
	fmt.Fprintln(w, "\nSlots:")
	for _, slot := range def.Slots {
		required := "optional"
		if slot.Required {
			required = "required"
		}
		fmt.Fprintf(w, "  %-18s %-18s %s", slot.ID, slot.Kind, required)
		if slot.Label != "" {
			fmt.Fprintf(w, "  %s", slot.Label)
		}
		if slot.Default != "" {
			fmt.Fprintf(w, "  (default: %s)", slot.Default)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// readInput reads a file, or stdin when path is "-"
func (c *CLI) readInput(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(c.stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.NewAppError(errors.ErrCodeFileNotFound, fmt.Sprintf("cannot read %s", path)).WithDetails(err.Error())
	}
	return string(data), nil
}
