package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dpshade/pocket-problem/internal/importer"
	"github.com/dpshade/pocket-problem/internal/models"
	"github.com/dpshade/pocket-problem/internal/service"
)

func (c *CLI) problemCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "problem",
		Aliases: []string{"problems", "p"},
		Short:   "Manage the problem library",
	}
	cmd.AddCommand(
		c.problemListCommand(),
		c.problemSearchCommand(),
		c.problemNewCommand(),
		c.problemEditCommand(),
		c.problemShowCommand(),
		c.problemCompileCommand(),
		c.problemRemoveCommand(),
		c.problemImportCommand(),
	)
	return cmd
}

func (c *CLI) problemListCommand() *cobra.Command {
	var format, tag string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List problems",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service()
			if err != nil {
				return err
			}
			problems, err := svc.ListProblems()
			if err != nil {
				return fmt.Errorf("failed to list problems: %w", err)
			}
			if tag != "" {
				problems = filterByTag(problems, tag)
			}
			return formatProblems(cmd.OutOrStdout(), problems, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: table, json, ids")
	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Only problems with this tag")
	return cmd
}

func filterByTag(problems []*models.Problem, tag string) []*models.Problem {
	var filtered []*models.Problem
	for _, p := range problems {
		for _, t := range p.Tags {
			if strings.EqualFold(t, tag) {
				filtered = append(filtered, p)
				break
			}
		}
	}
	return filtered
}

func (c *CLI) problemSearchCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Fuzzy search problems by title, id, template and tags",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service()
			if err != nil {
				return err
			}
			problems, err := svc.SearchProblems(strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			return formatProblems(cmd.OutOrStdout(), problems, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: table, json, ids")
	return cmd
}

// problemFields are the flags shared by new and edit
type problemFields struct {
	title    string
	tags     []string
	source   string
	template string
	fillings string
}

func (f *problemFields) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "Problem title")
	cmd.Flags().StringSliceVar(&f.tags, "tags", nil, "Comma-separated tags")
	cmd.Flags().StringVar(&f.source, "file", "", "Markdown source file, or - for stdin")
	cmd.Flags().StringVar(&f.template, "template", "", "Template id for a template-backed problem")
	cmd.Flags().StringVar(&f.fillings, "fillings", "", "YAML fillings file for --template, or - for stdin")
}

// apply copies the flags that were set onto problem
func (c *CLI) apply(cmd *cobra.Command, f *problemFields, problem *models.Problem) error {
	if cmd.Flags().Changed("title") {
		problem.Name = f.title
	}
	if cmd.Flags().Changed("tags") {
		problem.Tags = f.tags
	}
	if f.source != "" {
		content, err := c.readInput(f.source)
		if err != nil {
			return err
		}
		problem.Content = content
	}
	if cmd.Flags().Changed("template") {
		problem.Template = f.template
	}
	if f.fillings != "" {
		data, err := c.readInput(f.fillings)
		if err != nil {
			return err
		}
		fillings, err := parseFillings(data)
		if err != nil {
			return err
		}
		problem.Fillings = fillings
	}
	return nil
}

func (c *CLI) problemNewCommand() *cobra.Command {
	var fields problemFields
	cmd := &cobra.Command{
		Use:     "new [id]",
		Aliases: []string{"create"},
		Short:   "Create a problem from markdown or from a template",
		Example: `  pocket-problem problem new projectile --title "Projectile" --file projectile.md
  pocket-problem problem new mc-1 --template multiple_choice --fillings mc.yaml --tags quiz`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			problem := &models.Problem{}
			if len(args) == 1 {
				problem.ID = args[0]
			}
			if err := c.apply(cmd, &fields, problem); err != nil {
				return err
			}

			svc, err := c.service()
			if err != nil {
				return err
			}
			if problem.Template != "" && problem.Fillings == nil {
				fillings, err := svc.ScaffoldFillings(problem.Template)
				if err != nil {
					return err
				}
				problem.Fillings = fillings
			}
			if err := svc.CreateProblem(problem); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created problem %s\n", problem.ID)
			return nil
		},
	}
	fields.register(cmd)
	return cmd
}

func (c *CLI) problemEditCommand() *cobra.Command {
	var fields problemFields
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Update a problem's title, tags, source or fillings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service()
			if err != nil {
				return err
			}
			problem, err := svc.GetProblem(args[0])
			if err != nil {
				return err
			}
			if err := c.apply(cmd, &fields, problem); err != nil {
				return err
			}
			if err := svc.SaveProblem(problem); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated problem %s\n", problem.ID)
			return nil
		},
	}
	fields.register(cmd)
	return cmd
}

func (c *CLI) problemShowCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:     "show <id>",
		Aliases: []string{"get"},
		Short:   "Show a problem",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service()
			if err != nil {
				return err
			}
			problem, err := svc.GetProblem(args[0])
			if err != nil {
				return err
			}
			return formatProblem(cmd.OutOrStdout(), problem, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: json")
	return cmd
}

func (c *CLI) problemCompileCommand() *cobra.Command {
	var flags outputFlags
	cmd := &cobra.Command{
		Use:   "compile <id>",
		Short: "Compile a stored problem to LaTeX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service()
			if err != nil {
				return err
			}
			latex, err := svc.CompileProblem(args[0])
			if err != nil {
				return err
			}
			return c.emit(cmd, latex, &flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func (c *CLI) problemRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a problem",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service()
			if err != nil {
				return err
			}
			if err := svc.DeleteProblem(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted problem %s\n", args[0])
			return nil
		},
	}
}

func (c *CLI) problemImportCommand() *cobra.Command {
	var opts importer.Options
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "import <directory|git-url>",
		Short: "Import problems and templates from a directory or git repository",
		Long: `Import problems and templates. A library layout (problems/*.md and
templates/*.yaml) is imported as is; any other directory contributes every
markdown file as a problem. Git URLs are cloned first and their problems
are tagged with the repository owner.`,
		Example: `  pocket-problem problem import ~/notes/physics
  pocket-problem problem import https://github.com/someone/problems.git --branch main`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Source = args[0]

			svc, err := c.service()
			if err != nil {
				return err
			}
			summary, err := svc.Import(cmd.Context(), opts, overwrite)
			if err != nil {
				return err
			}
			printImportSummary(cmd, summary)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Branch, "branch", "", "Branch to clone")
	cmd.Flags().IntVar(&opts.Depth, "depth", 1, "Clone depth (0 for full history)")
	cmd.Flags().StringVar(&opts.OwnerTag, "owner", "", "Tag for imported problems instead of the repository owner")
	cmd.Flags().StringSliceVar(&opts.Tags, "tags", nil, "Extra tags for imported problems")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace problems that already exist")
	return cmd
}

func printImportSummary(cmd *cobra.Command, summary *service.ImportSummary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Imported %d problems and %d templates\n", len(summary.Problems), len(summary.Templates))
	if len(summary.Skipped) > 0 {
		fmt.Fprintf(out, "Skipped (already present): %s\n", strings.Join(summary.Skipped, ", "))
	}
	for _, err := range summary.Errors {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
	}
}

func (c *CLI) setCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "set",
		Aliases: []string{"sets"},
		Short:   "Group problems into problem sets",
	}
	cmd.AddCommand(
		c.setListCommand(),
		c.setAddCommand(),
		c.setRemoveCommand(),
		c.setCompileCommand(),
	)
	return cmd
}

func (c *CLI) setListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List problem sets",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service()
			if err != nil {
				return err
			}
			sets, err := svc.ListProblemSets()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, set := range sets {
				title := set.Title
				if title == "" {
					title = "-"
				}
				fmt.Fprintf(out, "%-20s %-30s %s\n", set.Name, title, strings.Join(set.ProblemIDs, ", "))
			}
			return nil
		},
	}
}

func (c *CLI) setAddCommand() *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "add <name> <problem-id>...",
		Short: "Create a problem set or append problems to one",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service()
			if err != nil {
				return err
			}

			set := models.ProblemSet{Name: args[0]}
			if existing, err := svc.GetProblemSet(args[0]); err == nil {
				set = *existing
			}
			if cmd.Flags().Changed("title") {
				set.Title = title
			}
			for _, id := range args[1:] {
				if !set.Contains(id) {
					set.ProblemIDs = append(set.ProblemIDs, id)
				}
			}

			if err := svc.SaveProblemSet(set); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Problem set %s has %d problems\n", set.Name, len(set.ProblemIDs))
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Title printed at the top of the compiled set")
	return cmd
}

func (c *CLI) setRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <name>",
		Aliases: []string{"delete"},
		Short:   "Delete a problem set (the problems are kept)",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service()
			if err != nil {
				return err
			}
			if err := svc.DeleteProblemSet(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted problem set %s\n", args[0])
			return nil
		},
	}
}

func (c *CLI) setCompileCommand() *cobra.Command {
	var flags outputFlags
	cmd := &cobra.Command{
		Use:   "compile <name>",
		Short: "Compile every problem of a set into one LaTeX document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service()
			if err != nil {
				return err
			}
			latex, err := svc.CompileProblemSet(args[0])
			if err != nil {
				return err
			}
			return c.emit(cmd, latex, &flags)
		},
	}
	flags.register(cmd)
	return cmd
}
