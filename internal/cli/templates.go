package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dpshade/pocket-problem/internal/errors"
	"github.com/dpshade/pocket-problem/internal/models"
)

func (c *CLI) templateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "template",
		Aliases: []string{"templates", "t"},
		Short:   "Browse, fill and manage templates",
	}
	cmd.AddCommand(
		c.templateListCommand(),
		c.templateShowCommand(),
		c.templateSearchCommand(),
		c.templateScaffoldCommand(),
		c.templateFillCommand(),
		c.templateAddCommand(),
		c.templateRemoveCommand(),
	)
	return cmd
}

func (c *CLI) templateListCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List registered templates",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service()
			if err != nil {
				return err
			}
			return formatTemplates(cmd.OutOrStdout(), svc.ListTemplates(), format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: json, ids")
	return cmd
}

func (c *CLI) templateShowCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a template and its slots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service()
			if err != nil {
				return err
			}
			def, err := svc.GetTemplate(args[0])
			if err != nil {
				return err
			}
			return formatTemplate(cmd.OutOrStdout(), def, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: json")
	return cmd
}

func (c *CLI) templateSearchCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Fuzzy search templates by id, name and description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service()
			if err != nil {
				return err
			}
			return formatTemplates(cmd.OutOrStdout(), svc.SearchTemplates(strings.Join(args, " ")), format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: json, ids")
	return cmd
}

func (c *CLI) templateScaffoldCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "scaffold <id>",
		Short: "Write a fillings file with every slot of a template",
		Example: `  pocket-problem template scaffold multiple_choice -o mc.yaml
  pocket-problem template fill multiple_choice mc.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service()
			if err != nil {
				return err
			}
			scaffold, err := svc.ScaffoldYAML(args[0])
			if err != nil {
				return err
			}
			if output == "" {
				fmt.Fprint(cmd.OutOrStdout(), scaffold)
				return nil
			}
			if err := os.WriteFile(output, []byte(scaffold), 0644); err != nil {
				return errors.StorageError("write "+output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the scaffold to a file instead of stdout")
	return cmd
}

func (c *CLI) templateFillCommand() *cobra.Command {
	var flags outputFlags
	cmd := &cobra.Command{
		Use:   "fill <id> [fillings.yaml|-]",
		Short: "Resolve a template with a YAML fillings file and emit LaTeX",
		Long: `Resolve a template with fillings and emit LaTeX. The fillings file maps
slot ids to text, to {template, fillings} for template references, or to a
list of those for template lists. Reads stdin when the file is "-" or
omitted.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 2 {
				path = args[1]
			}
			data, err := c.readInput(path)
			if err != nil {
				return err
			}
			fillings, err := parseFillings(data)
			if err != nil {
				return err
			}

			svc, err := c.service()
			if err != nil {
				return err
			}
			latex, err := svc.CompileTemplate(args[0], fillings)
			if err != nil {
				return err
			}
			return c.emit(cmd, latex, &flags)
		},
	}
	flags.register(cmd)
	return cmd
}

// parseFillings decodes a fillings file
func parseFillings(data string) (models.Fillings, error) {
	fillings, err := models.ParseFillings([]byte(data))
	if err != nil {
		return nil, errors.ValidationError("invalid fillings file").WithDetails(err.Error())
	}
	return fillings, nil
}

func (c *CLI) templateAddCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <template.yaml|->",
		Short: "Register a user template from a YAML definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := c.readInput(args[0])
			if err != nil {
				return err
			}
			var def models.TemplateDefinition
			if err := yaml.Unmarshal([]byte(data), &def); err != nil {
				return errors.ValidationError("invalid template file").WithDetails(err.Error())
			}

			svc, err := c.service()
			if err != nil {
				return err
			}
			if err := svc.RegisterTemplate(&def); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered template %s (%s)\n", def.ID, def.FilePath)
			return nil
		},
	}
	return cmd
}

func (c *CLI) templateRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a user template",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service()
			if err != nil {
				return err
			}
			if err := svc.DeleteTemplate(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted template %s\n", args[0])
			return nil
		},
	}
}
