package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dpshade/pocket-problem/internal/clipboard"
	"github.com/dpshade/pocket-problem/internal/errors"
)

// outputFlags are shared by every command that produces LaTeX
type outputFlags struct {
	output string
	pdf    string
	copy   bool
}

func (f *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Write LaTeX to a file instead of stdout")
	cmd.Flags().StringVar(&f.pdf, "pdf", "", "Also render a PDF with pdflatex to this path")
	cmd.Flags().BoolVar(&f.copy, "copy", false, "Copy the LaTeX to the clipboard")
}

// emit delivers latex as the flags ask
func (c *CLI) emit(cmd *cobra.Command, latex string, flags *outputFlags) error {
	out := cmd.OutOrStdout()

	if flags.output != "" {
		if err := os.WriteFile(flags.output, []byte(latex), 0644); err != nil {
			return errors.StorageError("write "+flags.output, err)
		}
		fmt.Fprintf(out, "Wrote %s\n", flags.output)
	} else if !flags.copy && flags.pdf == "" {
		fmt.Fprint(out, latex)
	}

	if flags.copy {
		if err := clipboard.Copy(latex); err != nil {
			return err
		}
		fmt.Fprintln(out, "Copied LaTeX to clipboard")
	}

	if flags.pdf != "" {
		svc, err := c.service()
		if err != nil {
			return err
		}
		if err := svc.ExportPDF(cmd.Context(), latex, flags.pdf); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %s\n", flags.pdf)
	}
	return nil
}

func (c *CLI) compileCommand() *cobra.Command {
	var flags outputFlags
	cmd := &cobra.Command{
		Use:   "compile [file|-]",
		Short: "Compile problem markdown to LaTeX",
		Long: `Compile problem markdown to a complete LaTeX document. Reads stdin when
the file is "-" or omitted. Unknown markers stay as text; compilation of
free-form source never fails.`,
		Example: `  pocket-problem compile problem.md -o problem.tex
  echo '#eq E = mc^2' | pocket-problem compile
  pocket-problem compile problem.md --pdf problem.pdf`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			source, err := c.readInput(path)
			if err != nil {
				return err
			}

			svc, err := c.service()
			if err != nil {
				return err
			}
			return c.emit(cmd, svc.CompileSource(source), &flags)
		},
	}
	flags.register(cmd)
	return cmd
}
