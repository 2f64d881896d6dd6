// Package preview turns emitted LaTeX into a PDF by running pdflatex in a
// scratch directory.
package preview

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/dpshade/pocket-problem/internal/errors"
)

const jobName = "job"

// DefaultTimeout bounds a single pdflatex run
const DefaultTimeout = 60 * time.Second

// Result is the output of one successful render
type Result struct {
	PDF      []byte
	Log      string
	Duration time.Duration
}

// Pipeline renders a LaTeX document to PDF
type Pipeline interface {
	Render(ctx context.Context, latex string) (*Result, error)
}

// PDFLatex runs a pdflatex binary
type PDFLatex struct {
	Binary    string        // defaults to "pdflatex"
	Timeout   time.Duration // defaults to DefaultTimeout
	AssetsDir string        // added to TEXINPUTS so \includegraphics finds library figures
}

// NewPDFLatex creates a pipeline that resolves figures against assetsDir
func NewPDFLatex(assetsDir string) *PDFLatex {
	return &PDFLatex{
		Binary:    "pdflatex",
		Timeout:   DefaultTimeout,
		AssetsDir: assetsDir,
	}
}

// Available reports whether the pdflatex binary is on PATH
func (p *PDFLatex) Available() bool {
	_, err := exec.LookPath(p.binary())
	return err == nil
}

// Render compiles latex and returns the PDF. Failures are PREVIEW_FAILED
// errors whose details hold the relevant part of the LaTeX log.
func (p *PDFLatex) Render(ctx context.Context, latex string) (*Result, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	workDir, err := os.MkdirTemp("", "pocket-problem-*")
	if err != nil {
		return nil, errors.PreviewError("cannot create work directory", err)
	}
	defer os.RemoveAll(workDir)

	texPath := filepath.Join(workDir, jobName+".tex")
	if err := os.WriteFile(texPath, []byte(latex), 0644); err != nil {
		return nil, errors.PreviewError("cannot write LaTeX source", err)
	}

	cmd := exec.CommandContext(ctx, p.binary(),
		"-interaction=nonstopmode",
		"-halt-on-error",
		"-jobname="+jobName,
		jobName+".tex",
	)
	cmd.Dir = workDir
	cmd.Env = p.env()

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	log := output.String()
	if data, err := os.ReadFile(filepath.Join(workDir, jobName+".log")); err == nil {
		log = string(data)
	}

	if runErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.PreviewError(fmt.Sprintf("pdflatex timed out after %s", timeout), runErr)
		}
		return nil, errors.PreviewError(ErrorSummary(log), runErr)
	}

	pdf, err := os.ReadFile(filepath.Join(workDir, jobName+".pdf"))
	if err != nil {
		return nil, errors.PreviewError("pdflatex produced no PDF\n"+ErrorSummary(log), err)
	}

	return &Result{PDF: pdf, Log: log, Duration: elapsed}, nil
}

func (p *PDFLatex) binary() string {
	if p.Binary == "" {
		return "pdflatex"
	}
	return p.Binary
}

func (p *PDFLatex) env() []string {
	env := os.Environ()
	if p.AssetsDir != "" {
		// the trailing separator keeps the default search path
		env = append(env, "TEXINPUTS="+p.AssetsDir+string(os.PathListSeparator))
	}
	return env
}

// ErrorSummary extracts the first LaTeX error ("! ..." line and the two
// lines after it) from a log, or its last lines if there is none
func ErrorSummary(log string) string {
	lines := strings.Split(strings.TrimRight(log, "\n"), "\n")

	for i, line := range lines {
		if strings.HasPrefix(line, "!") {
			end := i + 3
			if end > len(lines) {
				end = len(lines)
			}
			return strings.Join(lines[i:end], "\n")
		}
	}

	const tail = 20
	if len(lines) > tail {
		lines = lines[len(lines)-tail:]
	}
	return strings.Join(lines, "\n")
}

// Export renders latex with p and writes the PDF to dest
func Export(ctx context.Context, p Pipeline, latex, dest string) error {
	result, err := p.Render(ctx, latex)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(dest); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.StorageError("create export directory", err)
		}
	}
	if err := os.WriteFile(dest, result.PDF, 0644); err != nil {
		return errors.StorageError("write "+dest, err)
	}
	return nil
}
