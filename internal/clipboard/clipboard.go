// Package clipboard copies emitted LaTeX to the system clipboard using the
// platform's command-line utility.
package clipboard

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/dpshade/pocket-problem/internal/errors"
)

// command is one clipboard utility invocation
type command struct {
	name string
	args []string
}

// commands lists the utilities tried for each platform, in order
var commands = map[string][]command{
	"darwin":  {{name: "pbcopy"}},
	"windows": {{name: "cmd", args: []string{"/c", "clip"}}},
	"linux": {
		{name: "xclip", args: []string{"-selection", "clipboard"}},
		{name: "xsel", args: []string{"--clipboard", "--input"}},
		{name: "wl-copy"},
	},
}

// Copier runs clipboard utilities. The zero value is not usable; call New.
type Copier struct {
	goos     string
	lookPath func(string) (string, error)
	run      func(name string, args []string, input string) error
}

// New creates a copier for the current platform
func New() *Copier {
	return &Copier{
		goos:     runtime.GOOS,
		lookPath: exec.LookPath,
		run:      runCommand,
	}
}

var defaultCopier = New()

// Copy copies text to the system clipboard
func Copy(text string) error {
	return defaultCopier.Copy(text)
}

// IsClipboardAvailable checks if clipboard functionality is available
func IsClipboardAvailable() bool {
	return defaultCopier.Available()
}

// Copy tries each utility for the platform until one succeeds
func (c *Copier) Copy(text string) error {
	candidates, ok := commands[c.goos]
	if !ok {
		return errors.NewAppError(errors.ErrCodeClipboardUnavailable,
			fmt.Sprintf("clipboard not supported on %s", c.goos))
	}

	var lastErr error
	for _, cmd := range candidates {
		if _, err := c.lookPath(cmd.name); err != nil {
			continue
		}
		if err := c.run(cmd.name, cmd.args, text); err != nil {
			lastErr = fmt.Errorf("%s failed: %w", cmd.name, err)
			continue
		}
		return nil
	}

	if lastErr != nil {
		return errors.Wrap(lastErr, errors.ErrCodeClipboardUnavailable,
			"clipboard utilities available but failed")
	}
	return errors.NewAppError(errors.ErrCodeClipboardUnavailable, "no clipboard utility found").
		WithDetails(installInstructions(c.goos))
}

// Available reports whether any utility for the platform is on PATH
func (c *Copier) Available() bool {
	for _, cmd := range commands[c.goos] {
		if _, err := c.lookPath(cmd.name); err == nil {
			return true
		}
	}
	return false
}

func runCommand(name string, args []string, input string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = strings.NewReader(input)
	return cmd.Run()
}

// GetInstallInstructions returns installation instructions for clipboard utilities
func GetInstallInstructions() string {
	return installInstructions(runtime.GOOS)
}

func installInstructions(goos string) string {
	switch goos {
	case "linux":
		return "Install a clipboard utility:\n" +
			"  • Ubuntu/Debian: sudo apt install xclip\n" +
			"  • Fedora/RHEL: sudo dnf install xclip\n" +
			"  • Arch: sudo pacman -S xclip\n" +
			"  • For Wayland: install wl-clipboard"
	case "darwin":
		return "pbcopy should be available by default on macOS"
	case "windows":
		return "clip should be available by default on Windows"
	default:
		return fmt.Sprintf("Clipboard not supported on %s", goos)
	}
}
