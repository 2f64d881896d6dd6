// Package git keeps a problem library in sync with a remote git repository.
// Every library change is committed and pushed when sync is enabled; sync
// failures never fail the change itself.
package git

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const defaultBranch = "master"

// gitignore keeps machine-local state out of the repository
const gitignore = ".pocket-problem/\nlogs/\n"

// GitSync handles automatic git synchronization
type GitSync struct {
	baseDir string
	mu      sync.Mutex
	enabled bool
}

// NewGitSync creates a new GitSync instance
func NewGitSync(baseDir string) *GitSync {
	return &GitSync{
		baseDir: baseDir,
		enabled: false, // Will be set by checking if git is initialized
	}
}

// IsEnabled returns true if git sync is available and enabled
func (g *GitSync) IsEnabled() bool {
	g.mu.Lock()
	enabled := g.enabled
	g.mu.Unlock()
	return enabled && g.isGitInitialized()
}

// Initialize enables sync if the library is a git repository with a remote
func (g *GitSync) Initialize() error {
	enabled := g.isGitInitialized() && g.hasRemote()
	g.setEnabled(enabled)
	return nil
}

// Enable sets git sync to enabled (user preference)
func (g *GitSync) Enable() { g.setEnabled(true) }

// Disable sets git sync to disabled (user preference)
func (g *GitSync) Disable() { g.setEnabled(false) }

func (g *GitSync) setEnabled(v bool) {
	g.mu.Lock()
	g.enabled = v
	g.mu.Unlock()
}

// SetupRepository initializes git in the library, points origin at repoURL,
// merges any existing remote content and pushes
func (g *GitSync) SetupRepository(repoURL string) error {
	if repoURL == "" {
		return fmt.Errorf("repository URL cannot be empty")
	}

	if !g.isGitInitialized() {
		if err := g.runGitCommand("init"); err != nil {
			return fmt.Errorf("failed to initialize git repository: %w", err)
		}
		if err := g.runGitCommand("symbolic-ref", "HEAD", "refs/heads/"+defaultBranch); err != nil {
			return fmt.Errorf("failed to set default branch: %w", err)
		}
	}

	ignorePath := filepath.Join(g.baseDir, ".gitignore")
	if _, err := os.Stat(ignorePath); os.IsNotExist(err) {
		if err := os.WriteFile(ignorePath, []byte(gitignore), 0644); err != nil {
			return fmt.Errorf("failed to write .gitignore: %w", err)
		}
	}

	if g.hasRemote() {
		currentURL, err := g.getRemoteURL()
		if err == nil && currentURL != repoURL {
			if err := g.runGitCommand("remote", "set-url", "origin", repoURL); err != nil {
				return fmt.Errorf("failed to update remote URL: %w", err)
			}
		}
	} else if err := g.runGitCommand("remote", "add", "origin", repoURL); err != nil {
		return fmt.Errorf("failed to add remote repository: %w", err)
	}

	if !g.hasCommits() {
		if err := g.runGitCommand("add", "-A"); err != nil {
			return fmt.Errorf("failed to stage files: %w", err)
		}
		if err := g.runGitCommand("commit", "-m", "Initial pocket-problem library commit"); err != nil &&
			!strings.Contains(err.Error(), "nothing to commit") {
			return fmt.Errorf("failed to create initial commit: %w", err)
		}
	}

	if err := g.runGitCommandWithTimeout(30*time.Second, "fetch", "origin"); err != nil {
		return fmt.Errorf("cannot reach %s: %w", repoURL, err)
	}

	branch := g.getCurrentBranch()
	if g.remoteHasBranch(branch) {
		if err := g.runGitCommandWithTimeout(30*time.Second, "pull", "--no-rebase", "--no-edit",
			"--allow-unrelated-histories", "--strategy-option=theirs", "origin", branch); err != nil {
			return fmt.Errorf("failed to merge remote library: %w", err)
		}
	}

	if err := g.runGitCommandWithTimeout(30*time.Second, "push", "-u", "origin", branch); err != nil {
		return fmt.Errorf("failed to push library: %w", err)
	}

	g.setEnabled(true)
	return nil
}

// SyncChanges commits and pushes changes to git
func (g *GitSync) SyncChanges(message string) error {
	if !g.IsEnabled() {
		return nil // Silently skip if not enabled
	}

	if err := g.runGitCommand("add", "-A"); err != nil {
		return fmt.Errorf("failed to stage changes: %w", err)
	}

	hasChanges, err := g.hasChangesToCommit()
	if err != nil {
		return fmt.Errorf("failed to check for changes: %w", err)
	}
	if !hasChanges {
		return nil
	}

	commitMessage := fmt.Sprintf("%s - %s", message, time.Now().Format("2006-01-02 15:04:05"))
	if err := g.runGitCommand("commit", "-m", commitMessage); err != nil {
		return fmt.Errorf("failed to commit changes: %w", err)
	}

	if err := g.runGitCommandWithTimeout(30*time.Second, "push"); err != nil {
		return fmt.Errorf("committed locally but failed to push: %w", err)
	}
	return nil
}

// PullChanges fetches and merges remote changes, preferring the remote copy
// of any conflicting file
func (g *GitSync) PullChanges() error {
	if !g.IsEnabled() {
		return nil
	}

	if err := g.runGitCommandWithTimeout(30*time.Second, "fetch", "origin"); err != nil {
		return fmt.Errorf("failed to fetch from remote: %w", err)
	}

	behind, err := g.isBehindRemote()
	if err != nil || !behind {
		return err
	}

	if err := g.runGitCommandWithTimeout(30*time.Second, "pull", "--no-rebase", "--no-edit",
		"--strategy-option=theirs", "origin", g.getCurrentBranch()); err != nil {
		return fmt.Errorf("failed to pull changes: %w", err)
	}
	return nil
}

// BackgroundSync pulls remote changes every interval until ctx is done
func (g *GitSync) BackgroundSync(ctx context.Context, interval time.Duration) {
	if !g.IsEnabled() {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := g.PullChanges(); err != nil {
				log.Printf("Background sync warning: %v", err)
			}
		}
	}
}

// GetStatus returns a one-line description of the sync state
func (g *GitSync) GetStatus() (string, error) {
	if !g.isGitInitialized() {
		return "Git not initialized", nil
	}
	if !g.IsEnabled() {
		return "Git sync disabled", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "status", "--porcelain", "--branch")
	cmd.Dir = g.baseDir
	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "Git status timeout", nil
		}
		return "Git status unknown", err
	}

	statusLines := strings.Split(strings.TrimRight(string(output), "\n"), "\n")
	branchLine := statusLines[0]
	switch {
	case strings.Contains(branchLine, "[ahead"):
		return "Changes need to be pushed", nil
	case strings.Contains(branchLine, "[behind"):
		return "Remote has new changes", nil
	case len(statusLines) > 1:
		return "Uncommitted changes", nil
	}
	return "In sync", nil
}

func (g *GitSync) isGitInitialized() bool {
	_, err := os.Stat(filepath.Join(g.baseDir, ".git"))
	return err == nil
}

func (g *GitSync) hasRemote() bool {
	output, err := g.gitOutput("remote")
	return err == nil && strings.TrimSpace(output) != ""
}

func (g *GitSync) getRemoteURL() (string, error) {
	output, err := g.gitOutput("remote", "get-url", "origin")
	return strings.TrimSpace(output), err
}

func (g *GitSync) remoteHasBranch(branch string) bool {
	output, err := g.gitOutput("ls-remote", "--heads", "origin", branch)
	return err == nil && strings.TrimSpace(output) != ""
}

func (g *GitSync) hasCommits() bool {
	output, err := g.gitOutput("rev-list", "-n", "1", "--all")
	return err == nil && strings.TrimSpace(output) != ""
}

func (g *GitSync) getCurrentBranch() string {
	output, err := g.gitOutput("symbolic-ref", "--short", "HEAD")
	if branch := strings.TrimSpace(output); err == nil && branch != "" {
		return branch
	}
	return defaultBranch
}

func (g *GitSync) isBehindRemote() (bool, error) {
	remote, err := g.gitOutput("rev-parse", "origin/"+g.getCurrentBranch())
	if err != nil {
		// Remote branch might not exist yet
		return false, nil
	}
	local, err := g.gitOutput("rev-parse", "HEAD")
	if err != nil {
		return false, err
	}

	remote, local = strings.TrimSpace(remote), strings.TrimSpace(local)
	if remote == local {
		return false, nil
	}
	// behind when local is an ancestor of remote
	_, err = g.gitOutput("merge-base", "--is-ancestor", local, remote)
	return err == nil, nil
}

// hasChangesToCommit checks if there are staged changes ready to commit
func (g *GitSync) hasChangesToCommit() (bool, error) {
	cmd := exec.Command("git", "diff", "--cached", "--quiet")
	cmd.Dir = g.baseDir
	err := cmd.Run()
	if err == nil {
		return false, nil
	}
	// Exit code 1 means there are differences
	if exitError, ok := err.(*exec.ExitError); ok && exitError.ExitCode() == 1 {
		return true, nil
	}
	return false, err
}

func (g *GitSync) gitOutput(args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.baseDir
	output, err := cmd.Output()
	return string(output), err
}

// runGitCommand executes a git command in the base directory with timeout
func (g *GitSync) runGitCommand(args ...string) error {
	return g.runGitCommandWithTimeout(10*time.Second, args...)
}

// runGitCommandWithTimeout executes a git command with custom timeout
func (g *GitSync) runGitCommandWithTimeout(timeout time.Duration, args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.baseDir

	// Capture both stdout and stderr for better error messages
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("git %s timed out after %v", strings.Join(args, " "), timeout)
		}
		return fmt.Errorf("git %s failed: %s", strings.Join(args, " "), strings.TrimSpace(string(output)))
	}
	return nil
}
