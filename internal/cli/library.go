package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dpshade/pocket-problem/internal/api"
	"github.com/dpshade/pocket-problem/internal/errors"
)

func (c *CLI) initCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a new problem library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service()
			if err != nil {
				return err
			}
			if err := svc.InitLibrary(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized Pocket Problem library in %s\n", svc.Root())
			return nil
		},
	}
}

func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the LaTeX formatting configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service()
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(svc.Config(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	apply := &cobra.Command{
		Use:   "apply <config.json|->",
		Short: "Merge a JSON file over the current configuration and save it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := c.readInput(args[0])
			if err != nil {
				return err
			}
			svc, err := c.service()
			if err != nil {
				return err
			}
			cfg := svc.Config()
			if err := json.Unmarshal([]byte(data), &cfg); err != nil {
				return errors.ValidationError("invalid configuration file").WithDetails(err.Error())
			}
			if err := svc.UpdateConfig(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", svc.ConfigPath())
			return nil
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Restore the default configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service()
			if err != nil {
				return err
			}
			if err := svc.ResetConfig(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration reset to defaults")
			return nil
		},
	}

	path := &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), svc.ConfigPath())
			return nil
		},
	}

	cmd.AddCommand(show, apply, reset, path)
	return cmd
}

func (c *CLI) syncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sync",
		Aliases: []string{"git"},
		Short:   "Git synchronization of the library",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.printSyncStatus(cmd)
		},
	}

	setup := &cobra.Command{
		Use:   "setup <repository-url>",
		Short: "Make the library a git repository tracking a remote",
		Example: `  pocket-problem sync setup https://github.com/username/my-problems.git
  pocket-problem sync setup git@github.com:username/my-problems.git`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service()
			if err != nil {
				return err
			}
			if err := svc.SetupGitRepository(args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Git repository successfully configured!")
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the git sync status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.printSyncStatus(cmd)
		},
	}

	push := &cobra.Command{
		Use:   "push",
		Short: "Commit and push pending library changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service()
			if err != nil {
				return err
			}
			if err := svc.SyncGitChanges("Manual sync from CLI"); err != nil {
				return fmt.Errorf("failed to sync: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Successfully synced with remote repository")
			return nil
		},
	}

	pull := &cobra.Command{
		Use:   "pull",
		Short: "Pull changes from the remote repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service()
			if err != nil {
				return err
			}
			if err := svc.PullGitChanges(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Successfully pulled changes from remote repository")
			return nil
		},
	}

	cmd.AddCommand(setup, status, push, pull)
	return cmd
}

func (c *CLI) printSyncStatus(cmd *cobra.Command) error {
	svc, err := c.service()
	if err != nil {
		return err
	}
	status, err := svc.GetGitSyncStatus()
	if err != nil {
		return fmt.Errorf("failed to get git status: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Git sync status:", status)
	return nil
}

func (c *CLI) serveCommand() *cobra.Command {
	var port, syncInterval int
	var noGitSync bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Example: `  pocket-problem serve
  pocket-problem serve --port 9000 --sync-interval 1
  curl -s localhost:8080/api/v1/compile -d '{"source": "#eq E = mc^2"}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service()
			if err != nil {
				return err
			}

			server := api.NewAPIServer(svc, port)
			if noGitSync || syncInterval <= 0 {
				svc.DisableGitSync()
			} else {
				server.SetSyncInterval(time.Duration(syncInterval) * time.Minute)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			select {
			case err := <-errCh:
				if err != nil && err != http.ErrServerClosed {
					return fmt.Errorf("API server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
				log.Printf("Shutting down API server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Stop(shutdownCtx)
			}
		},
	}
	cmd.Flags().IntVar(&port, "port", 8080, "Port for the API server")
	cmd.Flags().IntVar(&syncInterval, "sync-interval", 5, "Git sync interval in minutes (0 to disable)")
	cmd.Flags().BoolVar(&noGitSync, "no-git-sync", false, "Disable periodic git synchronization")
	return cmd
}
