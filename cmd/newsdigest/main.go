package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"NewsDigest/internal/app"
	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:           "newsdigest",
		Short:         "Feed to digest pipeline: refresh, summarize, publish, archive",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		runCmd(),
		refreshCmd(),
		digestCmd(),
		videosCmd(),
		scheduleCmd(),
		linkedinCmd(),
		initCmd(),
	)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// withApp loads configuration, builds the application and closes it after fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, application *app.Application) error) error {
	cfg := config.Load()
	logger, closer, err := logging.NewWithFile(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx := cmd.Context()
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := application.Close(); cerr != nil {
			logger.Error("close application", "error", cerr)
		}
	}()

	return fn(ctx, application)
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [profile...]",
		Short: "Refresh the active tables from the feeds, then digest them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				reports, err := a.Run(ctx, args...)
				printReports(cmd.OutOrStdout(), reports)
				return err
			})
		},
	}
}

func refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh [profile...]",
		Short: "Rebuild the active tables from the feeds without summarizing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				reports, err := a.Refresh(ctx, args...)
				printReports(cmd.OutOrStdout(), reports)
				return err
			})
		},
	}
}

func digestCmd() *cobra.Command {
	var test bool
	cmd := &cobra.Command{
		Use:   "digest [profile...]",
		Short: "Summarize the active rows, publish the digest and archive the rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				reports, err := a.Digest(ctx, test, args...)
				printReports(cmd.OutOrStdout(), reports)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&test, "test", false, "Send to the Testing list only and keep the active rows")
	return cmd
}

func videosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "videos [profile...]",
		Short: "Upload the newest rendered video of each profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				attempts, err := a.Videos(ctx, args...)
				for _, at := range attempts {
					printAttempt(cmd.OutOrStdout(), at)
				}
				return err
			})
		},
	}
}

func scheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run every profile on the configured interval until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				return a.Schedule(ctx)
			})
		},
	}
}

func linkedinCmd() *cobra.Command {
	linkedin := &cobra.Command{
		Use:   "linkedin",
		Short: "Manage LinkedIn posts",
	}

	var profileName string
	deleteCmd := &cobra.Command{
		Use:   "delete [urn]",
		Short: "Delete a post; without a urn the last published post is deleted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var urn string
			if len(args) == 1 {
				urn = args[0]
			}
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				deleted, err := a.DeletePost(ctx, profileName, urn)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", deleted)
				return nil
			})
		},
	}
	deleteCmd.Flags().StringVar(&profileName, "profile", "", "Profile whose publisher is used (default: first profile)")
	linkedin.AddCommand(deleteCmd)
	return linkedin
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [profile...]",
		Short: "Create the active, archive, email and video tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				return a.Init(ctx, args...)
			})
		},
	}
}

func printReports(w io.Writer, reports []domain.RunReport) {
	for _, r := range reports {
		stage := string(r.Stage)
		if r.Stage == domain.StageFailed {
			stage = fmt.Sprintf("failed at %s", r.FailedStage)
		}
		fmt.Fprintf(w, "%s [%s] %s: new=%d summarized=%d failed=%d archived=%d\n",
			r.Profile, r.RunID, stage, r.NewRows, r.Summarized, r.Failed, r.Archived)
		if r.DocumentRef != "" {
			fmt.Fprintf(w, "  document: %s\n", r.DocumentRef)
		}
		for _, at := range r.Attempts {
			printAttempt(w, at)
		}
	}
}

func printAttempt(w io.Writer, at domain.PublishAttempt) {
	switch {
	case at.Success:
		fmt.Fprintf(w, "  %s: ok %s\n", at.Channel, at.Ref)
	case at.Skipped:
		fmt.Fprintf(w, "  %s: skipped %s\n", at.Channel, at.Error)
	default:
		fmt.Fprintf(w, "  %s: failed %s\n", at.Channel, at.Error)
	}
}
