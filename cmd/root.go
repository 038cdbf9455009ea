package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/khrees2412/talentflow/internal/app"
	"github.com/khrees2412/talentflow/pkg/models"
)

var (
	configFile    string
	actorOverride string
	jsonOutput    bool
)

// skipAppAnnotation marks commands that run without the database and services
const skipAppAnnotation = "talentflow/skip-app"

var rootCmd = &cobra.Command{
	Use:   "talentflow",
	Short: "Recruitment pipeline tracker",
	Long: `Talentflow tracks candidates from registration to onboarding.
It manages job requisitions and referrals, BU approvals, interview rounds,
notifications and freelancer incentives.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _, skip := cmd.Annotations[skipAppAnnotation]; skip {
			return nil
		}
		application, err := app.NewApp(cmd.Context(), configFile)
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}
		cmd.SetContext(app.WithApp(cmd.Context(), application))
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if a := app.FromContext(cmd.Context()); a != nil {
			return a.Close()
		}
		return nil
	},
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, err := rootCmd.ExecuteContextC(ctx)
	if err != nil {
		if a := app.FromContext(cmd.Context()); a != nil {
			a.Close()
		}
		w := cmd.ErrOrStderr()
		if jsonOutput {
			w = cmd.OutOrStdout()
		}
		reportError(w, err)
		stop()
		os.Exit(1)
	}
}

func mustApp(cmd *cobra.Command) (*app.App, error) {
	a := app.FromContext(cmd.Context())
	if a == nil {
		return nil, fmt.Errorf("application not initialized")
	}
	return a, nil
}

// session returns the container and the acting user
func session(cmd *cobra.Command) (*app.App, *models.User, error) {
	a, err := mustApp(cmd)
	if err != nil {
		return nil, nil, err
	}
	actor, err := a.Actor(cmd.Context(), actorOverride)
	if err != nil {
		return nil, nil, err
	}
	return a, actor, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ~/.talentflow/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&actorOverride, "as", "", "user id to act as (overrides actor_id)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as a JSON envelope")
}
