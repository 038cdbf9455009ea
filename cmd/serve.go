package cmd

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/khrees2412/talentflow/internal/app"
	"github.com/khrees2412/talentflow/internal/messaging"
	"github.com/khrees2412/talentflow/internal/requisition"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run background workers",
	Long: `Serve runs the expired-job sweeper and, when nats_url is configured, the
mail gateway that delivers emails queued by other talentflow processes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := mustApp(cmd)
		if err != nil {
			return err
		}
		workers := fx.New(workerOptions(a))
		if err := workers.Err(); err != nil {
			return err
		}

		startCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := workers.Start(startCtx); err != nil {
			return err
		}
		a.Logger.Info("workers running", zap.Bool("mail_gateway", a.NATS != nil))

		<-cmd.Context().Done()

		stopCtx, cancelStop := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelStop()
		return workers.Stop(stopCtx)
	},
}

func workerOptions(a *app.App) fx.Option {
	opts := []fx.Option{
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: a.Logger.Named("fx")}
		}),
		fx.Supply(a.Logger, a.Jobs),
		fx.Provide(func(svc *requisition.Service, logger *zap.Logger) *requisition.Sweeper {
			return requisition.NewSweeper(svc, a.Config.SweepInterval, logger.Named("sweeper"))
		}),
		fx.Invoke(registerSweeper),
	}
	if a.NATS != nil {
		opts = append(opts,
			fx.Supply(a.NATS),
			fx.Provide(func(logger *zap.Logger, nc *nats.Conn) *messaging.MailGateway {
				return messaging.NewMailGateway(logger.Named("mail-gateway"), nc, a.LocalMailer, a.Config.MailSubject)
			}),
			fx.Invoke(func(g *messaging.MailGateway, lc fx.Lifecycle) error {
				return g.RegisterSubscriptions(lc)
			}),
		)
	}
	return fx.Options(opts...)
}

func registerSweeper(s *requisition.Sweeper, lc fx.Lifecycle, logger *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				if err := s.Start(ctx); err != nil && ctx.Err() == nil {
					logger.Error("sweeper stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
