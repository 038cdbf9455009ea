package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/khrees2412/talentflow/internal/config"
	"github.com/khrees2412/talentflow/internal/database"
	apperrors "github.com/khrees2412/talentflow/internal/errors"
	"github.com/khrees2412/talentflow/internal/interview"
	"github.com/khrees2412/talentflow/internal/messaging"
	"github.com/khrees2412/talentflow/internal/notify"
	"github.com/khrees2412/talentflow/internal/pipeline"
	"github.com/khrees2412/talentflow/internal/requisition"
	"github.com/khrees2412/talentflow/internal/sequence"
	"github.com/khrees2412/talentflow/internal/telemetry"
	"github.com/khrees2412/talentflow/pkg/models"
)

// App is the dependency container for the CLI application
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Store  *database.Store

	// NATS is nil unless nats_url is configured
	NATS *nats.Conn
	// LocalMailer delivers mail in-process; the serve command puts it
	// behind the NATS mail gateway
	LocalMailer notify.Mailer

	Dispatcher *notify.Dispatcher
	Candidates *pipeline.Service
	Jobs       *requisition.Service
	Interviews *interview.Service

	closers []func()
}

// NewApp loads the configuration file and builds the container
func NewApp(ctx context.Context, configFile string) (*App, error) {
	if err := config.Initialize(configFile); err != nil {
		return nil, fmt.Errorf("failed to initialize config: %w", err)
	}
	return New(ctx, config.AppConfig)
}

// NewLogger builds a production logger unless format is "development"
func NewLogger(format string) (*zap.Logger, error) {
	if strings.EqualFold(format, "development") {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// New wires every component from cfg. Optional backends (NATS, Redis,
// tracing) are only set up when configured.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := NewLogger(cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	a := &App{Config: cfg, Logger: logger}
	a.closers = append(a.closers, func() { _ = logger.Sync() })

	shutdown, err := telemetry.InitTracer(ctx, telemetry.ServiceName, cfg.TracingEndpoint)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.closers = append(a.closers, shutdown)

	store, err := database.Open(cfg.DatabasePath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.Store = store
	a.closers = append(a.closers, func() { _ = store.Close() })

	a.LocalMailer = notify.NewLogMailer(logger.Named("mail"))
	var mailer notify.Mailer = a.LocalMailer
	dispatchOpts := []notify.Option{notify.WithFrom(cfg.MailFrom)}

	if cfg.NATSURL != "" {
		conn, err := messaging.Connect(cfg.NATSURL, telemetry.ServiceName, 5*time.Second)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.NATS = conn
		a.closers = append(a.closers, func() { _ = conn.Drain() })
		mailer = messaging.NewNATSMailer(conn, cfg.MailSubject, 10*time.Second, logger)
		dispatchOpts = append(dispatchOpts, notify.WithPublisher(
			messaging.NewNotificationPublisher(conn, cfg.NotificationSubject, logger)))
	}

	seq, err := a.sequencer(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Dispatcher = notify.NewDispatcher(store, mailer, notify.DefaultRenderer(), logger.Named("notify"), dispatchOpts...)
	a.Candidates = pipeline.NewService(store, a.Dispatcher, pipeline.Config{
		CoolingOffFresher:     time.Duration(cfg.CoolingOffFresherDays) * 24 * time.Hour,
		CoolingOffExperienced: time.Duration(cfg.CoolingOffExperiencedDays) * 24 * time.Hour,
		StrictTransitions:     cfg.StrictTransitions,
		LinksBaseURL:          cfg.LinksBaseURL,
	}, logger.Named("pipeline"))
	a.Jobs = requisition.NewService(store, seq, a.Dispatcher, a.Candidates, logger.Named("requisition"))
	a.Interviews = interview.NewService(store, a.Dispatcher, cfg.LinksBaseURL, logger.Named("interview"))
	return a, nil
}

func (a *App) sequencer(ctx context.Context) (sequence.Sequencer, error) {
	if a.Config.RedisAddr == "" {
		return sequence.NewStore(a.Store), nil
	}
	r := sequence.NewRedis(sequence.RedisOptions{
		Addr:     a.Config.RedisAddr,
		Password: a.Config.RedisPassword,
		DB:       a.Config.RedisDB,
	})
	if err := r.Ping(ctx); err != nil {
		_ = r.Close()
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = r.Close() })
	a.Logger.Debug("job counters backed by redis", zap.String("addr", a.Config.RedisAddr))
	return r, nil
}

// Actor resolves the acting user: override when given, else actor_id
func (a *App) Actor(ctx context.Context, override string) (*models.User, error) {
	id := strings.TrimSpace(override)
	if id == "" {
		id = a.Config.ActorID
	}
	if id == "" {
		return nil, apperrors.Unauthorized("no acting user: pass --as or set actor_id", nil)
	}
	u, err := a.Store.GetUser(ctx, id)
	if apperrors.Is(err, apperrors.ErrTypeNotFound) {
		return nil, apperrors.Unauthorized(fmt.Sprintf("unknown acting user %q", id), err)
	}
	return u, err
}

// Close releases resources in reverse order of acquisition
func (a *App) Close() error {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	return nil
}
