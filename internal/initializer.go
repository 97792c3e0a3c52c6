package internal

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/torao/kazzla/internal/config"
	"github.com/torao/kazzla/internal/credentials"
	"github.com/torao/kazzla/internal/managers"
	"github.com/torao/kazzla/internal/metrics"
	"github.com/torao/kazzla/internal/migrations"
	"github.com/torao/kazzla/internal/refdata"
	"github.com/torao/kazzla/internal/routing"
	"github.com/torao/kazzla/internal/utils"
)

const shutdownTimeout = 10 * time.Second

// Serve runs the HTTP server until SIGINT or SIGTERM.
func Serve(cfg *config.Config) error {
	SetLogLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := initializeDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	// Initialize database manager
	databaseMgr := managers.NewDatabaseManager(pool)

	catalog, err := refdata.Load(ctx, pool)
	if err != nil {
		return err
	}

	m := metrics.New()

	// Initialize mail manager
	mailMgr, closeMail, err := initializeMail(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer closeMail()

	// Initialize JWT manager
	jwtMgr, err := managers.NewJWTManagerFromFile(cfg.KeyPath)
	if err != nil {
		return err
	}

	passwords := credentials.NewStore(cfg.PasswordScheme)
	log.Infof("Hashing new passwords with %s", passwords.Scheme())

	tokenMgr := managers.NewTokenManager(m)
	go purgeTokens(ctx, tokenMgr, databaseMgr, cfg.PurgeInterval)

	// Initialize router
	r := routing.InitRouter(databaseMgr, mailMgr, jwtMgr, catalog, routing.Options{
		Metrics:       m,
		TokenMgr:      tokenMgr,
		Credentials:   passwords,
		TokenTTL:      cfg.TokenTTL,
		PublicBaseURL: cfg.PublicBaseURL,
		AllowOrigins:  cfg.AllowOrigins,
		CookieSecure:  cfg.CookieSecure,
		ApiVersion:    cfg.ApiVersion,
	})
	log.Println("Initialized router")

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Starting server on port %s...\n", cfg.Port)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// Migrate applies the embedded schema migrations in the given direction.
func Migrate(cfg *config.Config, direction migrations.Direction) error {
	SetLogLevel(cfg.LogLevel)

	dsn, err := cfg.DatabaseURL()
	if err != nil {
		return err
	}
	log.Infof("Running migrations %s", direction)
	return migrations.Run(context.Background(), dsn, direction)
}

func initializeDatabase(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	log.Info("Initializing database")

	url, err := cfg.DatabaseURL()
	if err != nil {
		return nil, err
	}
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}

	poolConfig.MinConns = cfg.DBMinConns
	poolConfig.MaxConns = cfg.DBMaxConns
	poolConfig.MaxConnIdleTime = time.Minute * 2
	poolConfig.HealthCheckPeriod = time.Minute * 1

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	log.Info("Connected to database")
	return pool, nil
}

// initializeMail sends mails inline, or through RabbitMQ when MAIL_QUEUE_URL is set. The returned func
// releases the queue connection.
func initializeMail(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (managers.MailMgr, func(), error) {
	direct := managers.NewMailManager(managers.MailConfig{
		Environment: cfg.Environment,
		Domain:      cfg.MailDomain,
		APIKey:      cfg.MailAPIKey,
		From:        cfg.MailSender,
		ProductLink: cfg.PublicBaseURL,
	}, m)
	if cfg.AMQPURL == "" {
		return direct, func() {}, nil
	}

	queued, err := managers.NewQueuedMailManager(cfg.AMQPURL, cfg.MailQueueName, direct)
	if err != nil {
		return nil, nil, err
	}
	go func() {
		if err := queued.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("Mail worker stopped: %v", err)
		}
	}()
	return queued, func() { _ = queued.Close() }, nil
}

// purgeTokens deletes expired tokens every interval until ctx is done.
func purgeTokens(ctx context.Context, tokenMgr managers.TokenMgr, databaseMgr managers.DatabaseMgr, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := tokenMgr.Purge(ctx, databaseMgr.GetPool())
			if err != nil {
				utils.LogMessage("error", "Purging expired tokens failed: "+err.Error())
				continue
			}
			if purged > 0 {
				utils.LogMessage("info", "Purged "+strconv.FormatInt(purged, 10)+" expired tokens")
			}
		}
	}
}

func SetLogLevel(logLevel string) {
	switch logLevel {
	case "DEBUG":
		log.SetLevel(log.DebugLevel)
	case "INFO":
		log.SetLevel(log.InfoLevel)
	case "WARN":
		log.SetLevel(log.WarnLevel)
	case "ERROR":
		log.SetLevel(log.ErrorLevel)
	case "FATAL":
		log.SetLevel(log.FatalLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}

	log.SetReportCaller(true)

	log.SetOutput(os.Stdout)
}
