package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sarahkitay/cute-schedule/internal/api"
	"github.com/sarahkitay/cute-schedule/internal/coach"
	"github.com/sarahkitay/cute-schedule/internal/finance"
	"github.com/sarahkitay/cute-schedule/internal/genai"
	"github.com/sarahkitay/cute-schedule/internal/lockfile"
	"github.com/sarahkitay/cute-schedule/internal/notify"
	"github.com/sarahkitay/cute-schedule/internal/patterns"
	"github.com/sarahkitay/cute-schedule/internal/reminder"
	"github.com/sarahkitay/cute-schedule/internal/schedule"
	"github.com/sarahkitay/cute-schedule/internal/scheduler"
	"github.com/sarahkitay/cute-schedule/internal/store"
	"github.com/sarahkitay/cute-schedule/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for cute-schedule state data
	DefaultStateDir = "/var/lib/cute-schedule"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "cute-schedule.db"
	// DefaultAPIAddr is the default API listen address
	DefaultAPIAddr = ":8080"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	loc, err := time.LoadLocation(*flags.timezone)
	if err != nil {
		slog.Error("Invalid timezone", "timezone", *flags.timezone, "error", err)
		os.Exit(1)
	}

	lock, err := lockfile.AcquireLock(*flags.stateDir)
	if err != nil {
		slog.Error("Failed to lock state directory", "error", err)
		os.Exit(1)
	}
	defer lock.Release()

	kv, err := openStore(flags)
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer kv.Close()

	if err := run(kv, flags, loc); err != nil {
		slog.Error("cute-schedule failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("cute-schedule exited successfully")
}

// run wires the services and serves until a shutdown signal arrives.
func run(kv store.KV, flags Flags, loc *time.Location) error {
	day, err := schedule.NewStore(kv, schedule.WithLocation(loc))
	if err != nil {
		return err
	}
	analytics, err := patterns.NewEngine(kv)
	if err != nil {
		return err
	}
	policy, err := coach.NewPolicy(kv)
	if err != nil {
		return err
	}

	// The coach runs fallback-only when no API key is configured.
	gateway := coach.NewGateway(nil)
	if *flags.openaiKey != "" {
		client, err := genai.NewClient(genai.WithAPIKey(*flags.openaiKey))
		if err != nil {
			slog.Warn("GenAI client unavailable, coach will use fallback messages", "error", err)
		} else {
			gateway = coach.NewGateway(client)
		}
	} else {
		slog.Info("No OpenAI API key configured, coach will use fallback messages")
	}
	coachSvc := coach.NewCoach(policy, gateway, nil)

	ledger, err := finance.NewLedger(kv)
	if err != nil {
		return err
	}
	push, err := notify.NewPushService(kv)
	if err != nil {
		return err
	}
	sms, err := notify.NewSMSNotifier()
	if err != nil {
		return err
	}
	channels := []notify.Notifier{notify.NewLogNotifier(), push}
	if sms != nil {
		channels = append(channels, sms)
	}
	notifier := notify.NewMulti(channels...)

	reminders := reminder.NewScheduler(day, notifier)
	sprint := reminder.NewSprint(notifier)

	// Rebuild today's timers lost to the restart, then again at each
	// midnight, and keep the pattern log inside its caps hourly.
	reminders.RederiveDay(day.TodayKey())
	cronJobs := scheduler.NewScheduler(loc)
	defer cronJobs.Stop()
	if err := cronJobs.AddDailyAt(0, 0, func() { reminders.RederiveDay(day.TodayKey()) }); err != nil {
		return err
	}
	if err := cronJobs.AddHourly(analytics.Trim); err != nil {
		return err
	}

	srv := api.NewServer(kv, day, analytics, coachSvc, ledger, push, reminders, sprint)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(*flags.apiAddr) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return err
		}
		return <-errCh
	}
}

// openStore picks the backend from the DSN: Postgres for connection
// strings, SQLite for file paths, in-memory when empty.
func openStore(flags Flags) (store.KV, error) {
	dsn := *flags.dbDSN
	if dsn == "" {
		slog.Warn("No database DSN provided, state will not survive restarts")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(dsn) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN", "dsn_set", true)
		return store.NewPostgresStore(store.WithDSN(dsn))
	}
	slog.Debug("Detected SQLite DSN", "db_path", dsn)
	return store.NewSQLiteStore(store.WithDSN(dsn))
}

// Config holds environment configuration
type Config struct {
	DatabaseURL string
	StateDir    string
	OpenAIKey   string
	APIAddr     string
	Timezone    string
}

// Flags holds command line flag values
type Flags struct {
	stateDir  *string
	dbDSN     *string
	openaiKey *string
	apiAddr   *string
	timezone  *string
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("CUTESCHEDULE_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		StateDir:    util.GetenvDefault("CUTESCHEDULE_STATE_DIR", DefaultStateDir),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		APIAddr:     util.GetenvDefault("API_ADDR", DefaultAPIAddr),
		Timezone:    util.GetenvDefault("CUTESCHEDULE_TZ", "Local"),
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No DATABASE_URL provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"CUTESCHEDULE_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"CUTESCHEDULE_TZ", config.Timezone)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:  flag.String("state-dir", config.StateDir, "state directory for cute-schedule data (overrides $CUTESCHEDULE_STATE_DIR)"),
		dbDSN:     flag.String("db-dsn", config.DatabaseURL, "database DSN, SQLite path or Postgres URL (overrides $DATABASE_URL)"),
		openaiKey: flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key for the coach (overrides $OPENAI_API_KEY)"),
		apiAddr:   flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		timezone:  flag.String("timezone", config.Timezone, "IANA timezone for day boundaries (overrides $CUTESCHEDULE_TZ)"),
	}
	flag.Parse()

	// Follow a changed state directory with the default SQLite path
	if *flags.dbDSN == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated db-dsn for state directory", "new_state_dir", *flags.stateDir)
	}

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr,
		"timezone", *flags.timezone)

	return flags
}
