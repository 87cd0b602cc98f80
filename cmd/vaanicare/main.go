package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/vaanicare/vaanicare/internal/api"
	"github.com/vaanicare/vaanicare/internal/genai"
	"github.com/vaanicare/vaanicare/internal/lockfile"
	"github.com/vaanicare/vaanicare/internal/notify"
	"github.com/vaanicare/vaanicare/internal/store"
	"github.com/vaanicare/vaanicare/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for VaaniCare state data
	DefaultStateDir = "/var/lib/vaanicare"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "vaanicare.db"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	// A file-based store must not be shared between instances
	if *flags.redisAddr == "" && *flags.dbDSN != "" && store.DetectDSNType(*flags.dbDSN) == "sqlite3" {
		lock, err := lockfile.AcquireLock(filepath.Dir(*flags.dbDSN))
		if err != nil {
			slog.Error("Failed to acquire state directory lock", "error", err)
			os.Exit(1)
		}
		defer lock.Release()
	}

	// Build module options
	storeOpts := buildStoreOptions(flags)
	genaiOpts := buildGenAIOptions(flags)
	notifyOpts := buildNotifyOptions(flags)
	apiOpts := buildAPIOptions(flags)

	// Start the service
	slog.Info("Bootstrapping VaaniCare with configured modules")
	slog.Debug("Module options counts", "store", len(storeOpts), "genai", len(genaiOpts), "notify", len(notifyOpts), "api", len(apiOpts))
	slog.Debug("Final configuration", "state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "", "redis_set", *flags.redisAddr != "", "api_addr", *flags.apiAddr)
	if err := api.Run(storeOpts, genaiOpts, notifyOpts, apiOpts); err != nil {
		slog.Error("VaaniCare failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("VaaniCare exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL string
	RedisAddr   string
	StateDir    string
	GroqKey     string
	GroqBaseURL string
	GroqModel   string
	APIAddr     string
	TwilioSID   string
	TwilioToken string
	TwilioFrom  string
}

// Flags holds command line flag values
type Flags struct {
	stateDir    *string
	dbDSN       *string
	redisAddr   *string
	groqKey     *string
	groqBaseURL *string
	groqModel   *string
	apiAddr     *string
	twilioSID   *string
	twilioToken *string
	twilioFrom  *string
}

// initializeLogger sets up structured logging. Debug output is on unless
// VAANICARE_DEBUG is explicitly disabled.
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("VAANICARE_DEBUG", true) {
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
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		StateDir:    os.Getenv("VAANICARE_STATE_DIR"),
		GroqKey:     os.Getenv("GROQ_API_KEY"),
		GroqBaseURL: os.Getenv("GROQ_BASE_URL"),
		GroqModel:   os.Getenv("GROQ_MODEL"),
		APIAddr:     os.Getenv("API_ADDR"),
		TwilioSID:   os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioToken: os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:  os.Getenv("TWILIO_FROM_NUMBER"),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No VAANICARE_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	} else {
		slog.Debug("VAANICARE_STATE_DIR found in environment", "state_dir", config.StateDir)
	}

	// If neither a database URL nor Redis is provided, default to SQLite in
	// the state directory
	if config.DatabaseURL == "" && config.RedisAddr == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"REDIS_ADDR_SET", config.RedisAddr != "",
		"VAANICARE_STATE_DIR", config.StateDir,
		"GROQ_API_KEY_SET", config.GroqKey != "",
		"API_ADDR", config.APIAddr,
		"TWILIO_ACCOUNT_SID_SET", config.TwilioSID != "")

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:    flag.String("state-dir", config.StateDir, "state directory for VaaniCare data (overrides $VAANICARE_STATE_DIR)"),
		dbDSN:       flag.String("db-dsn", config.DatabaseURL, "database DSN for the store (overrides $DATABASE_URL)"),
		redisAddr:   flag.String("redis-addr", config.RedisAddr, "Redis address for the session store (overrides $REDIS_ADDR)"),
		groqKey:     flag.String("groq-api-key", config.GroqKey, "Groq API key for the LLM backend (overrides $GROQ_API_KEY)"),
		groqBaseURL: flag.String("groq-base-url", config.GroqBaseURL, "OpenAI-compatible base URL (overrides $GROQ_BASE_URL)"),
		groqModel:   flag.String("groq-model", config.GroqModel, "chat model name (overrides $GROQ_MODEL)"),
		apiAddr:     flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		twilioSID:   flag.String("twilio-account-sid", config.TwilioSID, "Twilio account SID for SMS (overrides $TWILIO_ACCOUNT_SID)"),
		twilioToken: flag.String("twilio-auth-token", config.TwilioToken, "Twilio auth token for SMS (overrides $TWILIO_AUTH_TOKEN)"),
		twilioFrom:  flag.String("twilio-from-number", config.TwilioFrom, "Twilio sending number in E.164 format (overrides $TWILIO_FROM_NUMBER)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"redisAddr_set", *flags.redisAddr != "",
		"groqKeySet", *flags.groqKey != "",
		"apiAddr", *flags.apiAddr)

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "dsn_updated", true, "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	// Ensure state directory exists if we're using a file-based DSN
	if *flags.dbDSN != "" && !strings.Contains(*flags.dbDSN, "postgres://") && !strings.Contains(*flags.dbDSN, "host=") {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
			return err
		}
		slog.Debug("State directory created successfully", "state_dir", stateDir)
	}
	return nil
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.redisAddr != "" {
		slog.Debug("Redis address provided, configuring Redis store", "addr", *flags.redisAddr)
		storeOpts = append(storeOpts, store.WithRedisAddr(*flags.redisAddr))
		return storeOpts
	}
	if *flags.dbDSN != "" {
		// Check if it's a PostgreSQL DSN using the shared detection function
		if store.DetectDSNType(*flags.dbDSN) == "postgres" {
			slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql", "dsn_set", true)
			storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
		} else {
			// Assume SQLite for file paths
			slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", *flags.dbDSN)
			storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
		}
	} else {
		slog.Debug("No database DSN provided, will use in-memory store")
	}
	return storeOpts
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.groqKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.groqKey))
	}
	if *flags.groqBaseURL != "" {
		genaiOpts = append(genaiOpts, genai.WithBaseURL(*flags.groqBaseURL))
	}
	if *flags.groqModel != "" {
		genaiOpts = append(genaiOpts, genai.WithModel(*flags.groqModel))
	}
	return genaiOpts
}

// buildNotifyOptions constructs SMS notification options
func buildNotifyOptions(flags Flags) []notify.Option {
	var notifyOpts []notify.Option
	if *flags.twilioSID != "" {
		notifyOpts = append(notifyOpts, notify.WithAccountSID(*flags.twilioSID))
	}
	if *flags.twilioToken != "" {
		notifyOpts = append(notifyOpts, notify.WithAuthToken(*flags.twilioToken))
	}
	if *flags.twilioFrom != "" {
		notifyOpts = append(notifyOpts, notify.WithFromNumber(*flags.twilioFrom))
	}
	return notifyOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	return apiOpts
}
