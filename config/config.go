package config

import (
	"adgate/version"
	"flag"
	"fmt"
	"os"
	"strconv"
)

// Config holds adgate runtime configuration.
type Config struct {
	LogLevel    string
	LogFilePath string
	Port        int
	DatabaseURL string

	// SQLite tuning
	SQLitePragmasEnabled bool
	SQLiteBusyTimeoutMS  int
	SQLiteJournalMode    string
	SQLiteSynchronous    string
	SQLiteForeignKeys    bool
	SQLiteMaxOpenConns   int
	SQLiteMaxIdleConns   int
	SQLiteConnMaxIdleSec int
	SQLiteConnMaxLifeSec int

	// Rewarded-ad unlock
	AdUnlockSecret string // HMAC signing secret; empty disables ticket issuance
	AdUnitID       string // passed through to the client UI, uninterpreted
	AdDemoMode     bool

	// Admin surface
	AdminTokenHash string // bcrypt hash of the admin token; empty disables admin endpoints

	// Tunable limits
	ConsumeMaxRetries int // bounded retries for the atomic debit on transient SQLite errors
	MaxAdEvents       int // ad event rows kept before pruning
	MaxErrorLogs      int // error log rows kept before pruning

	CLIMode   bool
	CLIServer string // Server URL for CLI mode
	CLIToken  string // Admin token presented by the CLI
}

// Settings is the global configuration instance populated from environment variables and flags.
var Settings *Config

func init() {
	Settings = &Config{
		LogLevel:    getEnv("LOG_LEVEL", "INFO"),
		LogFilePath: getEnv("LOG_FILE", "./adgate.log"),
		Port:        getEnvInt("PORT", 8080),
		DatabaseURL: getEnv("DATABASE_URL", "adgate.db"),

		SQLitePragmasEnabled: getEnvBool("SQLITE_PRAGMAS_ENABLED", true),
		SQLiteBusyTimeoutMS:  getEnvInt("SQLITE_BUSY_TIMEOUT_MS", 5000),
		SQLiteJournalMode:    getEnv("SQLITE_JOURNAL_MODE", "WAL"),
		SQLiteSynchronous:    getEnv("SQLITE_SYNCHRONOUS", "NORMAL"),
		SQLiteForeignKeys:    getEnvBool("SQLITE_FOREIGN_KEYS", true),
		SQLiteMaxOpenConns:   getEnvInt("SQLITE_MAX_OPEN_CONNS", 1),
		SQLiteMaxIdleConns:   getEnvInt("SQLITE_MAX_IDLE_CONNS", 1),
		SQLiteConnMaxIdleSec: getEnvInt("SQLITE_CONN_MAX_IDLE_SECONDS", 300),
		SQLiteConnMaxLifeSec: getEnvInt("SQLITE_CONN_MAX_LIFETIME_SECONDS", 0),

		AdUnlockSecret: getEnv("QUIZ_AD_UNLOCK_SECRET", ""),
		AdUnitID:       getEnv("WEAPP_REWARDED_AD_UNIT_ID", ""),
		AdDemoMode:     getEnvBool("QUIZ_AD_DEMO", false),

		AdminTokenHash: getEnv("ADMIN_TOKEN_HASH", ""),

		ConsumeMaxRetries: getEnvInt("CONSUME_MAX_RETRIES", 3),
		MaxAdEvents:       getEnvInt("MAX_AD_EVENTS", 1000),
		MaxErrorLogs:      getEnvInt("MAX_ERROR_LOGS", 100),

		CLIMode: getEnvBool("CLI_MODE", false),
	}
}

// ParseFlags parses command-line flags, applies any overrides to the package-level
// Settings, and handles --help and --version.
func ParseFlags() {
	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintf(out, "adgate - freemium quota & ad-unlock entitlement service\n\n")
		fmt.Fprintf(out, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintln(out, "Options:")
		flag.PrintDefaults()
		fmt.Fprintln(out, "\nEnvironment variables:")
		fmt.Fprintln(out, "  LOG_LEVEL                         Log level (DEBUG, INFO, WARN, ERROR)")
		fmt.Fprintln(out, "  LOG_FILE                          Log file path (default ./adgate.log)")
		fmt.Fprintln(out, "  PORT                              HTTP server port (default 8080)")
		fmt.Fprintln(out, "  DATABASE_URL                      SQLite database path (default adgate.db)")
		fmt.Fprintln(out, "  SQLITE_PRAGMAS_ENABLED            Enable SQLite PRAGMAs (true/false, default true)")
		fmt.Fprintln(out, "  SQLITE_BUSY_TIMEOUT_MS            SQLite busy_timeout in milliseconds (default 5000)")
		fmt.Fprintln(out, "  SQLITE_JOURNAL_MODE               SQLite journal_mode (default WAL)")
		fmt.Fprintln(out, "  SQLITE_SYNCHRONOUS                SQLite synchronous (default NORMAL)")
		fmt.Fprintln(out, "  SQLITE_FOREIGN_KEYS               Enable SQLite foreign_keys (true/false, default true)")
		fmt.Fprintln(out, "  SQLITE_MAX_OPEN_CONNS             SQLite MaxOpenConns (default 1)")
		fmt.Fprintln(out, "  SQLITE_MAX_IDLE_CONNS             SQLite MaxIdleConns (default 1)")
		fmt.Fprintln(out, "  SQLITE_CONN_MAX_IDLE_SECONDS      SQLite ConnMaxIdleTime in seconds (default 300)")
		fmt.Fprintln(out, "  SQLITE_CONN_MAX_LIFETIME_SECONDS  SQLite ConnMaxLifetime in seconds (default 0)")
		fmt.Fprintln(out, "  QUIZ_AD_UNLOCK_SECRET             HMAC secret for ad tickets (empty disables issuance)")
		fmt.Fprintln(out, "  WEAPP_REWARDED_AD_UNIT_ID         Rewarded ad unit id passed through to clients")
		fmt.Fprintln(out, "  QUIZ_AD_DEMO                      Report demo mode to clients (true/false, default false)")
		fmt.Fprintln(out, "  ADMIN_TOKEN_HASH                  bcrypt hash of the admin token (empty disables admin API)")
		fmt.Fprintln(out, "  CONSUME_MAX_RETRIES               Retries for transient SQLite errors on debit (default 3)")
		fmt.Fprintln(out, "  MAX_AD_EVENTS                     Ad event rows kept before pruning (default 1000)")
		fmt.Fprintln(out, "  MAX_ERROR_LOGS                    Error log rows kept before pruning (default 100)")
	}

	port := flag.Int("port", Settings.Port, "HTTP server port (overrides PORT)")
	db := flag.String("db", Settings.DatabaseURL, "SQLite database path (overrides DATABASE_URL)")
	sqlitePragmasEnabled := flag.Bool("sqlite-pragmas", Settings.SQLitePragmasEnabled, "Enable SQLite PRAGMAs (overrides SQLITE_PRAGMAS_ENABLED)")
	sqliteBusyTimeoutMS := flag.Int("sqlite-busy-timeout-ms", Settings.SQLiteBusyTimeoutMS, "SQLite busy_timeout in milliseconds (overrides SQLITE_BUSY_TIMEOUT_MS)")
	sqliteJournalMode := flag.String("sqlite-journal-mode", Settings.SQLiteJournalMode, "SQLite journal_mode (overrides SQLITE_JOURNAL_MODE)")
	sqliteSynchronous := flag.String("sqlite-synchronous", Settings.SQLiteSynchronous, "SQLite synchronous (overrides SQLITE_SYNCHRONOUS)")
	sqliteForeignKeys := flag.Bool("sqlite-foreign-keys", Settings.SQLiteForeignKeys, "Enable SQLite foreign_keys PRAGMA (overrides SQLITE_FOREIGN_KEYS)")
	sqliteMaxOpenConns := flag.Int("sqlite-max-open-conns", Settings.SQLiteMaxOpenConns, "SQLite MaxOpenConns (overrides SQLITE_MAX_OPEN_CONNS)")
	sqliteMaxIdleConns := flag.Int("sqlite-max-idle-conns", Settings.SQLiteMaxIdleConns, "SQLite MaxIdleConns (overrides SQLITE_MAX_IDLE_CONNS)")
	sqliteConnMaxIdleSec := flag.Int("sqlite-conn-max-idle-seconds", Settings.SQLiteConnMaxIdleSec, "SQLite ConnMaxIdleTime in seconds (overrides SQLITE_CONN_MAX_IDLE_SECONDS)")
	sqliteConnMaxLifeSec := flag.Int("sqlite-conn-max-lifetime-seconds", Settings.SQLiteConnMaxLifeSec, "SQLite ConnMaxLifetime in seconds (overrides SQLITE_CONN_MAX_LIFETIME_SECONDS)")
	logLevel := flag.String("log-level", Settings.LogLevel, "Log level: DEBUG, INFO, WARN, ERROR (overrides LOG_LEVEL)")
	logFile := flag.String("log-file", Settings.LogFilePath, "Log file path (overrides LOG_FILE)")
	consumeMaxRetries := flag.Int("consume-max-retries", Settings.ConsumeMaxRetries, "Retries for transient SQLite errors on debit (overrides CONSUME_MAX_RETRIES)")
	maxAdEvents := flag.Int("max-ad-events", Settings.MaxAdEvents, "Ad event rows kept before pruning (overrides MAX_AD_EVENTS)")
	maxErrorLogs := flag.Int("max-error-logs", Settings.MaxErrorLogs, "Error log rows kept before pruning (overrides MAX_ERROR_LOGS)")
	cliMode := flag.Bool("cli", Settings.CLIMode, "Run in CLI mode (HTTP client only, no database)")
	cliServer := flag.String("server", "http://localhost:8080", "Server URL for CLI mode")
	cliToken := flag.String("token", "", "Admin token for CLI mode")

	showHelp := flag.Bool("help", false, "Show help and exit")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}
	if *showVersion {
		fmt.Println(version.GetBuildInfo())
		os.Exit(0)
	}

	Settings.Port = *port
	Settings.DatabaseURL = *db
	Settings.SQLitePragmasEnabled = *sqlitePragmasEnabled
	Settings.SQLiteBusyTimeoutMS = *sqliteBusyTimeoutMS
	Settings.SQLiteJournalMode = *sqliteJournalMode
	Settings.SQLiteSynchronous = *sqliteSynchronous
	Settings.SQLiteForeignKeys = *sqliteForeignKeys
	Settings.SQLiteMaxOpenConns = *sqliteMaxOpenConns
	Settings.SQLiteMaxIdleConns = *sqliteMaxIdleConns
	Settings.SQLiteConnMaxIdleSec = *sqliteConnMaxIdleSec
	Settings.SQLiteConnMaxLifeSec = *sqliteConnMaxLifeSec
	Settings.LogLevel = *logLevel
	Settings.LogFilePath = *logFile
	Settings.ConsumeMaxRetries = *consumeMaxRetries
	Settings.MaxAdEvents = *maxAdEvents
	Settings.MaxErrorLogs = *maxErrorLogs
	Settings.CLIMode = *cliMode
	Settings.CLIServer = *cliServer
	Settings.CLIToken = *cliToken
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
