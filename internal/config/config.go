package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"partyvote/internal/store"
)

// EnvPrefix prefixes every environment variable, e.g. PARTYVOTE_STORE
const EnvPrefix = "PARTYVOTE"

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Store   StoreConfig
	Game    GameConfig
	Discord DiscordConfig
	Logging LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host string
	Port int
	Env  string // "development" or "production"
}

// StoreConfig selects and configures the state store
type StoreConfig struct {
	Kind        string
	BoltPath    string
	PostgresDSN string
	RedisURL    string
	Timeout     time.Duration
}

// GameConfig holds chat-game configuration
type GameConfig struct {
	MainChannel        string
	DirectoryCacheSize int
}

// DiscordConfig enables the Discord adapter when Token is set
type DiscordConfig struct {
	Token   string
	Channel string
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // "json" or "text"
}

// Validate reports the first invalid option
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Server.Port)
	}
	if c.Server.Env != "development" && c.Server.Env != "production" {
		return fmt.Errorf("invalid env %q (must be development or production)", c.Server.Env)
	}

	switch c.Store.Kind {
	case store.KindMemory:
	case store.KindBolt:
		if c.Store.BoltPath == "" {
			return errors.New("--bolt-path is required with --store=bolt")
		}
	case store.KindPostgres:
		if c.Store.PostgresDSN == "" {
			return errors.New("--postgres-dsn is required with --store=postgres")
		}
	case store.KindRedis:
		if c.Store.RedisURL == "" {
			return errors.New("--redis-url is required with --store=redis")
		}
	default:
		return fmt.Errorf("unknown store %q (must be memory, bolt, postgres or redis)", c.Store.Kind)
	}
	if c.Store.Timeout <= 0 {
		return fmt.Errorf("invalid store timeout: %s", c.Store.Timeout)
	}

	if strings.TrimSpace(c.Game.MainChannel) == "" {
		return errors.New("--main-channel must not be empty")
	}
	if c.Discord.Channel != "" && c.Discord.Token == "" {
		return errors.New("--discord-channel requires --discord-token")
	}

	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid log format %q (must be text or json)", c.Logging.Format)
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// GetAddr returns the server address in host:port format
func (c *Config) GetAddr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// LogLevel returns the slog level for Logging.Level
func (c *Config) LogLevel() slog.Level {
	level, _ := parseLogLevel(c.Logging.Level)
	return level
}

func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level %q", level)
}

// NewCommand builds the root command. Flags fall back to PARTYVOTE_*
// environment variables; run is called with the validated config.
func NewCommand(cfg *Config, version string, run func(ctx context.Context, cfg *Config) error) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:     "partyvote",
		Short:   "Chat party game: kill and prayer votes plus a shared tic-tac-toe board.",
		Args:    cobra.ExactArgs(0),
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Server.Host, "bind", "b", "0.0.0.0", "address to bind to (env: PARTYVOTE_BIND)")
	fs.IntVarP(&cfg.Server.Port, "port", "p", 8080, "port to listen on (env: PARTYVOTE_PORT)")
	fs.StringVar(&cfg.Server.Env, "env", "development", "development or production (env: PARTYVOTE_ENV)")
	fs.StringVar(&cfg.Logging.Level, "log-level", "info", "debug, info, warn or error (env: PARTYVOTE_LOG_LEVEL)")
	fs.StringVar(&cfg.Logging.Format, "log-format", "text", "text or json (env: PARTYVOTE_LOG_FORMAT)")
	fs.StringVar(&cfg.Store.Kind, "store", store.KindBolt, "state store: memory, bolt, postgres or redis (env: PARTYVOTE_STORE)")
	fs.StringVar(&cfg.Store.BoltPath, "bolt-path", "partyvote.db", "bbolt database file (env: PARTYVOTE_BOLT_PATH)")
	fs.StringVar(&cfg.Store.PostgresDSN, "postgres-dsn", "", "postgres connection string (env: PARTYVOTE_POSTGRES_DSN)")
	fs.StringVar(&cfg.Store.RedisURL, "redis-url", "", "redis url, e.g. redis://localhost:6379/0 (env: PARTYVOTE_REDIS_URL)")
	fs.DurationVar(&cfg.Store.Timeout, "store-timeout", 5*time.Second, "bound on every store round trip (env: PARTYVOTE_STORE_TIMEOUT)")
	fs.StringVar(&cfg.Game.MainChannel, "main-channel", "main_chat", "only channel that accepts votes and moves (env: PARTYVOTE_MAIN_CHANNEL)")
	fs.IntVar(&cfg.Game.DirectoryCacheSize, "directory-cache", 256, "display names kept in memory (env: PARTYVOTE_DIRECTORY_CACHE)")
	fs.StringVar(&cfg.Discord.Token, "discord-token", "", "discord bot token, enables the discord adapter (env: PARTYVOTE_DISCORD_TOKEN)")
	fs.StringVar(&cfg.Discord.Channel, "discord-channel", "", "discord channel id for vote summaries (env: PARTYVOTE_DISCORD_CHANNEL)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("partyvote v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
