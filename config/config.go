package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sagarc03/servekit"
	servehttp "github.com/sagarc03/servekit/http"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SERVEKIT"

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for servekit.
type Config struct {
	Server   ServerConfig         `mapstructure:"server" yaml:"server"`
	Static   StaticConfig         `mapstructure:"static" yaml:"static"`
	Security SecurityConfig       `mapstructure:"security" yaml:"security"`
	CORS     servehttp.CORSConfig `mapstructure:"cors" yaml:"cors"`
	Log      LogConfig            `mapstructure:"log" yaml:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `mapstructure:"port" yaml:"port" validate:"required,min=1,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" validate:"min=0s"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" validate:"min=0s"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"min=1s"`
}

// StaticConfig holds the served directory and its caching policy.
type StaticConfig struct {
	Root         string        `mapstructure:"root" yaml:"root" validate:"required"`
	Prefix       string        `mapstructure:"prefix" yaml:"prefix" validate:"required,startswith=/"`
	Dotfiles     string        `mapstructure:"dotfiles" yaml:"dotfiles" validate:"required,oneof=ignore allow deny"`
	CacheControl bool          `mapstructure:"cache_control" yaml:"cache_control"`
	MaxAge       time.Duration `mapstructure:"max_age" yaml:"max_age" validate:"min=0s,max=8760h"`
	Immutable    bool          `mapstructure:"immutable" yaml:"immutable"`
	ETag         bool          `mapstructure:"etag" yaml:"etag"`
	LastModified bool          `mapstructure:"last_modified" yaml:"last_modified"`
	AcceptRanges bool          `mapstructure:"accept_ranges" yaml:"accept_ranges"`
	Sniff        bool          `mapstructure:"sniff" yaml:"sniff"`
}

// SecurityConfig holds the security headers added to every response.
type SecurityConfig struct {
	FrameOptions     string `mapstructure:"frame_options" yaml:"frame_options" validate:"omitempty,oneof=SAMEORIGIN DENY"`
	ReferrerPolicy   string `mapstructure:"referrer_policy" yaml:"referrer_policy"`
	ReferrerFallback string `mapstructure:"referrer_fallback" yaml:"referrer_fallback"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`
}

// Handler converts the configuration into the router's HandlerConfig.
func (c *Config) Handler() (*servehttp.HandlerConfig, error) {
	dotfiles, err := servekit.ParseDotfilesPolicy(c.Static.Dotfiles)
	if err != nil {
		return nil, fmt.Errorf("parse dotfiles policy: %w", err)
	}

	return &servehttp.HandlerConfig{
		Static: servehttp.StaticConfig{
			Root:     c.Static.Root,
			Prefix:   c.Static.Prefix,
			Dotfiles: dotfiles,
			Cache: servekit.CacheOptions{
				CacheControl: c.Static.CacheControl,
				MaxAge:       c.Static.MaxAge,
				Immutable:    c.Static.Immutable,
				ETag:         c.Static.ETag,
				LastModified: c.Static.LastModified,
			},
			AcceptRanges: c.Static.AcceptRanges,
			Sniff:        c.Static.Sniff,
		},
		Security: servehttp.SecurityConfig{
			FrameOptions:     c.Security.FrameOptions,
			ReferrerPolicy:   c.Security.ReferrerPolicy,
			ReferrerFallback: c.Security.ReferrerFallback,
		},
		CORS: c.CORS,
	}, nil
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"port":       "server.port",
	"root":       "static.root",
	"prefix":     "static.prefix",
	"dotfiles":   "static.dotfiles",
	"max-age":    "static.max_age",
	"immutable":  "static.immutable",
	"sniff":      "static.sniff",
	"log-level":  "log.level",
	"log-format": "log.format",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 0) // streaming large files
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("static.root", "./public")
	v.SetDefault("static.prefix", "/")
	v.SetDefault("static.dotfiles", string(servekit.DotfilesIgnore))
	v.SetDefault("static.cache_control", true)
	v.SetDefault("static.max_age", servekit.MaxMaxAge)
	v.SetDefault("static.immutable", false)
	v.SetDefault("static.etag", true)
	v.SetDefault("static.last_modified", true)
	v.SetDefault("static.accept_ranges", true)
	v.SetDefault("static.sniff", false)

	v.SetDefault("security.frame_options", servehttp.FrameSameOrigin)
	v.SetDefault("security.referrer_policy", "strict-origin-when-cross-origin")
	v.SetDefault("security.referrer_fallback", servehttp.DefaultReferrerFallback)

	v.SetDefault("cors.enabled", false)
	v.SetDefault("cors.allowed_methods", []string{"GET", "HEAD"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		bindFlags(v, flags)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	handler, err := cfg.Handler()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if err := handler.Security.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
