// Package config binds flags, BEE_* environment variables and an optional
// .env file for both binaries. Flags win over env, env wins over .env.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

const envPrefix = "BEE"

type Log struct {
	Level  string
	Format string
}

func (l Log) validate() error {
	var err error
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		err = multierr.Append(err, fmt.Errorf("invalid --log-level %q", l.Level))
	}
	switch l.Format {
	case "json", "console":
	default:
		err = multierr.Append(err, fmt.Errorf("invalid --log-format %q", l.Format))
	}
	return err
}

type Server struct {
	Bind            string
	Port            int
	DatabaseURL     string
	ShuffleDuration time.Duration
	ShuffleInterval time.Duration
	PublicURL       string
	Log             Log
}

func (c *Server) Addr() string { return fmt.Sprintf("%s:%d", c.Bind, c.Port) }

func (c *Server) Validate() error {
	var err error
	if c.Port < 1 || c.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port))
	}
	if c.ShuffleDuration <= 0 {
		err = multierr.Append(err, errors.New("--shuffle-duration must be positive"))
	}
	if c.ShuffleInterval <= 0 || c.ShuffleInterval > c.ShuffleDuration {
		err = multierr.Append(err, errors.New("--shuffle-interval must be positive and no longer than --shuffle-duration"))
	}
	if c.PublicURL != "" {
		if u, perr := url.Parse(c.PublicURL); perr != nil || u.Scheme == "" || u.Host == "" {
			err = multierr.Append(err, fmt.Errorf("invalid --public-url %q", c.PublicURL))
		}
	}
	return multierr.Append(err, c.Log.validate())
}

func BindServer(cmd *cobra.Command, cfg *Server) {
	fs := cmd.Flags()
	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: BEE_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on (env: BEE_PORT)")
	fs.StringVar(&cfg.DatabaseURL, "database-url", "", "postgres DSN; empty keeps everything in memory (env: BEE_DATABASE_URL)")
	fs.DurationVar(&cfg.ShuffleDuration, "shuffle-duration", 3*time.Second, "how long the pairing shuffle runs (env: BEE_SHUFFLE_DURATION)")
	fs.DurationVar(&cfg.ShuffleInterval, "shuffle-interval", 150*time.Millisecond, "time between shuffle frames (env: BEE_SHUFFLE_INTERVAL)")
	fs.StringVar(&cfg.PublicURL, "public-url", "", "externally reachable base URL for display QR codes (env: BEE_PUBLIC_URL)")
	bindLog(fs, &cfg.Log)
	bind(cmd)
}

type Display struct {
	URL          string
	Tournament   string
	DatabaseURL  string
	TemplatesURL string
	Bell         bool
	Width        int
	Log          Log
}

func (c *Display) Validate() error {
	var err error
	if c.Tournament == "" {
		err = multierr.Append(err, errors.New("--tournament is required"))
	}
	if c.URL == "" && c.DatabaseURL == "" {
		err = multierr.Append(err, errors.New("one of --url or --database-url is required"))
	}
	if c.URL != "" {
		if u, perr := url.Parse(c.URL); perr != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			err = multierr.Append(err, fmt.Errorf("invalid --url %q: want ws:// or wss://", c.URL))
		}
	}
	return multierr.Append(err, c.Log.validate())
}

// StreamURL is URL with the tournament query set.
func (c *Display) StreamURL() (string, error) {
	u, err := url.Parse(c.URL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("tournament", c.Tournament)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func BindDisplay(cmd *cobra.Command, cfg *Display) {
	fs := cmd.Flags()
	fs.StringVarP(&cfg.URL, "url", "u", "", "controller display stream, e.g. ws://host:8080/ws (env: BEE_URL)")
	fs.StringVarP(&cfg.Tournament, "tournament", "t", "", "tournament id to follow (env: BEE_TOURNAMENT)")
	fs.StringVar(&cfg.DatabaseURL, "database-url", "", "follow the broadcast slot in postgres instead of the websocket (env: BEE_DATABASE_URL)")
	fs.StringVar(&cfg.TemplatesURL, "templates-url", "", "where to fetch message templates from (env: BEE_TEMPLATES_URL)")
	fs.BoolVar(&cfg.Bell, "bell", false, "ring the terminal bell on audio cues (env: BEE_BELL)")
	fs.IntVar(&cfg.Width, "width", 80, "screen width in columns (env: BEE_WIDTH)")
	bindLog(fs, &cfg.Log)
	bind(cmd)
}

func bindLog(fs *pflag.FlagSet, l *Log) {
	fs.StringVar(&l.Level, "log-level", "info", "debug, info, warn or error (env: BEE_LOG_LEVEL)")
	fs.StringVar(&l.Format, "log-format", "console", "json or console (env: BEE_LOG_FORMAT)")
}

// LoadDotEnv reads .env files into the process environment. Missing files
// are fine; variables already set are never overridden.
func LoadDotEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// bind applies env values to every flag the user did not set explicitly.
func bind(cmd *cobra.Command) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	prev := cmd.PreRunE
	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		var err error
		fs.VisitAll(func(f *pflag.Flag) {
			_ = v.BindPFlag(f.Name, f)
			_ = v.BindEnv(f.Name)
			if !f.Changed && v.IsSet(f.Name) {
				if serr := fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); serr != nil {
					err = multierr.Append(err, fmt.Errorf("env for --%s: %w", f.Name, serr))
				}
			}
		})
		if err != nil {
			return err
		}
		if prev != nil {
			return prev(cmd, args)
		}
		return nil
	}
}
