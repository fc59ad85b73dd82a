package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type LevelList []logrus.Level

func (a LevelList) MarshalText() ([]byte, error) {
	if len(a) == 0 {
		return []byte("-"), nil
	}

	s := make([]string, len(a))
	for i, e := range a {
		s[i] = e.String()
	}

	return []byte(strings.Join(s, ",")), nil
}

func (a *LevelList) UnmarshalText(d []byte) error {
	if string(d) == "" || string(d) == "-" {
		*a = LevelList{}
		return nil
	}

	var aa LevelList

	for _, e := range strings.Split(string(d), ",") {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}

		l, err := logrus.ParseLevel(e)
		if err != nil {
			return fmt.Errorf("config.LevelList.UnmarshalText: could not parse value as logrus level: %w", err)
		}

		aa = append(aa, l)
	}

	*a = aa

	return nil
}

// LogQueries is one of "none", "all", "basic" (everything except reads and
// transaction control) or ">x" (statements slower than duration x).
type LogQueries struct {
	Enabled    bool
	Basic      bool
	SlowerThan time.Duration
}

func (l LogQueries) String() string {
	switch {
	case !l.Enabled:
		return "none"
	case l.SlowerThan != 0:
		return ">" + l.SlowerThan.String()
	case l.Basic:
		return "basic"
	default:
		return "all"
	}
}

func (l LogQueries) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *LogQueries) UnmarshalText(d []byte) error {
	s := string(d)

	switch s {
	case "all":
		*l = LogQueries{Enabled: true}
		return nil
	case "basic":
		*l = LogQueries{Enabled: true, Basic: true}
		return nil
	case "", "none":
		*l = LogQueries{}
		return nil
	default:
		if s[0] == '>' && len(s) > 1 {
			d, err := time.ParseDuration(s[1:])
			if err != nil {
				return fmt.Errorf("config.LogQueries.UnmarshalText: could not parse value as duration: %w", err)
			}
			*l = LogQueries{Enabled: true, SlowerThan: d}
			return nil
		}

		return fmt.Errorf("config.LogQueries.UnmarshalText: unrecognised input %q; valid options are none, all, basic, or >x where x is a duration", s)
	}
}

type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = 0
		return nil
	}

	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("config.Duration.UnmarshalText: %w", err)
	}

	*d = Duration(v)

	return nil
}

type Config struct {
	Config              string       `name:"config" toml:"config" yaml:"config" help:"Config file location."`
	EnvFile             string       `name:"env_file" toml:"env_file" yaml:"env_file" help:"Dotenv file to read before the environment."`
	LogLevel            logrus.Level `name:"log_level" toml:"log_level" yaml:"log_level" help:"Global log level."`
	LogDebugLevels      LevelList    `name:"log_debug_levels" toml:"log_debug_levels" yaml:"log_debug_levels" help:"Which log levels to include stack data on."`
	LogQueries          LogQueries   `name:"log_queries" toml:"log_queries" yaml:"log_queries" help:"Log SQL queries."`
	ApplicationAddr     string       `name:"application_addr" toml:"application_addr" yaml:"application_addr" help:"Address to listen on for the dashboard."`
	ApplicationMinify   bool         `name:"application_minify" toml:"application_minify" yaml:"application_minify" help:"Minify HTML/CSS output."`
	DatabaseDriver      string       `name:"database_driver" toml:"database_driver" yaml:"database_driver" help:"Database engine, sqlite3 or postgres."`
	ApplicationDatabase string       `name:"application_database" toml:"application_database" yaml:"application_database" help:"SQLite file path or postgres connection string."`
	YouTubeAPIKey       string       `name:"youtube_api_key" toml:"youtube_api_key" yaml:"youtube_api_key" help:"YouTube Data API key."`
	YouTubeAPIEndpoint  string       `name:"youtube_api_endpoint" toml:"youtube_api_endpoint" yaml:"youtube_api_endpoint" help:"Base URL of the YouTube Data API."`
	FetchConcurrency    int          `name:"fetch_concurrency" toml:"fetch_concurrency" yaml:"fetch_concurrency" help:"How many video/comment lookups to run at once."`
	HTTPCachePath       string       `name:"http_cache_path" toml:"http_cache_path" yaml:"http_cache_path" help:"bbolt file for caching API responses, for development; cached counts go stale. Empty disables."`
	HTTPCacheRedis      string       `name:"http_cache_redis" toml:"http_cache_redis" yaml:"http_cache_redis" help:"Redis URL for caching API responses; overrides http_cache_path."`
	HTTPCacheMaxAge     Duration     `name:"http_cache_max_age" toml:"http_cache_max_age" yaml:"http_cache_max_age" help:"How long cached API responses stay fresh."`
	BackgroundWorkers   int          `name:"background_workers" toml:"background_workers" yaml:"background_workers" help:"How many background workers to run."`
	Collect             string       `name:"collect" toml:"collect" yaml:"collect" help:"Collect this channel id once and exit."`
	InitSchema          bool         `name:"init_schema" toml:"init_schema" yaml:"init_schema" help:"Create the database and schema, then exit."`
}
