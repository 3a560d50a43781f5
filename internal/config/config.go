// Package config defines process configuration and loads it from defaults,
// an optional YAML file and the environment.
//
// Conventions:
// - New() returns a Config holding every default.
// - Load layers file and env values on top and validates the result.
// - Game and watch-state sections are converted to domain types here, so
//   the rest of the program never sees koanf-tagged structs.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/okian/wrwatch/internal/domain/model"
	"github.com/okian/wrwatch/internal/domain/watch"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address of `serve`, e.g. ":9080".
	Addr string `koanf:"addr"`

	// APIBaseURL is the speedrun.com API root.
	APIBaseURL string `koanf:"api_base_url"`

	// APIKey optionally authenticates upstream requests.
	APIKey string `koanf:"api_key"`

	// UserAgent is sent with every upstream request.
	UserAgent string `koanf:"user_agent"`

	// HTTPTimeoutMS bounds a single upstream request.
	HTTPTimeoutMS int `koanf:"http_timeout_ms"`

	// GameConfigs maps a game name to its categories.
	GameConfigs map[string]GameConfig `koanf:"games"`

	// RunConfigs maps a run id to what the viewer recorded about it.
	RunConfigs map[string]RunConfig `koanf:"runs"`
}

// GameConfig is the configuration of one game.
type GameConfig struct {
	DisplayName string                    `koanf:"display_name"`
	SourceGames map[string][]string       `koanf:"source_games"`
	Categories  map[string]CategoryConfig `koanf:"categories"`
}

// CategoryConfig is the configuration of one logical category.
type CategoryConfig struct {
	SourceCategories []string            `koanf:"source_categories"`
	Variables        map[string][]string `koanf:"variables"`
	Levels           []string            `koanf:"levels"`
	Subcategories    []string            `koanf:"subcategories"`
}

// RunConfig is the watch state of one run. DeferredUntil is RFC 3339.
type RunConfig struct {
	Watched       bool   `koanf:"watched"`
	Unwatchable   bool   `koanf:"unwatchable"`
	DeferredUntil string `koanf:"deferred_until"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:      "info",
		LogFormat:     "text",
		Addr:          ":9080",
		APIBaseURL:    "https://www.speedrun.com/api/v1",
		UserAgent:     "wrwatch/1.0",
		HTTPTimeoutMS: 30_000,
	}
}

// HTTPTimeout returns HTTPTimeoutMS as a duration.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutMS) * time.Millisecond
}

// Games returns the configured games ordered by name.
func (c *Config) Games() []model.Game {
	names := make([]string, 0, len(c.GameConfigs))
	for name := range c.GameConfigs {
		names = append(names, name)
	}
	sort.Strings(names)

	games := make([]model.Game, 0, len(names))
	for _, name := range names {
		gc := c.GameConfigs[name]
		g := model.Game{
			Name:        name,
			DisplayName: gc.DisplayName,
			SourceGames: gc.SourceGames,
			Categories:  make(map[string]model.CategoryConfig, len(gc.Categories)),
		}
		for cat, cc := range gc.Categories {
			g.Categories[cat] = model.CategoryConfig{
				SourceCategories: cc.SourceCategories,
				Variables:        cc.Variables,
				Levels:           cc.Levels,
				Subcategories:    cc.Subcategories,
			}
		}
		games = append(games, g)
	}
	return games
}

// WatchStates converts the runs section to watch state.
func (c *Config) WatchStates() (map[string]watch.State, error) {
	states := make(map[string]watch.State, len(c.RunConfigs))
	for id, rc := range c.RunConfigs {
		st := watch.State{Watched: rc.Watched, Unwatchable: rc.Unwatchable}
		if rc.DeferredUntil != "" {
			t, err := time.Parse(time.RFC3339, rc.DeferredUntil)
			if err != nil {
				return nil, fmt.Errorf("%w: runs::%s::deferred_until: %v", ErrInvalidConfig, id, err)
			}
			st.DeferredUntil = &t
		}
		states[id] = st
	}
	return states, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	if c.HTTPTimeoutMS <= 0 {
		return fmt.Errorf("%w: http_timeout_ms must be positive", ErrInvalidConfig)
	}
	for name, gc := range c.GameConfigs {
		for cat := range gc.Categories {
			if strings.TrimSpace(cat) == "" {
				return fmt.Errorf("%w: game %q has a category with an empty name", ErrInvalidConfig, name)
			}
		}
	}
	_, err := c.WatchStates()
	return err
}
