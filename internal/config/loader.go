package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "WRWATCH_"
	// EnvConfigPath names the YAML file when no path is given.
	EnvConfigPath = EnvPrefix + "CONFIG"

	// Category names routinely contain dots ("Any%", "1.0 Any%").
	delim = "::"
)

// ResolvePath returns path, or the file named by WRWATCH_CONFIG when path
// is empty.
func ResolvePath(path string) string {
	if path == "" {
		return os.Getenv(EnvConfigPath)
	}
	return path
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) at path, or at WRWATCH_CONFIG when path is empty
//  3. env (prefix WRWATCH_), for top-level scalar keys
func Load(_ context.Context, path string) (*Config, error) {
	k := koanf.New(delim)

	path = ResolvePath(path)
	if path != "" {
		raw, err := readYAML(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
		if err := checkIDs(raw); err != nil {
			return nil, err
		}
		if err := k.Load(raw, nil); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// WRWATCH_HTTP_TIMEOUT_MS -> http_timeout_ms
	envProvider := env.Provider(EnvPrefix, delim, func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parsedYAML is a decoded YAML document served to koanf as a provider.
type parsedYAML map[string]interface{}

func (p parsedYAML) ReadBytes() ([]byte, error) {
	return nil, errors.New("parsed YAML has no raw bytes")
}

func (p parsedYAML) Read() (map[string]interface{}, error) {
	return p, nil
}

func readYAML(path string) (parsedYAML, error) {
	b, err := file.Provider(path).ReadBytes()
	if err != nil {
		return nil, err
	}
	m, err := yaml.Parser().Unmarshal(b)
	if err != nil {
		return nil, err
	}
	return parsedYAML(m), nil
}

// checkIDs rejects names and upstream ids that YAML decoded as something
// other than a string. Unquoted, 0123 is the integer 83 and 1e3 is 1000,
// which would silently query the wrong leaderboard.
func checkIDs(raw parsedYAML) error {
	games, err := mapping("games", raw["games"])
	if err != nil {
		return err
	}
	for _, name := range sortedKeys(games) {
		base := "games" + delim + name
		game, err := mapping(base, games[name])
		if err != nil {
			return err
		}

		sources, err := mapping(base+delim+"source_games", game["source_games"])
		if err != nil {
			return err
		}
		for _, id := range sortedKeys(sources) {
			if err := stringList(base+delim+"source_games"+delim+id, sources[id]); err != nil {
				return err
			}
		}

		cats, err := mapping(base+delim+"categories", game["categories"])
		if err != nil {
			return err
		}
		for _, cat := range sortedKeys(cats) {
			path := base + delim + "categories" + delim + cat
			cc, err := mapping(path, cats[cat])
			if err != nil {
				return err
			}
			for _, field := range []string{"source_categories", "levels", "subcategories"} {
				if err := stringList(path+delim+field, cc[field]); err != nil {
					return err
				}
			}
			vars, err := mapping(path+delim+"variables", cc["variables"])
			if err != nil {
				return err
			}
			for _, id := range sortedKeys(vars) {
				if err := stringList(path+delim+"variables"+delim+id, vars[id]); err != nil {
					return err
				}
			}
		}
	}

	_, err = mapping("runs", raw["runs"])
	return err
}

// mapping returns a decoded YAML mapping keyed by string, failing on any
// key that is not a string.
func mapping(path string, v interface{}) (map[string]interface{}, error) {
	switch m := v.(type) {
	case nil:
		return nil, nil
	case map[string]interface{}:
		return m, nil
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for key, val := range m {
			s, ok := key.(string)
			if !ok {
				return nil, notString(path, key)
			}
			out[s] = val
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s must be a mapping", ErrInvalidConfig, path)
	}
}

func stringList(path string, v interface{}) error {
	switch l := v.(type) {
	case nil:
		return nil
	case []interface{}:
		for i, item := range l {
			if _, ok := item.(string); !ok {
				return notString(fmt.Sprintf("%s[%d]", path, i), item)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %s must be a list", ErrInvalidConfig, path)
	}
}

func notString(path string, v interface{}) error {
	return fmt.Errorf("%w: %s: %v (%T) is not a string; quote it", ErrInvalidConfig, path, v, v)
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
