package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/v2"
)

// UpdateRun applies update to the watch state of runID in the YAML file at
// path and writes the file back, leaving every other section as loaded. A
// missing file is created. Comments and key order are not preserved.
func UpdateRun(_ context.Context, path, runID string, update func(*RunConfig)) error {
	if path == "" {
		return fmt.Errorf("%w: no config file to update", ErrInvalidConfig)
	}
	runID = strings.TrimSpace(runID)
	if runID == "" || strings.Contains(runID, delim) {
		return fmt.Errorf("%w: invalid run id %q", ErrInvalidConfig, runID)
	}

	k := koanf.New(delim)
	mode := fs.FileMode(0o644)
	switch info, err := os.Stat(path); {
	case err == nil:
		mode = info.Mode().Perm()
		raw, err := readYAML(path)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
		if err := k.Load(raw, nil); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
	}

	key := "runs" + delim + runID
	var rc RunConfig
	if err := k.UnmarshalWithConf(key, &rc, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrLoadConfig, key, err)
	}
	update(&rc)
	if rc.DeferredUntil != "" {
		if _, err := time.Parse(time.RFC3339, rc.DeferredUntil); err != nil {
			return fmt.Errorf("%w: %s%sdeferred_until: %v", ErrInvalidConfig, key, delim, err)
		}
	}

	k.Delete(key)
	fields := map[string]interface{}{}
	if rc.Watched {
		fields["watched"] = true
	}
	if rc.Unwatchable {
		fields["unwatchable"] = true
	}
	if rc.DeferredUntil != "" {
		fields["deferred_until"] = rc.DeferredUntil
	}
	for name, v := range fields {
		if err := k.Set(key+delim+name, v); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
		}
	}

	b, err := k.Marshal(yaml.Parser())
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return writeFile(path, b, mode)
}

// writeFile replaces path through a temporary file in the same directory.
func writeFile(path string, b []byte, mode fs.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".wrwatch-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
