package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/amirbrooks/boardmode/internal/store"
)

// Dir is the settings directory inside a vault.
const Dir = ".boardmode"

// Settings holds the user-facing configuration of a vault.
type Settings struct {
	NewFileLocation string       `mapstructure:"new_file_location"`
	NewFileFolder   string       `mapstructure:"new_file_folder"`
	LaneWidth       int          `mapstructure:"lane_width"`
	Search          SearchConfig `mapstructure:"search"`
	Watch           WatchConfig  `mapstructure:"watch"`
	Log             LogConfig    `mapstructure:"log"`
}

type SearchConfig struct {
	MaxDistance int `mapstructure:"max_distance"`
}

type WatchConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// LogConfig controls where logs go. File is relative to the vault's
// settings directory unless absolute.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	Console    bool   `mapstructure:"console"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

var defaults = map[string]any{
	"new_file_location":   store.LocationRoot,
	"new_file_folder":     "",
	"lane_width":          28,
	"search.max_distance": 2,
	"watch.enabled":       true,
	"watch.debounce":      "300ms",
	"log.level":           "info",
	"log.file":            "",
	"log.console":         false,
	"log.max_size_mb":     10,
	"log.max_backups":     3,
	"log.max_age_days":    28,
}

// Keys lists every settable key.
func Keys() []string {
	out := make([]string, 0, len(defaults))
	for k := range defaults {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Path is the settings file of the vault rooted at root.
func Path(root string) string {
	return filepath.Join(root, Dir, "settings.yaml")
}

func Default() Settings {
	s, err := decode(newViper())
	if err != nil {
		panic(fmt.Sprintf("config: bad defaults: %v", err))
	}
	return s
}

func newViper() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetConfigType("yaml")
	v.SetEnvPrefix("BOARDMODE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func read(root string) (*viper.Viper, error) {
	v := newViper()
	path := Path(root)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return v, nil
		}
		return nil, err
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", store.ErrInvalid, path, err)
	}
	return v, nil
}

func decode(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("%w: unmarshal settings: %v", store.ErrInvalid, err)
	}
	return s, nil
}

// Load reads the vault's settings file, if any, layered over defaults and
// BOARDMODE_* environment overrides.
func Load(root string) (Settings, error) {
	v, err := read(root)
	if err != nil {
		return Settings{}, err
	}
	s, err := decode(v)
	if err != nil {
		return Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s Settings) Validate() error {
	switch s.NewFileLocation {
	case store.LocationRoot, store.LocationCurrent, store.LocationFolder:
	default:
		return fmt.Errorf("%w: new_file_location must be root, current or folder", store.ErrInvalid)
	}
	if s.LaneWidth < 10 {
		return fmt.Errorf("%w: lane_width must be at least 10", store.ErrInvalid)
	}
	if s.Search.MaxDistance < 0 {
		return fmt.Errorf("%w: search.max_distance must not be negative", store.ErrInvalid)
	}
	if s.Watch.Debounce < 0 {
		return fmt.Errorf("%w: watch.debounce must not be negative", store.ErrInvalid)
	}
	switch s.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log.level must be debug, info, warn or error", store.ErrInvalid)
	}
	return nil
}

// Save writes s to the vault's settings file.
func Save(root string, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	path := Path(root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir settings dir: %w", err)
	}
	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("new_file_location", s.NewFileLocation)
	v.Set("new_file_folder", s.NewFileFolder)
	v.Set("lane_width", s.LaneWidth)
	v.Set("search.max_distance", s.Search.MaxDistance)
	v.Set("watch.enabled", s.Watch.Enabled)
	v.Set("watch.debounce", s.Watch.Debounce.String())
	v.Set("log.level", s.Log.Level)
	v.Set("log.file", s.Log.File)
	v.Set("log.console", s.Log.Console)
	v.Set("log.max_size_mb", s.Log.MaxSizeMB)
	v.Set("log.max_backups", s.Log.MaxBackups)
	v.Set("log.max_age_days", s.Log.MaxAgeDays)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// Values returns the effective value of every settable key, as read from
// the settings file, environment and defaults.
func Values(root string) (map[string]any, error) {
	v, err := read(root)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(defaults))
	for _, k := range Keys() {
		out[k] = v.Get(k)
	}
	return out, nil
}

// Set changes one key in the vault's settings file and returns the result.
func Set(root string, key string, value string) (Settings, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if _, ok := defaults[key]; !ok {
		return Settings{}, fmt.Errorf("%w: unknown setting %q", store.ErrInvalid, key)
	}
	v, err := read(root)
	if err != nil {
		return Settings{}, err
	}
	v.Set(key, value)
	s, err := decode(v)
	if err != nil {
		return Settings{}, err
	}
	if err := Save(root, s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// LogPath resolves the configured log file against the settings directory.
func (s Settings) LogPath(root string) string {
	f := strings.TrimSpace(s.Log.File)
	if f == "" || filepath.IsAbs(f) {
		return f
	}
	return filepath.Join(root, Dir, f)
}
