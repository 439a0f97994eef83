package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultConfigFileName = "taskdesk.toml"
	DefaultAPIBaseURL     = "http://127.0.0.1:5000/api"
	DefaultCachePath      = "taskdesk.db"
	DefaultPrefsPath      = ".taskdesk_prefs.json"
	DefaultLogFile        = "taskdesk.log"
)

type Keymap struct {
	Quit     string `toml:"quit"`
	Up       string `toml:"up"`
	Down     string `toml:"down"`
	Toggle   string `toml:"toggle"`
	Delete   string `toml:"delete"`
	Detail   string `toml:"detail"`
	Palette  string `toml:"palette"`
	Archive  string `toml:"archive"`
	Refresh  string `toml:"refresh"`
	Screen   string `toml:"screen"`
	Help     string `toml:"help"`
	Cancel   string `toml:"cancel"`
	Confirm  string `toml:"confirm"`
	Category string `toml:"category"`
}

type Config struct {
	APIBaseURL           string `toml:"api_base_url"`
	RequestTimeout       int    `toml:"request_timeout"`
	PollInterval         int    `toml:"poll_interval"`
	RepeatInterval       int    `toml:"repeat_interval"`
	StatsInterval        int    `toml:"stats_interval"`
	CachePath            string `toml:"cache_path"`
	PrefsPath            string `toml:"prefs_path"`
	LogFile              string `toml:"log_file"`
	DesktopNotifications bool   `toml:"desktop_notifications"`
	SchedulerBuffer      int    `toml:"scheduler_buffer"`
	DefaultDaysFilter    int    `toml:"default_days_filter"`
	Keys                 Keymap `toml:"keys"`
}

func Default() Config {
	return Config{
		APIBaseURL:        DefaultAPIBaseURL,
		RequestTimeout:    5,
		PollInterval:      5,
		RepeatInterval:    3600,
		StatsInterval:     60,
		CachePath:         DefaultCachePath,
		PrefsPath:         DefaultPrefsPath,
		LogFile:           DefaultLogFile,
		SchedulerBuffer:   64,
		DefaultDaysFilter: 7,
		Keys: Keymap{
			Quit:     "q",
			Up:       "k",
			Down:     "j",
			Toggle:   " ",
			Delete:   "d",
			Detail:   "enter",
			Palette:  "/",
			Archive:  "a",
			Refresh:  "r",
			Screen:   "tab",
			Help:     "?",
			Cancel:   "esc",
			Confirm:  "enter",
			Category: "c",
		},
	}
}

// LoadOrCreate reads path, writing the defaults there first when the file
// does not exist. Missing or invalid values fall back to the defaults.
func LoadOrCreate(path string) (Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Default(), err
	}
	return cfg.normalize(), nil
}

// FromEnv applies TASKDESK_* overrides on top of base.
func FromEnv(base Config) Config {
	cfg := base
	if v := strings.TrimSpace(os.Getenv("TASKDESK_API_BASE_URL")); v != "" {
		cfg.APIBaseURL = v
	}
	if v, ok := getEnvInt("TASKDESK_REQUEST_TIMEOUT"); ok && v > 0 {
		cfg.RequestTimeout = v
	}
	if v, ok := getEnvInt("TASKDESK_POLL_INTERVAL"); ok && v > 0 {
		cfg.PollInterval = v
	}
	if v, ok := getEnvInt("TASKDESK_REPEAT_INTERVAL"); ok && v > 0 {
		cfg.RepeatInterval = v
	}
	if v, ok := getEnvInt("TASKDESK_STATS_INTERVAL"); ok && v > 0 {
		cfg.StatsInterval = v
	}
	if v := strings.TrimSpace(os.Getenv("TASKDESK_CACHE_PATH")); v != "" {
		cfg.CachePath = v
	}
	if v := strings.TrimSpace(os.Getenv("TASKDESK_PREFS_FILE")); v != "" {
		cfg.PrefsPath = v
	}
	if v := strings.TrimSpace(os.Getenv("TASKDESK_LOG_FILE")); v != "" {
		cfg.LogFile = v
	}
	if v, ok := getEnvBool("TASKDESK_DESKTOP_NOTIFICATIONS"); ok {
		cfg.DesktopNotifications = v
	}
	if v, ok := getEnvInt("TASKDESK_SCHEDULER_BUFFER"); ok && v > 0 {
		cfg.SchedulerBuffer = v
	}
	if v, ok := getEnvInt("TASKDESK_DEFAULT_DAYS_FILTER"); ok && v >= 0 {
		cfg.DefaultDaysFilter = v
	}
	return cfg
}

func (c Config) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

func (c Config) PollEvery() time.Duration   { return time.Duration(c.PollInterval) * time.Second }
func (c Config) RepeatEvery() time.Duration { return time.Duration(c.RepeatInterval) * time.Second }
func (c Config) StatsEvery() time.Duration  { return time.Duration(c.StatsInterval) * time.Second }

func (c Config) normalize() Config {
	def := Default()
	if strings.TrimSpace(c.APIBaseURL) == "" {
		c.APIBaseURL = def.APIBaseURL
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	if c.RepeatInterval <= 0 {
		c.RepeatInterval = def.RepeatInterval
	}
	if c.StatsInterval <= 0 {
		c.StatsInterval = def.StatsInterval
	}
	if c.CachePath == "" {
		c.CachePath = def.CachePath
	}
	if c.SchedulerBuffer <= 0 {
		c.SchedulerBuffer = def.SchedulerBuffer
	}
	if c.DefaultDaysFilter < 0 {
		c.DefaultDaysFilter = 0
	}
	c.Keys = c.Keys.withDefaults(def.Keys)
	return c
}

func (k Keymap) withDefaults(def Keymap) Keymap {
	fill := func(v *string, d string) {
		if *v == "" {
			*v = d
		}
	}
	fill(&k.Quit, def.Quit)
	fill(&k.Up, def.Up)
	fill(&k.Down, def.Down)
	fill(&k.Toggle, def.Toggle)
	fill(&k.Delete, def.Delete)
	fill(&k.Detail, def.Detail)
	fill(&k.Palette, def.Palette)
	fill(&k.Archive, def.Archive)
	fill(&k.Refresh, def.Refresh)
	fill(&k.Screen, def.Screen)
	fill(&k.Help, def.Help)
	fill(&k.Cancel, def.Cancel)
	fill(&k.Confirm, def.Confirm)
	fill(&k.Category, def.Category)
	return k
}

func write(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func getEnvInt(name string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvBool(name string) (bool, bool) {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return false, false
	}
	switch raw {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
