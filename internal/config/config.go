// Package config provides configuration management for the reelquiz agent.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// Default values
	DefaultPort     = 8787
	DefaultLogLevel = "info"
	DefaultDataDir  = ".reelquiz"

	// Environment variable names
	EnvPort          = "REELQUIZ_PORT"
	EnvLogLevel      = "REELQUIZ_LOG_LEVEL"
	EnvDataDir       = "REELQUIZ_DATA_DIR"
	EnvClipsDir      = "REELQUIZ_CLIPS_DIR"
	EnvPlaylistsDir  = "REELQUIZ_PLAYLISTS_DIR"
	EnvTickInterval  = "REELQUIZ_TICK_INTERVAL"
	EnvGraceDelay    = "REELQUIZ_GRACE_DELAY"
	EnvFeedbackDelay = "REELQUIZ_FEEDBACK_DELAY"
	EnvFadeDuration  = "REELQUIZ_FADE_DURATION"
	EnvFadeHold      = "REELQUIZ_FADE_HOLD"
	EnvWrongAnswer   = "REELQUIZ_WRONG_ANSWER"
	EnvFades         = "REELQUIZ_FADES"
	EnvChoiceSlots   = "REELQUIZ_CHOICE_SLOTS"
	EnvHeadless      = "REELQUIZ_HEADLESS"
	EnvHandoffURL    = "REELQUIZ_HANDOFF_URL"
	EnvHandoffToken  = "REELQUIZ_HANDOFF_TOKEN"
	EnvCORSOrigins   = "REELQUIZ_CORS_ORIGINS"
	EnvFFprobe       = "REELQUIZ_FFPROBE"

	// Database filename
	DBFilename = "reelquiz.db"

	// Playback defaults
	DefaultTickInterval  = time.Second / 60
	DefaultGraceDelay    = 2 * time.Second
	DefaultFeedbackDelay = 1 * time.Second
	DefaultFadeDuration  = 1 * time.Second
	DefaultFadeHold      = 500 * time.Millisecond
	DefaultWrongAnswer   = "restart"
	DefaultChoiceSlots   = 4

	DefaultHandoffTimeout = 10 * time.Second
	DefaultProbeTimeout   = 15 * time.Second
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	ClipsDir() string
	PlaylistsDir() string

	TickInterval() time.Duration
	GraceDelay() time.Duration
	FeedbackDelay() time.Duration
	FadeDuration() time.Duration
	FadeHold() time.Duration
	WrongAnswerPolicy() string
	Fades() bool
	ChoiceSlots() int

	Headless() bool
	HandoffURL() string
	HandoffToken() string
	HandoffTimeout() time.Duration
	CORSOrigins() []string
	FFprobePath() string
	ProbeTimeout() time.Duration
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port         int
	logLevel     string
	dataDir      string
	clipsDir     string
	playlistsDir string

	tickInterval  time.Duration
	graceDelay    time.Duration
	feedbackDelay time.Duration
	fadeDuration  time.Duration
	fadeHold      time.Duration
	wrongAnswer   string
	fades         bool
	choiceSlots   int

	headless     bool
	handoffURL   string
	handoffToken string
	corsOrigins  []string
	ffprobe      string
}

// Load reads an optional .env file into the environment, then builds the
// config. Variables already set in the environment win over the file.
func Load(envFiles ...string) (*EnvConfig, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return New()
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:          DefaultPort,
		logLevel:      DefaultLogLevel,
		dataDir:       defaultDataDir(),
		tickInterval:  DefaultTickInterval,
		graceDelay:    DefaultGraceDelay,
		feedbackDelay: DefaultFeedbackDelay,
		fadeDuration:  DefaultFadeDuration,
		fadeHold:      DefaultFadeHold,
		wrongAnswer:   DefaultWrongAnswer,
		fades:         true,
		choiceSlots:   DefaultChoiceSlots,
		ffprobe:       "ffprobe",
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}
	cfg.clipsDir = os.Getenv(EnvClipsDir)
	cfg.playlistsDir = os.Getenv(EnvPlaylistsDir)

	durations := []struct {
		env string
		dst *time.Duration
	}{
		{EnvTickInterval, &cfg.tickInterval},
		{EnvGraceDelay, &cfg.graceDelay},
		{EnvFeedbackDelay, &cfg.feedbackDelay},
		{EnvFadeDuration, &cfg.fadeDuration},
		{EnvFadeHold, &cfg.fadeHold},
	}
	for _, d := range durations {
		if err := durationEnv(d.env, d.dst); err != nil {
			return nil, err
		}
	}

	if wa := os.Getenv(EnvWrongAnswer); wa != "" {
		switch strings.ToLower(wa) {
		case "retry", "restart":
			cfg.wrongAnswer = strings.ToLower(wa)
		default:
			return nil, fmt.Errorf("invalid %s: want retry or restart, got %q", EnvWrongAnswer, wa)
		}
	}

	if err := boolEnv(EnvFades, &cfg.fades); err != nil {
		return nil, err
	}
	if err := boolEnv(EnvHeadless, &cfg.headless); err != nil {
		return nil, err
	}

	if s := os.Getenv(EnvChoiceSlots); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvChoiceSlots, err)
		}
		if n < 1 {
			return nil, fmt.Errorf("invalid %s: must be at least 1", EnvChoiceSlots)
		}
		cfg.choiceSlots = n
	}

	cfg.handoffURL = os.Getenv(EnvHandoffURL)
	cfg.handoffToken = os.Getenv(EnvHandoffToken)

	if origins := os.Getenv(EnvCORSOrigins); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.corsOrigins = append(cfg.corsOrigins, o)
			}
		}
	}

	if fp := os.Getenv(EnvFFprobe); fp != "" {
		cfg.ffprobe = fp
	}

	return cfg, nil
}

func durationEnv(name string, dst *time.Duration) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if d <= 0 {
		return fmt.Errorf("invalid %s: must be positive", name)
	}
	*dst = d
	return nil
}

func boolEnv(name string, dst *bool) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	*dst = b
	return nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// ClipsDir returns the directory clip paths are resolved against
func (c *EnvConfig) ClipsDir() string {
	if c.clipsDir != "" {
		return c.clipsDir
	}
	return filepath.Join(c.dataDir, "clips")
}

// PlaylistsDir returns the directory watched for playlist documents
func (c *EnvConfig) PlaylistsDir() string {
	if c.playlistsDir != "" {
		return c.playlistsDir
	}
	return filepath.Join(c.dataDir, "playlists")
}

func (c *EnvConfig) TickInterval() time.Duration {
	return c.tickInterval
}

func (c *EnvConfig) GraceDelay() time.Duration {
	return c.graceDelay
}

func (c *EnvConfig) FeedbackDelay() time.Duration {
	return c.feedbackDelay
}

func (c *EnvConfig) FadeDuration() time.Duration {
	return c.fadeDuration
}

func (c *EnvConfig) FadeHold() time.Duration {
	return c.fadeHold
}

// WrongAnswerPolicy returns "retry" or "restart"
func (c *EnvConfig) WrongAnswerPolicy() string {
	return c.wrongAnswer
}

func (c *EnvConfig) Fades() bool {
	return c.fades
}

// ChoiceSlots returns the size of the answer element pool
func (c *EnvConfig) ChoiceSlots() int {
	return c.choiceSlots
}

// Headless disables the system tray
func (c *EnvConfig) Headless() bool {
	return c.headless
}

func (c *EnvConfig) HandoffURL() string {
	return c.handoffURL
}

func (c *EnvConfig) HandoffToken() string {
	return c.handoffToken
}

func (c *EnvConfig) HandoffTimeout() time.Duration {
	return DefaultHandoffTimeout
}

func (c *EnvConfig) CORSOrigins() []string {
	return c.corsOrigins
}

func (c *EnvConfig) FFprobePath() string {
	return c.ffprobe
}

func (c *EnvConfig) ProbeTimeout() time.Duration {
	return DefaultProbeTimeout
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
