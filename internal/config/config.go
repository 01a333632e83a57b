// Package config provides configuration types and helpers for supportcleaner.
package config

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/bimmerbailey/supportcleaner/internal/retention"
	"github.com/bimmerbailey/supportcleaner/internal/unitsize"
)

// Defaults applied by the root command.
const (
	DefaultMaxTmpDirSize    = "200MiB"
	DefaultOutput           = "cleaned.zip"
	DefaultHashAlgorithm    = "sha256"
	DefaultCompressionLevel = 6
	DefaultRegexTimeout     = 5 * time.Second
	DefaultReportFormat     = "text"
)

// Config holds the application-wide configuration as read by viper.
type Config struct {
	MaxTmpDirSize    string        `mapstructure:"max_tmp_dir_size"`
	DeleteAfterDays  int           `mapstructure:"delete_after_days"`
	LargestPercent   int           `mapstructure:"largest_percent"`
	MailLogPattern   string        `mapstructure:"mail_log_pattern"`
	MailLogGlob      string        `mapstructure:"mail_log_glob"` // replaces the pattern when set
	FilterFiles      []string      `mapstructure:"filterfile"`    // paths or globs, applied in order
	Output           string        `mapstructure:"output"`
	Concurrency      int           `mapstructure:"concurrency"`
	HashAlgorithm    string        `mapstructure:"hash_algorithm"`
	CompressionLevel int           `mapstructure:"compression_level"`
	RegexTimeout     time.Duration `mapstructure:"regex_timeout"`
	ReportFormat     string        `mapstructure:"report_format"`
	Verbose          bool          `mapstructure:"verbose"`
	Yes              bool          `mapstructure:"yes"`

	// DeleteAfterDaysSet records that the age threshold was supplied, so
	// an explicit zero skips the stage instead of asking.
	DeleteAfterDaysSet bool `mapstructure:"-"`
}

// RunConfig is the validated form of Config handed to a cleaning run.
type RunConfig struct {
	// Ceiling is the initial size ceiling for extraction. Only the
	// operator negotiation may raise it.
	Ceiling unitsize.ByteSize

	// DeleteAfterDays removes files older than this many days. A supplied
	// value <= 0 skips the stage; an unset one asks the operator.
	DeleteAfterDays    int
	DeleteAfterDaysSet bool

	LargestPercent   int
	MailLogPattern   string
	MailLogGlob      string
	FilterFiles      []string
	Output           string
	Concurrency      int
	HashAlgorithm    string
	CompressionLevel int
	RegexTimeout     time.Duration
	AssumeYes        bool
}

// RunConfig validates c and fills unset values with defaults. A malformed
// size ceiling is an error wrapping unitsize.ErrMalformedSize.
func (c Config) RunConfig() (RunConfig, error) {
	raw := c.MaxTmpDirSize
	if strings.TrimSpace(raw) == "" {
		raw = DefaultMaxTmpDirSize
	}
	ceiling, err := unitsize.ParseBytes(raw)
	if err != nil {
		return RunConfig{}, fmt.Errorf("max_tmp_dir_size: %w", err)
	}

	if c.LargestPercent < 0 || c.LargestPercent > 100 {
		return RunConfig{}, fmt.Errorf("largest_percent must be between 0 and 100, got %d", c.LargestPercent)
	}

	rc := RunConfig{
		Ceiling:            ceiling,
		DeleteAfterDays:    c.DeleteAfterDays,
		DeleteAfterDaysSet: c.DeleteAfterDaysSet || c.DeleteAfterDays != 0,
		LargestPercent:     c.LargestPercent,
		MailLogPattern:     c.MailLogPattern,
		MailLogGlob:        c.MailLogGlob,
		FilterFiles:        c.FilterFiles,
		Output:             c.Output,
		Concurrency:        c.Concurrency,
		HashAlgorithm:      c.HashAlgorithm,
		CompressionLevel:   c.CompressionLevel,
		RegexTimeout:       c.RegexTimeout,
		AssumeYes:          c.Yes,
	}
	if rc.MailLogPattern == "" {
		rc.MailLogPattern = retention.DefaultMailLogPattern
	}
	if rc.Output == "" {
		rc.Output = DefaultOutput
	}
	if rc.Concurrency <= 0 {
		rc.Concurrency = runtime.NumCPU()
	}
	if rc.HashAlgorithm == "" {
		rc.HashAlgorithm = DefaultHashAlgorithm
	}
	if rc.RegexTimeout <= 0 {
		rc.RegexTimeout = DefaultRegexTimeout
	}
	return rc, nil
}

// DefaultRunConfig is the RunConfig of an empty Config.
func DefaultRunConfig() RunConfig {
	rc, _ := Config{
		LargestPercent:   retention.DefaultLargestPercent,
		CompressionLevel: DefaultCompressionLevel,
	}.RunConfig()
	return rc
}

// LogLevel represents a standard log severity level.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
	LevelUnknown
)

// String returns the string representation of a LogLevel.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Verbose reports whether a production system should normally log at l.
// DEBUG and INFO are left on only while diagnosing.
func (l LogLevel) Verbose() bool {
	return l == LevelDebug || l == LevelInfo
}

// MarshalJSON implements json.Marshaler for LogLevel.
func (l LogLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON implements json.Unmarshaler for LogLevel.
func (l *LogLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*l = ParseLevel(s)
	return nil
}

// MarshalYAML renders the level by name.
func (l LogLevel) MarshalYAML() (interface{}, error) {
	return l.String(), nil
}

// ParseLevel converts a string to a LogLevel.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug", "dbg":
		return LevelDebug
	case "info", "inf":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error", "err":
		return LevelError
	case "fatal", "critical", "crit":
		return LevelFatal
	default:
		return LevelUnknown
	}
}
