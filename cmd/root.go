package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/bimmerbailey/supportcleaner/internal/config"
	"github.com/bimmerbailey/supportcleaner/internal/retention"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// envNames lists the environment variables read for a key, prefixed name
// first.
var envNames = map[string][]string{
	"max_tmp_dir_size":  {"SUPPORTCLEANER_MAX_TMP_DIR_SIZE", "MAX_TMP_DIR_SIZE"},
	"delete_after_days": {"SUPPORTCLEANER_DELETE_AFTER_DAYS", "DELETE_AFTER_DAYS"},
}

var rootCmd = &cobra.Command{
	Use:   "supportcleaner",
	Short: "Clean Atlassian support archives before sharing them",
	Long: `supportcleaner unpacks a support zip, lets you prune old, large and
noisy files, scrubs URLs, usernames, mail addresses and secrets from every
remaining file, and packs the result into a new archive.

Examples:
  supportcleaner clean support.zip https://jira.example.com
  supportcleaner clean --filterfile my-filters.txt support.zip https://jira.example.com
  MAX_TMP_DIR_SIZE=2GiB supportcleaner clean --yes support.zip https://jira.example.com
  supportcleaner size 2376582746591`,
	SilenceUsage: true,
}

// Execute is called by main.main(). It runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.supportcleaner.yaml)")
	rootCmd.PersistentFlags().StringP("format", "f", config.DefaultReportFormat, "report format (text, json, table, yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	_ = viper.BindPFlag("report_format", rootCmd.PersistentFlags().Lookup("format"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error finding home directory:", err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".supportcleaner")
		viper.SetConfigType("yaml")
	}

	bindEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// bindEnv reads SUPPORTCLEANER_* variables and the unprefixed names the
// tool has always honoured.
func bindEnv() {
	viper.SetEnvPrefix("SUPPORTCLEANER")
	viper.AutomaticEnv()

	for key, names := range envNames {
		_ = viper.BindEnv(append([]string{key}, names...)...)
	}
}

// settingGiven reports whether key was supplied by flag, environment or
// config file rather than left at its default.
func settingGiven(cmd *cobra.Command, key, flag string) bool {
	if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
		return true
	}
	if viper.InConfig(key) {
		return true
	}
	for _, name := range envNames[key] {
		if _, ok := os.LookupEnv(name); ok {
			return true
		}
	}
	return false
}

func setDefaults() {
	viper.SetDefault("max_tmp_dir_size", config.DefaultMaxTmpDirSize)
	viper.SetDefault("delete_after_days", 0)
	viper.SetDefault("largest_percent", retention.DefaultLargestPercent)
	viper.SetDefault("mail_log_pattern", retention.DefaultMailLogPattern)
	viper.SetDefault("mail_log_glob", "")
	viper.SetDefault("output", config.DefaultOutput)
	viper.SetDefault("concurrency", 0)
	viper.SetDefault("hash_algorithm", config.DefaultHashAlgorithm)
	viper.SetDefault("compression_level", config.DefaultCompressionLevel)
	viper.SetDefault("regex_timeout", config.DefaultRegexTimeout)
	viper.SetDefault("report_format", config.DefaultReportFormat)
	viper.SetDefault("verbose", false)
	viper.SetDefault("yes", false)
}

// newLogger returns the diagnostic logger: warnings by default, info when
// verbose, everything when debugging.
func newLogger(w io.Writer, verbose, debug bool) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case debug:
		level = slog.LevelDebug
	case verbose:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
