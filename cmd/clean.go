package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/bimmerbailey/supportcleaner/internal/config"
	"github.com/bimmerbailey/supportcleaner/internal/output"
	"github.com/bimmerbailey/supportcleaner/internal/pipeline"
	"github.com/bimmerbailey/supportcleaner/internal/prompt"
	"github.com/charmbracelet/huh/spinner"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// interactive reports whether an operator can answer prompts. Tests
// replace it.
var interactive = output.IsInteractive

var cleanCmd = &cobra.Command{
	Use:   "clean <supportzip> <baseurl>",
	Short: "Clean a support zip and write a sanitized copy",
	Long: `Clean extracts the support zip into a scratch directory, walks through
the pruning stages, scrubs every remaining file with the filter list and
packs the result into the output archive. The source archive is never
modified.

The size ceiling (--max-tmp-dir-size, MAX_TMP_DIR_SIZE) guards the scratch
directory. When the archive does not fit, you are asked for a bigger
ceiling; without a terminal, or with --yes, the run aborts instead.

Examples:
  supportcleaner clean support.zip https://jira.example.com
  supportcleaner clean --delete-after-days 30 --largest-percent 5 support.zip https://jira.example.com
  supportcleaner clean --filterfile base.txt --filterfile 'extra/*.txt' support.zip https://jira.example.com
  supportcleaner clean --yes --format json support.zip "" > report.json`,
	Args: cobra.ExactArgs(2),
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)

	cleanCmd.Flags().StringSlice("filterfile", nil, "filter file or glob, repeatable, applied in order (default: built-in filters)")
	cleanCmd.Flags().StringP("output", "o", config.DefaultOutput, "output archive")
	cleanCmd.Flags().String("max-tmp-dir-size", config.DefaultMaxTmpDirSize, "size ceiling for the scratch directory, e.g. 2GiB")
	cleanCmd.Flags().Int("delete-after-days", 0, "remove files older than this many days (unset: ask, <= 0: skip)")
	cleanCmd.Flags().Int("largest-percent", 10, "percentile offered in the largest files stage")
	cleanCmd.Flags().String("mail-log-glob", "", "select mail logs by shell glob instead of mail_log_pattern")
	cleanCmd.Flags().Int("concurrency", 0, "files scrubbed in parallel (0: one per CPU)")
	cleanCmd.Flags().String("hash", config.DefaultHashAlgorithm, "placeholder digest (sha256, blake3)")
	cleanCmd.Flags().Int("compression-level", config.DefaultCompressionLevel, "deflate level of the output archive (0-9)")
	cleanCmd.Flags().Duration("regex-timeout", config.DefaultRegexTimeout, "match timeout per filter and file")
	cleanCmd.Flags().BoolP("yes", "y", false, "never prompt; confirm deletions and abort on overflow")

	for key, flag := range map[string]string{
		"filterfile":        "filterfile",
		"output":            "output",
		"max_tmp_dir_size":  "max-tmp-dir-size",
		"delete_after_days": "delete-after-days",
		"largest_percent":   "largest-percent",
		"mail_log_glob":     "mail-log-glob",
		"concurrency":       "concurrency",
		"hash_algorithm":    "hash",
		"compression_level": "compression-level",
		"regex_timeout":     "regex-timeout",
		"yes":               "yes",
	} {
		_ = viper.BindPFlag(key, cleanCmd.Flags().Lookup(flag))
	}
}

func runClean(cmd *cobra.Command, args []string) error {
	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to read configuration: %w", err)
	}
	cfg.DeleteAfterDaysSet = settingGiven(cmd, "delete_after_days", "delete-after-days")
	rc, err := cfg.RunConfig()
	if err != nil {
		return err
	}

	format := output.ParseFormat(viper.GetString("report_format"))
	stdout := cmd.OutOrStdout()
	progressOut := stdout
	if format == output.FormatJSON || format == output.FormatYAML {
		progressOut = cmd.ErrOrStderr()
	}

	logger := newLogger(cmd.ErrOrStderr(), viper.GetBool("verbose"), viper.GetBool("debug"))
	canAsk := !rc.AssumeYes && interactive()

	var prompter prompt.Prompter = prompt.NonInteractive{AssumeYes: rc.AssumeYes}
	progress := func(_ string, action func() error) error { return action() }
	if canAsk {
		term := prompt.NewTerminal()
		prompter = term
		progress = spinnerProgress(cmd.ErrOrStderr(), term.Accessible())
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	writeHeader(progressOut, args[0], args[1], rc)

	p := pipeline.New(
		pipeline.WithRunConfig(rc),
		pipeline.WithPrompter(prompter),
		pipeline.WithLogger(logger),
		pipeline.WithStdout(progressOut),
		pipeline.WithProgress(progress),
	)

	report, err := p.Run(ctx, args[0], args[1])
	if err != nil {
		if errors.Is(err, pipeline.ErrAborted) && canAsk {
			fmt.Fprintln(progressOut, "Aborted by user.")
			return nil
		}
		return err
	}

	fmt.Fprintln(progressOut)
	return output.New(stdout, format).WriteReport(report)
}

func writeHeader(w io.Writer, archivePath, baseURL string, rc config.RunConfig) {
	fmt.Fprintf(w, "Support zip:  %s\n", archivePath)
	if baseURL != "" {
		fmt.Fprintf(w, "Base URL:     %s\n", baseURL)
	}
	fmt.Fprintf(w, "Output:       %s\n", rc.Output)
	fmt.Fprintf(w, "Size ceiling: %s\n", rc.Ceiling)
}

func spinnerProgress(w io.Writer, accessible bool) pipeline.ProgressFunc {
	return func(title string, action func() error) error {
		var actionErr error
		spinErr := spinner.New().
			Title(title).
			Accessible(accessible).
			Output(w).
			Action(func() {
				actionErr = action()
			}).
			Run()
		if spinErr != nil {
			return spinErr
		}
		return actionErr
	}
}
