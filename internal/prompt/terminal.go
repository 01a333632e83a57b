package prompt

import (
	"errors"
	"os"

	"github.com/bimmerbailey/supportcleaner/internal/unitsize"
	"github.com/charmbracelet/huh"
)

// Terminal prompts on the controlling terminal using huh forms.
type Terminal struct {
	accessible bool
}

// NewTerminal creates a Terminal. ACCESSIBLE in the environment selects
// line-based prompts for screen readers and dumb terminals.
func NewTerminal() *Terminal {
	return &Terminal{accessible: os.Getenv("ACCESSIBLE") != ""}
}

// Accessible reports whether line-based prompts are in use.
func (t *Terminal) Accessible() bool {
	return t.accessible
}

func (t *Terminal) AskYesNo(question string) (bool, error) {
	var answer bool
	err := t.run(huh.NewGroup(
		huh.NewConfirm().
			Title(question).
			Affirmative("Yes").
			Negative("No").
			Value(&answer),
	))
	return answer, err
}

func (t *Terminal) AskSizeOrAbort(message string) (unitsize.ByteSize, bool, error) {
	var answer string
	err := t.run(huh.NewGroup(
		huh.NewInput().
			Title(message).
			Description("Enter a new maximum size (e.g. 500MiB) or 'a' to abort").
			Value(&answer).
			Validate(func(s string) error {
				_, _, err := parseSize(s)
				return err
			}),
	))
	if err != nil {
		return 0, false, err
	}
	return parseSize(answer)
}

func (t *Terminal) AskOptionalInt(question string) (int, bool, error) {
	var answer string
	err := t.run(huh.NewGroup(
		huh.NewInput().
			Title(question).
			Description("Leave empty to skip").
			Value(&answer).
			Validate(func(s string) error {
				_, _, err := parseOptionalInt(s)
				return err
			}),
	))
	if err != nil {
		return 0, false, err
	}
	return parseOptionalInt(answer)
}

// Pause blocks until the operator confirms. Declining aborts the run.
func (t *Terminal) Pause(message string) error {
	proceed := true
	err := t.run(huh.NewGroup(
		huh.NewNote().Title("Manual review").Description(message),
		huh.NewConfirm().
			Title("Continue?").
			Affirmative("Continue").
			Negative("Abort").
			Value(&proceed),
	))
	if err != nil {
		return err
	}
	if !proceed {
		return ErrAborted
	}
	return nil
}

func (t *Terminal) run(groups ...*huh.Group) error {
	err := huh.NewForm(groups...).WithAccessible(t.accessible).Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return ErrAborted
		}
		return err
	}
	return nil
}
