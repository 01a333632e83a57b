package prompt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bimmerbailey/supportcleaner/internal/unitsize"
)

// Prompter is the operator dialogue used by a cleaning run.
type Prompter interface {
	// AskYesNo asks a yes/no question.
	AskYesNo(question string) (bool, error)

	// AskSizeOrAbort shows message and asks for a new size ceiling. abort is
	// true when the operator chose to stop instead.
	AskSizeOrAbort(message string) (size unitsize.ByteSize, abort bool, err error)

	// AskOptionalInt asks for a whole number; ok is false when the answer
	// was left empty.
	AskOptionalInt(question string) (n int, ok bool, err error)

	// Pause shows message and waits until the operator continues.
	Pause(message string) error
}

// AbortAnswer is the answer that aborts a size negotiation.
const AbortAnswer = "a"

// ErrAborted is returned when the operator cancels a prompt.
var ErrAborted = errors.New("prompt: aborted by user")

// ErrInvalidAnswer marks an answer that does not parse.
var ErrInvalidAnswer = errors.New("prompt: invalid answer")

// parseSize interprets a size negotiation answer.
func parseSize(answer string) (unitsize.ByteSize, bool, error) {
	answer = strings.TrimSpace(answer)
	if strings.EqualFold(answer, AbortAnswer) {
		return 0, true, nil
	}
	size, err := unitsize.ParseBytes(answer)
	if err != nil {
		return 0, false, invalidAnswer(answer, "enter a size such as 500MiB, or 'a' to abort")
	}
	return size, false, nil
}

// parseOptionalInt interprets an answer that may be empty.
func parseOptionalInt(answer string) (int, bool, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(answer)
	if err != nil || n < 0 {
		return 0, false, invalidAnswer(answer, "enter a whole number or leave empty")
	}
	return n, true, nil
}

// parseYesNo accepts y/yes/n/no in any case.
func parseYesNo(answer string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	default:
		return false, invalidAnswer(answer, "answer y or n")
	}
}

func invalidAnswer(answer, hint string) error {
	return fmt.Errorf("%w %q: %s", ErrInvalidAnswer, answer, hint)
}
