package prompt

import (
	"fmt"

	"github.com/bimmerbailey/supportcleaner/internal/unitsize"
)

// NonInteractive answers every prompt without asking. Size negotiations
// abort, optional numbers are skipped and pauses return immediately.
// AssumeYes is the answer to every yes/no question.
type NonInteractive struct {
	AssumeYes bool
}

func (n NonInteractive) AskYesNo(string) (bool, error) {
	return n.AssumeYes, nil
}

func (NonInteractive) AskSizeOrAbort(string) (unitsize.ByteSize, bool, error) {
	return 0, true, nil
}

func (NonInteractive) AskOptionalInt(string) (int, bool, error) {
	return 0, false, nil
}

func (NonInteractive) Pause(string) error {
	return nil
}

// Script replays Answers in order, one per prompt, parsing them like the
// terminal does. An unparseable answer is recorded and the next one is
// used instead, the way an operator would be asked again. Every question
// shown is appended to Asked. Running out of answers returns an error.
type Script struct {
	Answers []string
	Asked   []string
}

func (s *Script) next(question string) (string, error) {
	s.Asked = append(s.Asked, question)
	if len(s.Answers) == 0 {
		return "", fmt.Errorf("prompt: no scripted answer for %q", question)
	}
	answer := s.Answers[0]
	s.Answers = s.Answers[1:]
	return answer, nil
}

func (s *Script) AskYesNo(question string) (bool, error) {
	for {
		answer, err := s.next(question)
		if err != nil {
			return false, err
		}
		if yes, err := parseYesNo(answer); err == nil {
			return yes, nil
		}
	}
}

func (s *Script) AskSizeOrAbort(message string) (unitsize.ByteSize, bool, error) {
	for {
		answer, err := s.next(message)
		if err != nil {
			return 0, false, err
		}
		if size, abort, err := parseSize(answer); err == nil {
			return size, abort, nil
		}
	}
}

func (s *Script) AskOptionalInt(question string) (int, bool, error) {
	for {
		answer, err := s.next(question)
		if err != nil {
			return 0, false, err
		}
		if n, ok, err := parseOptionalInt(answer); err == nil {
			return n, ok, nil
		}
	}
}

// Pause consumes one answer; "a" aborts, anything else continues.
func (s *Script) Pause(message string) error {
	answer, err := s.next(message)
	if err != nil {
		return err
	}
	if answer == AbortAnswer {
		return ErrAborted
	}
	return nil
}
