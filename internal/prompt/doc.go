// Package prompt asks the operator the questions a cleaning run needs
// answered: size ceilings, retention ages, confirmations and review pauses.
//
// # Implementations
//
//   - [Terminal] renders forms with huh. Setting ACCESSIBLE in the
//     environment switches to plain line-based prompts.
//   - [NonInteractive] answers without a terminal, for scripts and CI.
//   - [Script] replays canned answers and records every question. Tests use it.
//
// All of them satisfy [Prompter]. Answers are parsed the same way everywhere:
// sizes accept binary prefixes ("300MiB", "1.5 GiB"), and the single letter
// "a" aborts a size negotiation.
//
// # Basic usage
//
//	var p prompt.Prompter = prompt.NewTerminal()
//	ceiling, abort, err := p.AskSizeOrAbort("Archive too large.")
//	if err != nil || abort {
//	    return prompt.ErrAborted
//	}
package prompt
