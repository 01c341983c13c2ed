// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

package client

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/fenholt/doorman/internal/logging"
)

// TerminalInteraction drives the attempt's events on the controlling
// terminal: banners are printed, keyboard-interactive prompts are asked,
// and hidden prompts are read without echo. Interaction is only allowed
// when the input is actually a terminal, so piped invocations stay silent.
type TerminalInteraction struct {
	In  *os.File  // prompt input; defaults to os.Stdin
	Out io.Writer // banner and prompt output; defaults to os.Stderr
}

func (t *TerminalInteraction) in() *os.File {
	if t.In != nil {
		return t.In
	}
	return os.Stdin
}

func (t *TerminalInteraction) out() io.Writer {
	if t.Out != nil {
		return t.Out
	}
	return os.Stderr
}

func (t *TerminalInteraction) InteractionAllowed(*Session) bool {
	return term.IsTerminal(int(t.in().Fd()))
}

func (t *TerminalInteraction) VersionInfo(s *Session, lines []string) {
	for _, line := range lines {
		logging.Debugf("server version for %s: %s", s.Target(), line)
	}
}

func (t *TerminalInteraction) Welcome(_ *Session, banner, _ string) {
	fmt.Fprint(t.out(), banner)
	if !strings.HasSuffix(banner, "\n") {
		fmt.Fprintln(t.out())
	}
}

func (t *TerminalInteraction) Interactive(_ *Session, name, instruction, _ string, prompts []string, echo []bool) ([]string, bool) {
	out := t.out()
	if name != "" {
		fmt.Fprintln(out, name)
	}
	if instruction != "" {
		fmt.Fprintln(out, instruction)
	}

	reader := bufio.NewReader(t.in())
	answers := make([]string, 0, len(prompts))
	for i, prompt := range prompts {
		fmt.Fprint(out, prompt)
		if i < len(echo) && echo[i] {
			line, err := reader.ReadString('\n')
			if err != nil {
				return nil, false
			}
			answers = append(answers, strings.TrimRight(line, "\r\n"))
			continue
		}
		secret, err := term.ReadPassword(int(t.in().Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return nil, false
		}
		answers = append(answers, string(secret))
	}
	return answers, true
}

func (t *TerminalInteraction) UpdatedPassword(*Session, string, string) (string, bool) {
	return "", false
}
