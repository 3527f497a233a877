package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"parley/internal/editor"
	"parley/pkg/chat/chaterrors"
	"parley/pkg/config"
	"parley/pkg/engine"
)

// acquirePrompt obtains the prompt text: positional arguments joined by
// single spaces, then -e editor composition, then an interactive read
// loop when stdin is a terminal. A usable prompt is never empty.
func acquirePrompt(opts chatOptions, args []string, cfg *config.Config) (string, error) {
	if len(args) > 0 {
		if prompt := strings.TrimSpace(strings.Join(args, " ")); prompt != "" {
			return prompt, nil
		}
	}
	if opts.editor {
		return editor.Compose(cfg.Editor, "")
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		reader := bufio.NewReader(os.Stdin)
		for {
			fmt.Fprint(os.Stderr, "Enter prompt: ")
			line, err := reader.ReadString('\n')
			if prompt := strings.TrimSpace(line); prompt != "" {
				return prompt, nil
			}
			if err != nil {
				break
			}
		}
	}
	return "", chaterrors.NewError(chaterrors.ErrorTypeEmptyInput, "empty prompt, aborting")
}

// chooseModel picks the model for a fresh conversation when -m was not
// given. On a terminal it prompts with the allow-list until the input
// resolves; empty input picks the default. Off a terminal the default is
// used directly.
func chooseModel(defaultModel string) (engine.Engine, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return engine.Resolve(defaultModel)
	}

	fmt.Fprintln(os.Stderr, "Specify a model for this conversation (empty picks the default).")
	fmt.Fprintf(os.Stderr, "Available: default, %s\n", strings.Join(engine.Names(), ", "))

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Fprint(os.Stderr, "Model: ")
		line, readErr := reader.ReadString('\n')
		name := strings.TrimSpace(line)
		if name == "" {
			name = defaultModel
		}
		eng, err := engine.Resolve(name)
		if err == nil {
			return eng, nil
		}
		fmt.Fprintf(os.Stderr, "%v\n", err)
		if readErr != nil {
			// No more input coming; the last attempt's error stands.
			return engine.Engine{}, err
		}
	}
}
