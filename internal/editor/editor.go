// Package editor composes prompts in the user's text editor via a
// temporary file.
package editor

import (
	"os"
	"os/exec"
	"strings"

	"parley/pkg/chat/chaterrors"
)

// Compose opens a temporary file in the user's editor and returns its
// trimmed contents. The editor is chosen from command (the configured
// editor), then $EDITOR, then vi. command may carry arguments
// ("code --wait"); the file path is appended as the last argument.
func Compose(command, initial string) (string, error) {
	if command == "" {
		command = os.Getenv("EDITOR")
	}
	if command == "" {
		command = "vi"
	}

	file, err := os.CreateTemp("", "parley-prompt-*.md")
	if err != nil {
		return "", chaterrors.NewErrorWithCause(chaterrors.ErrorTypeConfiguration, err,
			"cannot create a prompt file")
	}
	path := file.Name()
	defer os.Remove(path)

	if initial != "" {
		if _, err := file.WriteString(initial); err != nil {
			file.Close()
			return "", chaterrors.NewErrorWithCause(chaterrors.ErrorTypeConfiguration, err,
				"cannot write the prompt file")
		}
	}
	if err := file.Close(); err != nil {
		return "", chaterrors.NewErrorWithCause(chaterrors.ErrorTypeConfiguration, err,
			"cannot write the prompt file")
	}

	parts := strings.Fields(command)
	args := append(parts[1:], path)
	cmd := exec.Command(parts[0], args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", chaterrors.NewErrorWithCause(chaterrors.ErrorTypeConfiguration, err,
			"unable to open editor")
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		return "", chaterrors.NewErrorWithCause(chaterrors.ErrorTypeConfiguration, err,
			"cannot read the prompt file back")
	}

	prompt := strings.TrimSpace(string(contents))
	if prompt == "" {
		return "", chaterrors.NewError(chaterrors.ErrorTypeEmptyInput, "empty prompt, aborting")
	}
	return prompt, nil
}
