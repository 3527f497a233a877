// Package naming derives default conversation names from the
// surrounding git repository, so chats started anywhere inside a work
// tree land in the same conversation.
package naming

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os/exec"
	"strings"
)

// InsideWorkTree reports whether dir sits inside a git work tree.
func InsideWorkTree(dir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = dir
	return cmd.Run() == nil
}

// RepoName returns the conversation name for the repository containing
// dir: the hex SHA-256 of the work tree's top-level path. Hashing keeps
// stored file names uniform and free of path separators.
func RepoName(dir string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git rev-parse --show-toplevel: %w", err)
	}
	sum := sha256.Sum256([]byte(strings.TrimSpace(string(output))))
	return hex.EncodeToString(sum[:]), nil
}

// Resolve determines the conversation name for a chat started in dir.
//
// Inside a git work tree the repository hash is the default, and an
// explicit name starting with ":" is appended to that hash so related
// conversations group per repository. Outside a work tree explicit
// names are used as given, and an empty result means the conversation
// is ephemeral.
func Resolve(dir, explicit string) (string, error) {
	if !InsideWorkTree(dir) {
		return explicit, nil
	}
	if explicit != "" && !strings.HasPrefix(explicit, ":") {
		return explicit, nil
	}
	repo, err := RepoName(dir)
	if err != nil {
		return "", err
	}
	return repo + explicit, nil
}
