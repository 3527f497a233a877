// Package store persists conversation records as JSON documents, one per
// named conversation, under the user's config directory.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"parley/pkg/chat/chaterrors"
	"parley/pkg/conversation"
)

const fileExt = ".json"

// Names are single path segments; the charset keeps them portable across
// filesystems and safe to embed in temp-file patterns.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9._:-]+$`)

// Store manages the conversation documents in one directory.
type Store struct {
	baseDir string
}

// DefaultDir returns the conversation directory under the user's config
// directory.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", chaterrors.NewErrorWithCause(chaterrors.ErrorTypeConfiguration, err,
			"cannot resolve a writable config location")
	}
	return filepath.Join(base, "parley", "conversations"), nil
}

// Open creates a store rooted at baseDir, creating the directory if needed.
func Open(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, chaterrors.NewErrorWithCause(chaterrors.ErrorTypeConfiguration, err,
			fmt.Sprintf("cannot create conversation directory %s", baseDir))
	}
	return &Store{baseDir: baseDir}, nil
}

// ValidateName rejects names that would escape the store directory or
// produce unusable filenames.
func ValidateName(name string) error {
	if name == "" {
		return chaterrors.NewError(chaterrors.ErrorTypeConfiguration, "conversation name is empty")
	}
	if !namePattern.MatchString(name) || name == "." || name == ".." {
		return chaterrors.NewErrorf(chaterrors.ErrorTypeConfiguration,
			"invalid conversation name %q", name)
	}
	return nil
}

// Path returns the document path for a conversation name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.baseDir, name+fileExt)
}

// Load reads the record for name. A missing document is reported as a
// typed not-found error so callers can start fresh; an unreadable or
// undecodable document is a corrupt-storage error.
//
// Older documents that carry only model and history load with an empty
// context and zero counters.
func (s *Store) Load(name string) (*conversation.Record, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, chaterrors.NewErrorf(chaterrors.ErrorTypeStorageNotFound,
				"no conversation named %q", name)
		}
		return nil, chaterrors.NewErrorWithCause(chaterrors.ErrorTypeStorageCorrupt, err,
			fmt.Sprintf("cannot read conversation %q", name))
	}

	var rec conversation.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, chaterrors.NewErrorWithCause(chaterrors.ErrorTypeStorageCorrupt, err,
			fmt.Sprintf("conversation %q is not valid JSON", name))
	}
	return &rec, nil
}

// Save replaces the document for name with rec. The write goes to a
// temporary file first and is renamed into place, so a crash mid-save
// leaves the previous document intact.
func (s *Store) Save(name string, rec *conversation.Record) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal conversation %q: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.baseDir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %q: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write conversation %q: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write conversation %q: %w", name, err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set permissions on %q: %w", name, err)
	}
	if err := os.Rename(tmpName, s.Path(name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace conversation %q: %w", name, err)
	}
	return nil
}

// Delete removes the document for name. Deleting a missing conversation
// is not an error.
func (s *Store) Delete(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := os.Remove(s.Path(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete conversation %q: %w", name, err)
	}
	return nil
}

// List returns the stored conversation names, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, fileExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(name, fileExt))
	}
	sort.Strings(names)
	return names, nil
}
