package repository

import (
	"bufio"
	"errors"
	"io/fs"
	"membership-service/internal/models"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const ledgerExt = ".txt"

// RegistrationRepository stores one append-only text file per event, one
// identifier per line. Event names are validated by the caller.
type RegistrationRepository struct {
	dir string
}

func NewRegistrationRepository(dir string) *RegistrationRepository {
	return &RegistrationRepository{dir: dir}
}

func (r *RegistrationRepository) path(event string) string {
	return filepath.Join(r.dir, event+ledgerExt)
}

func (r *RegistrationRepository) EventExists(event string) (bool, error) {
	path := r.path(event)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, &models.StorageError{Op: "stat", Path: path, Err: err}
	}
	return info.Mode().IsRegular(), nil
}

// Contains scans the whole file for a line equal to identifier once trimmed.
func (r *RegistrationRepository) Contains(event, identifier string) (bool, error) {
	found := false
	err := r.scan(event, func(line string) bool {
		if line == identifier {
			found = true
			return false
		}
		return true
	})
	return found, err
}

func (r *RegistrationRepository) scan(event string, visit func(line string) bool) error {
	path := r.path(event)
	f, err := os.Open(path)
	if err != nil {
		return &models.StorageError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if !visit(strings.TrimSpace(scanner.Text())) {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return &models.StorageError{Op: "read", Path: path, Err: err}
	}
	return nil
}

// Append adds identifier as a new line. The file must already exist. A
// last line left unterminated by hand editing is closed first.
func (r *RegistrationRepository) Append(event, identifier string) error {
	path := r.path(event)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_RDWR, 0)
	if err != nil {
		return &models.StorageError{Op: "open", Path: path, Err: err}
	}
	line := identifier + "\n"
	terminated, err := endsWithNewline(f)
	if err != nil {
		f.Close()
		return &models.StorageError{Op: "read", Path: path, Err: err}
	}
	if !terminated {
		line = "\n" + line
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return &models.StorageError{Op: "append", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &models.StorageError{Op: "append", Path: path, Err: err}
	}
	return nil
}

// endsWithNewline reports whether f is empty or ends with a line break.
func endsWithNewline(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() == 0 {
		return true, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false, err
	}
	return last[0] == '\n', nil
}

// Create makes an empty file for event. It reports false when the file
// already existed.
func (r *RegistrationRepository) Create(event string) (bool, error) {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return false, &models.StorageError{Op: "mkdir", Path: r.dir, Err: err}
	}
	path := r.path(event)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, &models.StorageError{Op: "create", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return false, &models.StorageError{Op: "create", Path: path, Err: err}
	}
	return true, nil
}

// List returns the names of all provisioned events, sorted.
func (r *RegistrationRepository) List() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &models.StorageError{Op: "readdir", Path: r.dir, Err: err}
	}

	var events []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || !strings.HasSuffix(name, ledgerExt) {
			continue
		}
		event := strings.TrimSuffix(name, ledgerExt)
		if models.ValidEventName(event) {
			events = append(events, event)
		}
	}
	sort.Strings(events)
	return events, nil
}
