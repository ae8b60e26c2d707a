package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"membership-service/internal/models"
	"os"
	"path/filepath"
	"time"
)

// ProfileRepository keeps one JSON document per identifier in a directory.
type ProfileRepository struct {
	dir string
	now func() time.Time
}

func NewProfileRepository(dir string) *ProfileRepository {
	return &ProfileRepository{
		dir: dir,
		now: time.Now,
	}
}

func (r *ProfileRepository) path(identifier string) string {
	return filepath.Join(r.dir, identifier+".json")
}

func (r *ProfileRepository) Exists(identifier string) (bool, error) {
	if err := models.ValidateIdentifier(identifier); err != nil {
		return false, err
	}
	path := r.path(identifier)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, &models.StorageError{Op: "stat", Path: path, Err: err}
	}
	return info.Mode().IsRegular(), nil
}

// Load reads the stored document, or builds a fresh one when none exists.
func (r *ProfileRepository) Load(identifier string) (*models.Profile, error) {
	if err := models.ValidateIdentifier(identifier); err != nil {
		return nil, err
	}
	path := r.path(identifier)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return models.NewProfile(identifier, r.now()), nil
	}
	if err != nil {
		return nil, &models.StorageError{Op: "read", Path: path, Err: err}
	}

	doc := &models.Node{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, &models.StorageError{Op: "decode", Path: path, Err: err}
	}
	if doc.Kind() != models.KindMapping {
		return nil, &models.StorageError{Op: "decode", Path: path, Err: fmt.Errorf("document is a %s", doc.Kind())}
	}

	return &models.Profile{
		Identifier: identifier,
		Data:       doc,
	}, nil
}

// Save overwrites the stored document with the whole in-memory one.
func (r *ProfileRepository) Save(profile *models.Profile) error {
	if err := models.ValidateIdentifier(profile.Identifier); err != nil {
		return err
	}
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return &models.StorageError{Op: "mkdir", Path: r.dir, Err: err}
	}

	path := r.path(profile.Identifier)
	data, err := json.Marshal(profile.Data)
	if err != nil {
		return &models.StorageError{Op: "encode", Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(r.dir, ".profile-*")
	if err != nil {
		return &models.StorageError{Op: "write", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &models.StorageError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &models.StorageError{Op: "write", Path: path, Err: err}
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return &models.StorageError{Op: "write", Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &models.StorageError{Op: "rename", Path: path, Err: err}
	}

	profile.IsNew = false
	return nil
}
