package afero

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path"

	"github.com/spf13/afero"
	"github.com/xpcollage/server/internal/repository/file"
)

type repo struct {
	fs     afero.Fs
	logger *slog.Logger
}

// NewRepo stores files under root on fsys. root is created when missing.
func NewRepo(fsys afero.Fs, root string, logger *slog.Logger) (*repo, error) {
	if err := fsys.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media dir: %w", err)
	}

	return &repo{
		fs:     afero.NewBasePathFs(fsys, root),
		logger: logger,
	}, nil
}

func (r repo) getFilePath(desktopID, fileID string) string {
	return path.Join("/", desktopID, fileID)
}

// Save copies src into the desktop's directory and returns the stored path and byte count.
func (r repo) Save(desktopID, fileID string, src io.Reader) (string, int64, error) {
	funcName := "file.afero.Save"
	filePath := r.getFilePath(desktopID, fileID)

	if err := r.fs.MkdirAll(path.Dir(filePath), 0o755); err != nil {
		r.logger.Info(funcName, "error", err)
		return "", 0, err
	}

	f, err := r.fs.Create(filePath)
	if err != nil {
		r.logger.Info(funcName, "error", err)
		return "", 0, err
	}
	defer f.Close()

	size, err := io.Copy(f, src)
	if err != nil {
		r.logger.Info(funcName, "error", err)
		r.fs.Remove(filePath)
		return "", 0, err
	}

	r.logger.Debug(funcName, "path", filePath, "size", size)
	return filePath, size, nil
}

func (r repo) Open(filePath string) (afero.File, error) {
	f, err := r.fs.Open(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, file.ErrFileNotFound
		}
		return nil, err
	}

	return f, nil
}

func (r repo) Remove(filePath string) error {
	if err := r.fs.Remove(filePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return file.ErrFileNotFound
		}
		return err
	}

	return nil
}

// RemoveDesktop deletes the desktop's directory with everything in it.
func (r repo) RemoveDesktop(desktopID string) error {
	return r.fs.RemoveAll(path.Join("/", desktopID))
}
