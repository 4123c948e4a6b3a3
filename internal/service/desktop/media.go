package desktop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/xpcollage/server/internal/media"
	"github.com/xpcollage/server/internal/repository/file"
	mediarepo "github.com/xpcollage/server/internal/repository/media"
)

type AddMediaParams struct {
	DesktopID string
	FileName  string
	Title     string
	Body      io.ReadSeeker
}

type AddMediaResponse struct {
	WindowID    string
	SourceID    string
	AspectRatio media.AspectRatio
	Snapshot    Snapshot
}

// AddMedia stores an uploaded video, probes its aspect ratio and opens a window for it.
// The window is created only after the probe has finished.
func (s *service) AddMedia(ctx context.Context, params *AddMediaParams) (AddMediaResponse, error) {
	manager, err := s.GetDesktop(params.DesktopID)
	if err != nil {
		return AddMediaResponse{}, err
	}

	mimeType, err := media.Detect(params.Body)
	if err != nil {
		if errors.Is(err, media.ErrNotVideo) {
			return AddMediaResponse{}, fmt.Errorf("%w: %s", ErrUnsupportedMedia, mimeType)
		}
		return AddMediaResponse{}, err
	}

	aspectRatio := media.Probe(ctx, params.Body)
	if !aspectRatio.Measured {
		s.logger.InfoContext(ctx, "using fallback aspect ratio", "file_name", params.FileName)
	}

	if _, err := params.Body.Seek(0, io.SeekStart); err != nil {
		return AddMediaResponse{}, fmt.Errorf("failed to rewind upload: %w", err)
	}

	sourceID := uuid.NewString()
	filePath, size, err := s.fileRepo.Save(params.DesktopID, sourceID, params.Body)
	if err != nil {
		return AddMediaResponse{}, fmt.Errorf("failed to save file: %w", err)
	}

	title := params.Title
	if title == "" {
		title = filepath.Base(params.FileName)
	}

	if err := s.mediaRepo.SetSource(ctx, &mediarepo.SetSourceParams{
		SourceID:    sourceID,
		DesktopID:   params.DesktopID,
		Title:       title,
		Path:        filePath,
		MimeType:    mimeType,
		Size:        size,
		AspectRatio: aspectRatio.Value,
		Measured:    aspectRatio.Measured,
	}); err != nil {
		s.fileRepo.Remove(filePath)
		return AddMediaResponse{}, fmt.Errorf("failed to register source: %w", err)
	}

	windowID, snapshot, err := s.addWindow(params.DesktopID, manager, sourceID, title, aspectRatio.Value)
	if err != nil {
		if err := s.revokeSource(ctx, params.DesktopID, sourceID); err != nil {
			s.logger.WarnContext(ctx, "failed to revoke source of deleted desktop", "error", err, "source_id", sourceID)
		}
		if err := s.fileRepo.RemoveDesktop(params.DesktopID); err != nil {
			s.logger.WarnContext(ctx, "failed to remove files of deleted desktop", "error", err)
		}
		return AddMediaResponse{}, err
	}

	s.logger.InfoContext(ctx, "window created",
		"desktop_id", params.DesktopID,
		"window_id", windowID,
		"source_id", sourceID,
		"mime_type", mimeType,
		"aspect_ratio", aspectRatio.Value,
		"measured", aspectRatio.Measured,
	)

	return AddMediaResponse{
		WindowID:    windowID,
		SourceID:    sourceID,
		AspectRatio: aspectRatio,
		Snapshot:    snapshot,
	}, nil
}

type OpenMediaResponse struct {
	File   afero.File
	Source mediarepo.Source
}

// OpenMedia resolves a source reference. The caller must close the returned file.
func (s *service) OpenMedia(ctx context.Context, sourceID string) (OpenMediaResponse, error) {
	source, err := s.mediaRepo.GetSource(ctx, sourceID)
	if err != nil {
		return OpenMediaResponse{}, fmt.Errorf("failed to get source: %w", err)
	}

	f, err := s.fileRepo.Open(source.Path)
	if err != nil {
		return OpenMediaResponse{}, fmt.Errorf("failed to open file: %w", err)
	}

	return OpenMediaResponse{
		File:   f,
		Source: source,
	}, nil
}

// CloseWindow removes the window and revokes its media source. Unknown windows are ignored.
func (s *service) CloseWindow(ctx context.Context, desktopID, windowID string) (Snapshot, error) {
	manager, err := s.GetDesktop(desktopID)
	if err != nil {
		return Snapshot{}, err
	}

	removed, ok, snapshot := manager.removeWindow(windowID)
	if !ok {
		return snapshot, nil
	}

	if err := s.revokeSource(ctx, desktopID, removed.Source); err != nil {
		return snapshot, fmt.Errorf("failed to revoke source: %w", err)
	}

	return snapshot, nil
}

func (s *service) revokeSource(ctx context.Context, desktopID, sourceID string) error {
	source, err := s.mediaRepo.GetSource(ctx, sourceID)
	if err != nil {
		if errors.Is(err, mediarepo.ErrSourceNotFound) {
			return nil
		}
		return err
	}

	if err := s.mediaRepo.RemoveSource(ctx, &mediarepo.RemoveSourceParams{
		SourceID:  sourceID,
		DesktopID: desktopID,
	}); err != nil && !errors.Is(err, mediarepo.ErrSourceNotFound) {
		return err
	}

	if err := s.fileRepo.Remove(source.Path); err != nil && !errors.Is(err, file.ErrFileNotFound) {
		return err
	}

	s.logger.DebugContext(ctx, "source revoked", "source_id", sourceID, "mime_type", source.MimeType)
	return nil
}
