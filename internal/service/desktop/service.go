package desktop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/xpcollage/server/internal/domain"
	mediarepo "github.com/xpcollage/server/internal/repository/media"
)

var (
	ErrDesktopNotFound  = errors.New("desktop not found")
	ErrUnsupportedMedia = errors.New("unsupported media type")
)

type iMediaRepo interface {
	SetSource(context.Context, *mediarepo.SetSourceParams) error
	GetSource(context.Context, string) (mediarepo.Source, error)
	GetDesktopSourceIDs(context.Context, string) ([]string, error)
	RemoveSource(context.Context, *mediarepo.RemoveSourceParams) error
	RemoveDesktopSources(context.Context, string) error
}

type iFileRepo interface {
	Save(desktopID, fileID string, src io.Reader) (string, int64, error)
	Open(filePath string) (afero.File, error)
	Remove(filePath string) error
	RemoveDesktop(desktopID string) error
}

type service struct {
	mediaRepo iMediaRepo
	fileRepo  iFileRepo
	logger    *slog.Logger

	mu       sync.RWMutex
	desktops map[string]*Manager
}

func NewService(mediaRepo iMediaRepo, fileRepo iFileRepo, logger *slog.Logger) *service {
	return &service{
		mediaRepo: mediaRepo,
		fileRepo:  fileRepo,
		logger:    logger,
		desktops:  make(map[string]*Manager),
	}
}

type CreateDesktopResponse struct {
	DesktopID string
	Snapshot  Snapshot
}

func (s *service) CreateDesktop(ctx context.Context, viewport domain.Viewport) (CreateDesktopResponse, error) {
	if viewport.Width <= 0 || viewport.Height <= 0 {
		viewport = domain.DefaultViewport()
	}

	manager, err := NewManager(domain.NewWindowStore(viewport))
	if err != nil {
		return CreateDesktopResponse{}, fmt.Errorf("failed to create manager: %w", err)
	}

	desktopID := uuid.NewString()

	s.mu.Lock()
	s.desktops[desktopID] = manager
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "desktop created", "desktop_id", desktopID, "viewport", viewport)

	return CreateDesktopResponse{
		DesktopID: desktopID,
		Snapshot:  manager.Snapshot(),
	}, nil
}

func (s *service) GetDesktop(desktopID string) (*Manager, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	manager, ok := s.desktops[desktopID]
	if !ok {
		return nil, ErrDesktopNotFound
	}

	return manager, nil
}

// addWindow opens the window only while the desktop is still registered. A concurrent
// DeleteDesktop then either finds the already registered source or makes this fail with
// ErrDesktopNotFound.
func (s *service) addWindow(desktopID string, manager *Manager, sourceID, title string, aspectRatio float64) (string, Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.desktops[desktopID] != manager {
		return "", Snapshot{}, ErrDesktopNotFound
	}

	windowID, snapshot := manager.AddWindow(sourceID, title, aspectRatio)
	return windowID, snapshot, nil
}

// DeleteDesktop drops the desktop, ends its subscriptions and revokes all of its media sources.
func (s *service) DeleteDesktop(ctx context.Context, desktopID string) error {
	s.mu.Lock()
	manager, ok := s.desktops[desktopID]
	delete(s.desktops, desktopID)
	s.mu.Unlock()

	if !ok {
		return ErrDesktopNotFound
	}
	manager.Close()

	sourceIDs, err := s.mediaRepo.GetDesktopSourceIDs(ctx, desktopID)
	if err != nil {
		return fmt.Errorf("failed to get desktop sources: %w", err)
	}

	for _, sourceID := range sourceIDs {
		if err := s.mediaRepo.RemoveSource(ctx, &mediarepo.RemoveSourceParams{
			SourceID:  sourceID,
			DesktopID: desktopID,
		}); err != nil && !errors.Is(err, mediarepo.ErrSourceNotFound) {
			return fmt.Errorf("failed to remove source: %w", err)
		}
	}

	if err := s.mediaRepo.RemoveDesktopSources(ctx, desktopID); err != nil {
		return fmt.Errorf("failed to remove desktop sources: %w", err)
	}

	if err := s.fileRepo.RemoveDesktop(desktopID); err != nil {
		return fmt.Errorf("failed to remove desktop files: %w", err)
	}

	s.logger.InfoContext(ctx, "desktop deleted", "desktop_id", desktopID, "sources", len(sourceIDs))
	return nil
}
