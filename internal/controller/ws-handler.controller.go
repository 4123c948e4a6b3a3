package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/xpcollage/server/internal/domain"
	"github.com/xpcollage/server/internal/service/desktop"
	"github.com/xpcollage/server/pkg/ctxlogger"
	"github.com/xpcollage/server/pkg/omitnil"
	"github.com/xpcollage/server/pkg/rest"
	"github.com/xpcollage/server/pkg/validator"
)

const closeCodeDesktopClosed = 4004

func (c controller) connectDesktop(w http.ResponseWriter, r *http.Request) {
	desktopId := chi.URLParam(r, "desktop-id")
	ctx := ctxlogger.AppendCtx(r.Context(), slog.String("desktop_id", desktopId))

	manager, err := c.desktopService.GetDesktop(desktopId)
	if err != nil {
		c.logger.InfoContext(ctx, "failed to get desktop", "error", err)
		rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": err.Error()})
		return
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	if err := c.connRepo.Add(conn, desktopId); err != nil {
		c.logger.WarnContext(ctx, "failed to add conn", "error", err)
		return
	}
	defer c.connRepo.RemoveByConn(conn)

	snapshots, cancel := manager.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.pumpSnapshots(ctx, conn, desktopId, snapshots)
	}()

	ctx = context.WithValue(ctx, desktopIdCtxKey, desktopId)
	if err := c.wsmux.ServeConn(ctx, conn); err != nil {
		c.logger.InfoContext(ctx, "conn closed", "reason", err)
	}

	cancel()
	<-done
}

// pumpSnapshots writes every published snapshot to conn until the subscription ends. When the
// subscription ended because the desktop was deleted, conn is closed with closeCodeDesktopClosed.
func (c controller) pumpSnapshots(ctx context.Context, conn *websocket.Conn, desktopId string, snapshots <-chan desktop.Snapshot) {
	for snapshot := range snapshots {
		if err := c.writeDesktopUpdated(ctx, conn, snapshot); err != nil {
			c.logger.InfoContext(ctx, "failed to write snapshot", "error", err, "version", snapshot.Version)
		}
	}

	if !c.desktopDeleted(desktopId) {
		return
	}

	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(closeCodeDesktopClosed, "desktop closed"),
		time.Now().Add(time.Second))
	conn.Close()
}

// desktopDeleted reports whether the desktop is no longer registered. DeleteDesktop unregisters
// a desktop before it ends the subscriptions.
func (c controller) desktopDeleted(desktopId string) bool {
	_, err := c.desktopService.GetDesktop(desktopId)
	return errors.Is(err, desktop.ErrDesktopNotFound)
}

func (c controller) handleWSError(ctx context.Context, conn *websocket.Conn, err error) error {
	c.logger.InfoContext(ctx, "failed to handle message", "error", err)

	payload := map[string]any{
		"message": err.Error(),
	}

	var verrs validationErrors
	if errors.As(err, &verrs) {
		payload["message"] = ErrValidationError.Error()
		payload["errors"] = []validator.ValidationError(verrs)
	}

	return c.writeToConn(ctx, conn, &Output{
		Type:    "ERROR",
		Payload: payload,
	})
}

type EmptyInput struct{}

func (c controller) handleAlive(_ context.Context, _ *websocket.Conn, _ EmptyInput) error {
	return nil
}

func (c controller) handleGetState(ctx context.Context, conn *websocket.Conn, _ EmptyInput) error {
	manager, err := c.getManager(ctx)
	if err != nil {
		return err
	}

	return c.writeDesktopUpdated(ctx, conn, manager.Snapshot())
}

type WindowInput struct {
	WindowId string `json:"window_id" validate:"required"`
}

// windowCommand runs a single-window command. The resulting snapshot reaches every
// subscriber of the desktop through its subscription.
func (c controller) windowCommand(ctx context.Context, input any, run func(*desktop.Manager) desktop.Snapshot) error {
	if err := c.validateInput(input); err != nil {
		return err
	}

	manager, err := c.getManager(ctx)
	if err != nil {
		return err
	}

	snapshot := run(manager)
	c.logger.DebugContext(ctx, "command applied", "version", snapshot.Version)
	return nil
}

func (c controller) handleFocusWindow(ctx context.Context, _ *websocket.Conn, input WindowInput) error {
	return c.windowCommand(ctx, input, func(m *desktop.Manager) desktop.Snapshot {
		return m.Focus(input.WindowId)
	})
}

func (c controller) handleMinimizeWindow(ctx context.Context, _ *websocket.Conn, input WindowInput) error {
	return c.windowCommand(ctx, input, func(m *desktop.Manager) desktop.Snapshot {
		return m.Minimize(input.WindowId)
	})
}

func (c controller) handleRestoreWindow(ctx context.Context, _ *websocket.Conn, input WindowInput) error {
	return c.windowCommand(ctx, input, func(m *desktop.Manager) desktop.Snapshot {
		return m.Restore(input.WindowId)
	})
}

func (c controller) handleCloseWindow(ctx context.Context, _ *websocket.Conn, input WindowInput) error {
	if err := c.validateInput(input); err != nil {
		return err
	}

	if _, err := c.desktopService.CloseWindow(ctx, c.getDesktopIdFromCtx(ctx), input.WindowId); err != nil {
		return fmt.Errorf("failed to close window: %w", err)
	}

	return nil
}

type MoveWindowInput struct {
	WindowId string  `json:"window_id" validate:"required"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

func (c controller) handleMoveWindow(ctx context.Context, _ *websocket.Conn, input MoveWindowInput) error {
	return c.windowCommand(ctx, input, func(m *desktop.Manager) desktop.Snapshot {
		return m.MoveWindow(input.WindowId, domain.Position{X: input.X, Y: input.Y})
	})
}

type ResizeWindowInput struct {
	WindowId string  `json:"window_id" validate:"required"`
	Width    float64 `json:"width" validate:"gt=0"`
	Height   float64 `json:"height" validate:"gte=0"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

func (c controller) handleResizeWindow(ctx context.Context, _ *websocket.Conn, input ResizeWindowInput) error {
	return c.windowCommand(ctx, input, func(m *desktop.Manager) desktop.Snapshot {
		return m.ResizeWindow(input.WindowId,
			domain.Size{Width: input.Width, Height: input.Height},
			domain.Position{X: input.X, Y: input.Y},
		)
	})
}

type SetMutedInput struct {
	WindowId string `json:"window_id" validate:"required"`
	IsMuted  *bool  `json:"is_muted" validate:"required"`
}

func (c controller) handleSetMuted(ctx context.Context, _ *websocket.Conn, input SetMutedInput) error {
	return c.windowCommand(ctx, input, func(m *desktop.Manager) desktop.Snapshot {
		return m.SetMuted(input.WindowId, *input.IsMuted)
	})
}

type SetPlayingInput struct {
	WindowId  string `json:"window_id" validate:"required"`
	IsPlaying *bool  `json:"is_playing" validate:"required"`
}

func (c controller) handleSetPlaying(ctx context.Context, _ *websocket.Conn, input SetPlayingInput) error {
	return c.windowCommand(ctx, input, func(m *desktop.Manager) desktop.Snapshot {
		return m.SetPlaying(input.WindowId, *input.IsPlaying)
	})
}

func (c controller) handleArrangeWindows(ctx context.Context, _ *websocket.Conn, input EmptyInput) error {
	return c.windowCommand(ctx, input, func(m *desktop.Manager) desktop.Snapshot {
		return m.ArrangeVertically()
	})
}

type SetViewportInput struct {
	Width  float64 `json:"width" validate:"gt=0"`
	Height float64 `json:"height" validate:"gt=0"`
}

func (c controller) handleSetViewport(ctx context.Context, _ *websocket.Conn, input SetViewportInput) error {
	return c.windowCommand(ctx, input, func(m *desktop.Manager) desktop.Snapshot {
		return m.SetViewport(domain.Viewport{Width: input.Width, Height: input.Height})
	})
}

type PatchWindowInput struct {
	WindowId    string   `json:"window_id" validate:"required"`
	X           *float64 `json:"x" validate:"required_with=Y"`
	Y           *float64 `json:"y" validate:"required_with=X"`
	Width       *float64 `json:"width" validate:"omitempty,gt=0"`
	IsMinimized *bool    `json:"is_minimized"`
	IsMuted     *bool    `json:"is_muted"`
	IsPlaying   *bool    `json:"is_playing"`
}

// handlePatchWindow applies any subset of the mutable window fields in one command.
func (c controller) handlePatchWindow(ctx context.Context, _ *websocket.Conn, input PatchWindowInput) error {
	patch := domain.WindowPatch{
		IsMinimized: input.IsMinimized,
		IsMuted:     input.IsMuted,
		IsPlaying:   input.IsPlaying,
	}
	if input.X != nil && input.Y != nil {
		patch.Position = &domain.Position{X: *input.X, Y: *input.Y}
	}
	if input.Width != nil {
		patch.Size = &domain.Size{Width: *input.Width}
	}

	c.logger.DebugContext(ctx, "patching window", "fields", omitnil.Fields(map[string]any{
		"x":            input.X,
		"y":            input.Y,
		"width":        input.Width,
		"is_minimized": input.IsMinimized,
		"is_muted":     input.IsMuted,
		"is_playing":   input.IsPlaying,
	}))

	return c.windowCommand(ctx, input, func(m *desktop.Manager) desktop.Snapshot {
		return m.PatchWindow(input.WindowId, patch)
	})
}
