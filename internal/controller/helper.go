package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/xpcollage/server/internal/service/desktop"
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type desktopState struct {
	Snapshot desktop.Snapshot       `json:"snapshot"`
	Taskbar  []desktop.TaskbarEntry `json:"taskbar"`
}

func newDesktopState(snapshot desktop.Snapshot) desktopState {
	return desktopState{
		Snapshot: snapshot,
		Taskbar:  snapshot.Taskbar(),
	}
}

// generateTimeBasedId returns a uuid v7, ids sort by creation time.
func (c controller) generateTimeBasedId() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}

func (c controller) writeToConn(ctx context.Context, conn *websocket.Conn, output *Output) error {
	c.logger.DebugContext(ctx, "writing to conn", "type", output.Type)
	if err := c.connRepo.WriteJSON(conn, output); err != nil {
		return fmt.Errorf("failed to write to conn: %w", err)
	}

	return nil
}

func (c controller) broadcast(ctx context.Context, conns []*websocket.Conn, output *Output) error {
	c.logger.DebugContext(ctx, "broadcasting", "type", output.Type, "conns", len(conns))
	var errs []error
	for _, conn := range conns {
		if err := c.connRepo.WriteJSON(conn, output); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to broadcast: %w", err)
	}

	return nil
}

func (c controller) writeDesktopUpdated(ctx context.Context, conn *websocket.Conn, snapshot desktop.Snapshot) error {
	return c.writeToConn(ctx, conn, &Output{
		Type:    "DESKTOP_UPDATED",
		Payload: newDesktopState(snapshot),
	})
}

func (c controller) getManager(ctx context.Context) (*desktop.Manager, error) {
	return c.desktopService.GetDesktop(c.getDesktopIdFromCtx(ctx))
}
