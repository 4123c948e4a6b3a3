package controller

import "context"

type contextKey int

const (
	desktopIdCtxKey contextKey = iota
)

func (c controller) getDesktopIdFromCtx(ctx context.Context) string {
	desktopId, ok := ctx.Value(desktopIdCtxKey).(string)
	if !ok {
		return ""
	}

	return desktopId
}
