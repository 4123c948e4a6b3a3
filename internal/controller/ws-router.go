package controller

import (
	"github.com/xpcollage/server/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()
	mux.Use(c.wsRequestIdWSMw(), c.loggerWSMw())
	mux.SetErrorHandler(c.handleWSError)

	wsrouter.Handle(mux, "ALIVE", c.handleAlive)
	wsrouter.Handle(mux, "GET_STATE", c.handleGetState)

	// window
	wsrouter.Handle(mux, "FOCUS_WINDOW", c.handleFocusWindow)
	wsrouter.Handle(mux, "MINIMIZE_WINDOW", c.handleMinimizeWindow)
	wsrouter.Handle(mux, "RESTORE_WINDOW", c.handleRestoreWindow)
	wsrouter.Handle(mux, "CLOSE_WINDOW", c.handleCloseWindow)
	wsrouter.Handle(mux, "MOVE_WINDOW", c.handleMoveWindow)
	wsrouter.Handle(mux, "RESIZE_WINDOW", c.handleResizeWindow)
	wsrouter.Handle(mux, "PATCH_WINDOW", c.handlePatchWindow)

	// playback
	wsrouter.Handle(mux, "SET_MUTED", c.handleSetMuted)
	wsrouter.Handle(mux, "SET_PLAYING", c.handleSetPlaying)

	// desktop
	wsrouter.Handle(mux, "ARRANGE_WINDOWS", c.handleArrangeWindows)
	wsrouter.Handle(mux, "SET_VIEWPORT", c.handleSetViewport)

	return mux
}
