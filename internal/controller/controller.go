package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/xpcollage/server/internal/domain"
	"github.com/xpcollage/server/internal/service/desktop"
	"github.com/xpcollage/server/pkg/validator"
	"github.com/xpcollage/server/pkg/wsrouter"
)

type iDesktopService interface {
	CreateDesktop(context.Context, domain.Viewport) (desktop.CreateDesktopResponse, error)
	GetDesktop(string) (*desktop.Manager, error)
	DeleteDesktop(context.Context, string) error
	AddMedia(context.Context, *desktop.AddMediaParams) (desktop.AddMediaResponse, error)
	OpenMedia(context.Context, string) (desktop.OpenMediaResponse, error)
	CloseWindow(ctx context.Context, desktopID, windowID string) (desktop.Snapshot, error)
}

type iConnectionRepo interface {
	Add(conn *websocket.Conn, desktopID string) error
	RemoveByConn(*websocket.Conn) error
	GetConns(desktopID string) []*websocket.Conn
	WriteJSON(conn *websocket.Conn, v any) error
}

type controller struct {
	desktopService iDesktopService
	connRepo       iConnectionRepo
	upgrader       websocket.Upgrader
	wsmux          *wsrouter.WSRouter
	validate       *validator.Validator
	logger         *slog.Logger
	uploadLimit    int64
}

func NewController(desktopService iDesktopService, connRepo iConnectionRepo, logger *slog.Logger, uploadLimit int64) *controller {
	c := controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		desktopService: desktopService,
		connRepo:       connRepo,
		validate:       validator.NewValidator(),
		logger:         logger,
		uploadLimit:    uploadLimit,
	}
	c.wsmux = c.getWSRouter()

	return &c
}
