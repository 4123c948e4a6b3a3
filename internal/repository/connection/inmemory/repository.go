package inmemory

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/xpcollage/server/internal/repository/connection"
)

type client struct {
	desktopID string
	writeMu   sync.Mutex
}

type repo struct {
	clients  map[*websocket.Conn]*client
	desktops map[string]map[*websocket.Conn]struct{}
	mu       sync.RWMutex
	logger   *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		clients:  make(map[*websocket.Conn]*client),
		desktops: make(map[string]map[*websocket.Conn]struct{}),
		logger:   logger,
	}
}

func (r *repo) Add(conn *websocket.Conn, desktopID string) error {
	funcName := "connection.inmemory.Add"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug(funcName, "desktop_id", desktopID)
	if _, ok := r.clients[conn]; ok {
		r.logger.Info(funcName, "error", connection.ErrAlreadyExists)
		return connection.ErrAlreadyExists
	}

	r.clients[conn] = &client{desktopID: desktopID}
	if r.desktops[desktopID] == nil {
		r.desktops[desktopID] = make(map[*websocket.Conn]struct{})
	}
	r.desktops[desktopID][conn] = struct{}{}

	r.logger.Debug(funcName, "result", "OK")
	return nil
}

func (r *repo) RemoveByConn(conn *websocket.Conn) error {
	funcName := "connection.inmemory.RemoveByConn"
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[conn]
	if !ok {
		r.logger.Info(funcName, "error", connection.ErrNotFound)
		return connection.ErrNotFound
	}

	delete(r.clients, conn)
	delete(r.desktops[c.desktopID], conn)
	if len(r.desktops[c.desktopID]) == 0 {
		delete(r.desktops, c.desktopID)
	}

	r.logger.Debug(funcName, "result", c.desktopID)
	return nil
}

func (r *repo) GetDesktopID(conn *websocket.Conn) (string, error) {
	funcName := "connection.inmemory.GetDesktopID"
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[conn]
	if !ok {
		r.logger.Info(funcName, "error", connection.ErrNotFound)
		return "", connection.ErrNotFound
	}

	return c.desktopID, nil
}

func (r *repo) GetConns(desktopID string) []*websocket.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*websocket.Conn, 0, len(r.desktops[desktopID]))
	for conn := range r.desktops[desktopID] {
		conns = append(conns, conn)
	}

	return conns
}

// WriteJSON serializes writes per connection, gorilla connections support one concurrent writer.
func (r *repo) WriteJSON(conn *websocket.Conn, v any) error {
	r.mu.RLock()
	c, ok := r.clients[conn]
	r.mu.RUnlock()
	if !ok {
		return connection.ErrNotFound
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return conn.WriteJSON(v)
}
