package controller

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/xpcollage/server/internal/domain"
	"github.com/xpcollage/server/internal/media"
	mediarepo "github.com/xpcollage/server/internal/repository/media"
	"github.com/xpcollage/server/internal/service/desktop"
	"github.com/xpcollage/server/pkg/ctxlogger"
	"github.com/xpcollage/server/pkg/rest"
)

const multipartMemory = 32 << 20

type viewportInput struct {
	Width  float64 `json:"width" validate:"gte=0"`
	Height float64 `json:"height" validate:"gte=0"`
}

type createDesktopInput struct {
	Viewport viewportInput `json:"viewport"`
}

type createDesktopResponse struct {
	DesktopId string `json:"desktop_id"`
	desktopState
}

func (c controller) createDesktop(w http.ResponseWriter, r *http.Request) {
	var input createDesktopInput
	if r.ContentLength != 0 {
		if err := rest.ReadJSON(r, &input); err != nil {
			c.logger.InfoContext(r.Context(), "failed to read json", "error", err)
			rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
			return
		}
	}

	if err := c.validateInput(input); err != nil {
		c.writeValidationError(w, r, err)
		return
	}

	createDesktopResp, err := c.desktopService.CreateDesktop(r.Context(), domain.Viewport{
		Width:  input.Viewport.Width,
		Height: input.Viewport.Height,
	})
	if err != nil {
		c.logger.ErrorContext(r.Context(), "failed to create desktop", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": err.Error()})
		return
	}

	rest.WriteJSON(w, http.StatusCreated, rest.Envelope{"data": createDesktopResponse{
		DesktopId:    createDesktopResp.DesktopID,
		desktopState: newDesktopState(createDesktopResp.Snapshot),
	}})
}

func (c controller) getDesktop(w http.ResponseWriter, r *http.Request) {
	manager, err := c.desktopService.GetDesktop(chi.URLParam(r, "desktop-id"))
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": newDesktopState(manager.Snapshot())})
}

func (c controller) deleteDesktop(w http.ResponseWriter, r *http.Request) {
	desktopId := chi.URLParam(r, "desktop-id")
	ctx := ctxlogger.AppendCtx(r.Context(), slog.String("desktop_id", desktopId))

	if _, err := c.desktopService.GetDesktop(desktopId); err != nil {
		c.writeServiceError(w, r, err)
		return
	}

	if err := c.broadcast(ctx, c.connRepo.GetConns(desktopId), &Output{
		Type:    "DESKTOP_DELETED",
		Payload: map[string]any{"desktop_id": desktopId},
	}); err != nil {
		c.logger.InfoContext(ctx, "failed to broadcast desktop deleted", "error", err)
	}

	if err := c.desktopService.DeleteDesktop(ctx, desktopId); err != nil {
		c.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type addedMedia struct {
	WindowId    string            `json:"window_id"`
	SourceId    string            `json:"source_id"`
	FileName    string            `json:"file_name"`
	AspectRatio media.AspectRatio `json:"aspect_ratio"`
}

type uploadMediaResponse struct {
	Added []addedMedia `json:"added"`
	desktopState
}

// uploadMedia adds one window per uploaded file, in the order the files were sent.
func (c controller) uploadMedia(w http.ResponseWriter, r *http.Request) {
	desktopId := chi.URLParam(r, "desktop-id")
	ctx := ctxlogger.AppendCtx(r.Context(), slog.String("desktop_id", desktopId))

	if _, err := c.desktopService.GetDesktop(desktopId); err != nil {
		c.writeServiceError(w, r, err)
		return
	}

	if r.ContentLength > c.uploadLimit {
		rest.WriteJSON(w, http.StatusRequestEntityTooLarge, rest.Envelope{"error": "upload too large"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, c.uploadLimit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			rest.WriteJSON(w, http.StatusRequestEntityTooLarge, rest.Envelope{"error": "upload too large"})
			return
		}
		c.logger.InfoContext(ctx, "failed to parse multipart form", "error", err)
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"error": err.Error()})
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"error": "file is required"})
		return
	}

	resp := uploadMediaResponse{Added: make([]addedMedia, 0, len(files))}
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			c.logger.WarnContext(ctx, "failed to open uploaded file", "error", err, "file_name", fh.Filename)
			rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"error": err.Error(), "data": resp})
			return
		}

		addMediaResp, err := c.desktopService.AddMedia(ctx, &desktop.AddMediaParams{
			DesktopID: desktopId,
			FileName:  fh.Filename,
			Body:      f,
		})
		f.Close()
		if err != nil {
			c.logger.InfoContext(ctx, "failed to add media", "error", err, "file_name", fh.Filename)
			status := c.statusFor(err)
			rest.WriteJSON(w, status, rest.Envelope{"error": err.Error(), "data": resp})
			return
		}

		resp.Added = append(resp.Added, addedMedia{
			WindowId:    addMediaResp.WindowID,
			SourceId:    addMediaResp.SourceID,
			FileName:    fh.Filename,
			AspectRatio: addMediaResp.AspectRatio,
		})
		resp.desktopState = newDesktopState(addMediaResp.Snapshot)
	}

	rest.WriteJSON(w, http.StatusCreated, rest.Envelope{"data": resp})
}

func (c controller) serveMedia(w http.ResponseWriter, r *http.Request) {
	openMediaResp, err := c.desktopService.OpenMedia(r.Context(), chi.URLParam(r, "source-id"))
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	defer openMediaResp.File.Close()

	modTime := time.Time{}
	if info, err := openMediaResp.File.Stat(); err == nil {
		modTime = info.ModTime()
	}

	w.Header().Set("Content-Type", openMediaResp.Source.MimeType)
	w.Header().Set("Cache-Control", "private, no-store")
	http.ServeContent(w, r, openMediaResp.Source.Title, modTime, openMediaResp.File)
}

func (c controller) statusFor(err error) int {
	switch {
	case errors.Is(err, desktop.ErrDesktopNotFound), errors.Is(err, mediarepo.ErrSourceNotFound):
		return http.StatusNotFound
	case errors.Is(err, desktop.ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrValidationError):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (c controller) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := c.statusFor(err)
	if status == http.StatusInternalServerError {
		c.logger.ErrorContext(r.Context(), "request failed", "error", err)
	} else {
		c.logger.InfoContext(r.Context(), "request failed", "error", err)
	}

	rest.WriteJSON(w, status, rest.Envelope{"error": err.Error()})
}

func (c controller) writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	c.logger.InfoContext(r.Context(), "validation failed", "error", err)

	var verrs validationErrors
	if errors.As(err, &verrs) {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": verrs})
		return
	}

	rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"error": err.Error()})
}
