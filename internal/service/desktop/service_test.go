package desktop

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xpcollage/server/internal/domain"
	fileAfero "github.com/xpcollage/server/internal/repository/file/afero"
	mediarepo "github.com/xpcollage/server/internal/repository/media"
	mediaRedis "github.com/xpcollage/server/internal/repository/media/redis"
)

func mp4Box(typ string, payload ...[]byte) []byte {
	body := bytes.Join(payload, nil)
	out := make([]byte, 8, 8+len(body))
	binary.BigEndian.PutUint32(out, uint32(8+len(body)))
	copy(out[4:], typ)
	return append(out, body...)
}

func testVideo(width, height uint32) []byte {
	tkhd := make([]byte, 84)
	binary.BigEndian.PutUint32(tkhd[0:], 3)
	binary.BigEndian.PutUint32(tkhd[12:], 1)
	binary.BigEndian.PutUint32(tkhd[76:], width<<16)
	binary.BigEndian.PutUint32(tkhd[80:], height<<16)

	ftyp := mp4Box("ftyp", []byte("isom"), []byte{0, 0, 2, 0}, []byte("isom"))
	return append(ftyp, mp4Box("moov", mp4Box("trak", mp4Box("tkhd", tkhd)))...)
}

// deletingFileRepo deletes the desktop while an upload is being saved.
type deletingFileRepo struct {
	iFileRepo
	onSave func(desktopID string)
}

func (r deletingFileRepo) Save(desktopID, fileID string, src io.Reader) (string, int64, error) {
	r.onSave(desktopID)
	return r.iFileRepo.Save(desktopID, fileID, src)
}

type testEnv struct {
	service *service
	redis   *miniredis.Miniredis
	fs      afero.Fs
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	slog.SetLogLoggerLevel(slog.LevelDebug)

	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	t.Cleanup(func() { rc.Close() })

	fs := afero.NewMemMapFs()
	fileRepo, err := fileAfero.NewRepo(fs, "/media", slog.Default())
	require.NoError(t, err)

	return testEnv{
		service: NewService(mediaRedis.NewRepo(rc, time.Hour, slog.Default()), fileRepo, slog.Default()),
		redis:   s,
		fs:      fs,
	}
}

func TestDesktopLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	createResp, err := env.service.CreateDesktop(ctx, domain.Viewport{Width: 400, Height: 800})
	require.NoError(t, err)
	assert.NotEmpty(t, createResp.DesktopID)
	assert.True(t, createResp.Snapshot.Viewport.IsCompact())

	manager, err := env.service.GetDesktop(createResp.DesktopID)
	require.NoError(t, err)

	ch, cancel := manager.Subscribe()
	defer cancel()
	<-ch

	addResp, err := env.service.AddMedia(ctx, &AddMediaParams{
		DesktopID: createResp.DesktopID,
		FileName:  "/home/user/videos/beach.mp4",
		Body:      bytes.NewReader(testVideo(1920, 1080)),
	})
	require.NoError(t, err)
	assert.True(t, addResp.AspectRatio.Measured)
	assert.InDelta(t, 16.0/9.0, addResp.AspectRatio.Value, 1e-9)

	w, ok := addResp.Snapshot.Window(addResp.WindowID)
	require.True(t, ok)
	assert.Equal(t, "beach.mp4", w.Title)
	assert.Equal(t, addResp.SourceID, w.Source)
	assert.Equal(t, 320.0, w.Size.Width)
	assert.InDelta(t, 180, w.Size.Height, 1e-9)

	published := <-ch
	assert.Equal(t, addResp.Snapshot.Version, published.Version)

	openResp, err := env.service.OpenMedia(ctx, addResp.SourceID)
	require.NoError(t, err)
	data, err := io.ReadAll(openResp.File)
	require.NoError(t, err)
	require.NoError(t, openResp.File.Close())
	assert.Equal(t, testVideo(1920, 1080), data)
	assert.Equal(t, "video/mp4", openResp.Source.MimeType)
	assert.Equal(t, createResp.DesktopID, openResp.Source.DesktopID)

	snapshot, err := env.service.CloseWindow(ctx, createResp.DesktopID, addResp.WindowID)
	require.NoError(t, err)
	assert.Empty(t, snapshot.Windows)
	assert.Empty(t, snapshot.FocusedID)

	_, err = env.service.OpenMedia(ctx, addResp.SourceID)
	assert.ErrorIs(t, err, mediarepo.ErrSourceNotFound, "closing a window revokes its source")

	_, err = env.service.CloseWindow(ctx, createResp.DesktopID, addResp.WindowID)
	assert.NoError(t, err, "closing twice is a no-op")
}

func TestAddMediaFallbackRatio(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	createResp, err := env.service.CreateDesktop(ctx, domain.Viewport{})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultViewport(), createResp.Snapshot.Viewport)

	// a video container without any track header
	body := mp4Box("ftyp", []byte("isom"), []byte{0, 0, 2, 0}, []byte("isom"))
	addResp, err := env.service.AddMedia(ctx, &AddMediaParams{
		DesktopID: createResp.DesktopID,
		FileName:  "broken.mp4",
		Title:     "Broken clip",
		Body:      bytes.NewReader(body),
	})
	require.NoError(t, err)
	assert.False(t, addResp.AspectRatio.Measured)
	assert.Equal(t, domain.FallbackAspectRatio, addResp.AspectRatio.Value)

	w, _ := addResp.Snapshot.Window(addResp.WindowID)
	assert.Equal(t, "Broken clip", w.Title)
	assert.InDelta(t, 400/domain.FallbackAspectRatio, w.Size.Height, 1e-9)
}

func TestAddMediaRejectsNonVideo(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	createResp, err := env.service.CreateDesktop(ctx, domain.DefaultViewport())
	require.NoError(t, err)

	_, err = env.service.AddMedia(ctx, &AddMediaParams{
		DesktopID: createResp.DesktopID,
		FileName:  "notes.txt",
		Body:      bytes.NewReader([]byte("just some notes")),
	})
	assert.ErrorIs(t, err, ErrUnsupportedMedia)

	manager, err := env.service.GetDesktop(createResp.DesktopID)
	require.NoError(t, err)
	assert.Empty(t, manager.Snapshot().Windows)
}

func TestUnknownDesktop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.GetDesktop("missing")
	assert.ErrorIs(t, err, ErrDesktopNotFound)

	_, err = env.service.AddMedia(ctx, &AddMediaParams{DesktopID: "missing", Body: bytes.NewReader(nil)})
	assert.ErrorIs(t, err, ErrDesktopNotFound)

	_, err = env.service.CloseWindow(ctx, "missing", "window")
	assert.ErrorIs(t, err, ErrDesktopNotFound)

	assert.ErrorIs(t, env.service.DeleteDesktop(ctx, "missing"), ErrDesktopNotFound)
}

func TestDeleteDesktop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	createResp, err := env.service.CreateDesktop(ctx, domain.DefaultViewport())
	require.NoError(t, err)

	sources := make([]string, 0, 2)
	for i := 0; i < 2; i++ {
		addResp, err := env.service.AddMedia(ctx, &AddMediaParams{
			DesktopID: createResp.DesktopID,
			FileName:  "clip.mp4",
			Body:      bytes.NewReader(testVideo(640, 480)),
		})
		require.NoError(t, err)
		sources = append(sources, addResp.SourceID)
	}

	manager, err := env.service.GetDesktop(createResp.DesktopID)
	require.NoError(t, err)
	ch, _ := manager.Subscribe()
	<-ch

	require.NoError(t, env.service.DeleteDesktop(ctx, createResp.DesktopID))

	_, open := <-ch
	assert.False(t, open, "deleting a desktop ends its subscriptions")

	_, err = env.service.GetDesktop(createResp.DesktopID)
	assert.ErrorIs(t, err, ErrDesktopNotFound)

	for _, sourceID := range sources {
		_, err := env.service.OpenMedia(ctx, sourceID)
		assert.ErrorIs(t, err, mediarepo.ErrSourceNotFound)
	}

	exists, err := afero.DirExists(env.fs, "/media/"+createResp.DesktopID)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Empty(t, env.redis.Keys())
}

func TestAddMediaDuringDeleteDesktop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	createResp, err := env.service.CreateDesktop(ctx, domain.DefaultViewport())
	require.NoError(t, err)

	manager, err := env.service.GetDesktop(createResp.DesktopID)
	require.NoError(t, err)

	env.service.fileRepo = deletingFileRepo{
		iFileRepo: env.service.fileRepo,
		onSave: func(desktopID string) {
			require.NoError(t, env.service.DeleteDesktop(ctx, desktopID))
		},
	}

	_, err = env.service.AddMedia(ctx, &AddMediaParams{
		DesktopID: createResp.DesktopID,
		FileName:  "late.mp4",
		Body:      bytes.NewReader(testVideo(1280, 720)),
	})
	assert.ErrorIs(t, err, ErrDesktopNotFound)

	assert.Empty(t, env.redis.Keys(), "no source may outlive its desktop")
	exists, err := afero.DirExists(env.fs, "/media/"+createResp.DesktopID)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Empty(t, manager.Snapshot().Windows)
}
