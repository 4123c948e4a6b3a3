package redis

import (
	"context"

	"github.com/xpcollage/server/internal/repository/media"
)

func (r repo) getSourceKey(sourceID string) string {
	return "media:" + sourceID
}

func (r repo) getDesktopSourcesKey(desktopID string) string {
	return "desktop:" + desktopID + ":media"
}

func (r repo) SetSource(ctx context.Context, params *media.SetSourceParams) error {
	funcName := "media.redis.SetSource"
	r.logger.DebugContext(ctx, funcName, "source_id", params.SourceID, "desktop_id", params.DesktopID)

	pipe := r.rc.TxPipeline()

	sourceKey := r.getSourceKey(params.SourceID)
	pipe.HSet(ctx, sourceKey, media.Source{
		DesktopID:   params.DesktopID,
		Title:       params.Title,
		Path:        params.Path,
		MimeType:    params.MimeType,
		Size:        params.Size,
		AspectRatio: params.AspectRatio,
		Measured:    params.Measured,
	})
	pipe.Expire(ctx, sourceKey, r.expireDuration)

	desktopSourcesKey := r.getDesktopSourcesKey(params.DesktopID)
	pipe.SAdd(ctx, desktopSourcesKey, params.SourceID)
	pipe.Expire(ctx, desktopSourcesKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.InfoContext(ctx, funcName, "error", err)
		return err
	}

	return nil
}

func (r repo) GetSource(ctx context.Context, sourceID string) (media.Source, error) {
	funcName := "media.redis.GetSource"
	r.logger.DebugContext(ctx, funcName, "source_id", sourceID)

	var source media.Source
	sourceKey := r.getSourceKey(sourceID)
	if err := r.rc.HGetAll(ctx, sourceKey).Scan(&source); err != nil {
		r.logger.InfoContext(ctx, funcName, "error", err)
		return media.Source{}, err
	}

	if source.Path == "" {
		return media.Source{}, media.ErrSourceNotFound
	}

	r.rc.Expire(ctx, sourceKey, r.expireDuration)

	return source, nil
}

func (r repo) GetDesktopSourceIDs(ctx context.Context, desktopID string) ([]string, error) {
	sourceIDs, err := r.rc.SMembers(ctx, r.getDesktopSourcesKey(desktopID)).Result()
	if err != nil {
		return nil, err
	}

	return sourceIDs, nil
}

func (r repo) RemoveSource(ctx context.Context, params *media.RemoveSourceParams) error {
	funcName := "media.redis.RemoveSource"
	r.logger.DebugContext(ctx, funcName, "source_id", params.SourceID, "desktop_id", params.DesktopID)

	pipe := r.rc.TxPipeline()
	delCmd := pipe.Del(ctx, r.getSourceKey(params.SourceID))
	pipe.SRem(ctx, r.getDesktopSourcesKey(params.DesktopID), params.SourceID)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.InfoContext(ctx, funcName, "error", err)
		return err
	}

	if delCmd.Val() == 0 {
		return media.ErrSourceNotFound
	}

	return nil
}

func (r repo) RemoveDesktopSources(ctx context.Context, desktopID string) error {
	return r.rc.Del(ctx, r.getDesktopSourcesKey(desktopID)).Err()
}
