package edumentor

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flarexio/edumentor/vector"
)

func LoggingMiddleware(log *zap.Logger) ServiceMiddleware {
	log = log.With(
		zap.String("service", "edumentor"),
	)

	return func(next Service) Service {
		log.Info("service initialized")

		return &loggingMiddleware{
			log:  log,
			next: next,
		}
	}
}

type loggingMiddleware struct {
	log  *zap.Logger
	next Service
}

func (mw *loggingMiddleware) Close() error {
	log := mw.log.With(
		zap.String("action", "close"),
	)

	err := mw.next.Close()
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("service closed")
	return nil
}

func (mw *loggingMiddleware) Ingest(ctx context.Context, path string) (int, error) {
	log := mw.log.With(
		zap.String("action", "ingest"),
		zap.String("request_id", uuid.NewString()),
		zap.String("path", path),
	)

	n, err := mw.next.Ingest(ctx, path)
	if err != nil {
		log.Error(err.Error(), zap.Int("chunks", n))
		return n, err
	}

	log.Info("material ingested", zap.Int("chunks", n))
	return n, nil
}

func (mw *loggingMiddleware) IngestFolder(ctx context.Context, dir string, pattern string) (int, error) {
	log := mw.log.With(
		zap.String("action", "ingest_folder"),
		zap.String("request_id", uuid.NewString()),
		zap.String("dir", dir),
	)

	if pattern != "" {
		log = log.With(
			zap.String("pattern", pattern),
		)
	}

	n, err := mw.next.IngestFolder(ctx, dir, pattern)
	if err != nil {
		log.Error(err.Error(), zap.Int("chunks", n))
		return n, err
	}

	log.Info("folder ingested", zap.Int("chunks", n))
	return n, nil
}

func (mw *loggingMiddleware) Upload(ctx context.Context, files []File) (int, error) {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}

	log := mw.log.With(
		zap.String("action", "upload"),
		zap.String("request_id", uuid.NewString()),
		zap.Strings("files", names),
	)

	n, err := mw.next.Upload(ctx, files)
	if err != nil {
		log.Error(err.Error(), zap.Int("chunks", n))
		return n, err
	}

	log.Info("files uploaded", zap.Int("chunks", n))
	return n, nil
}

func (mw *loggingMiddleware) Search(ctx context.Context, query string, k int) ([]vector.Result, error) {
	log := mw.log.With(
		zap.String("action", "search"),
		zap.String("query", query),
	)

	if k > 0 {
		log = log.With(
			zap.Int("k", k),
		)
	}

	results, err := mw.next.Search(ctx, query, k)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("material searched", zap.Int("count", len(results)))
	return results, nil
}

func (mw *loggingMiddleware) Ask(ctx context.Context, question string, k int, examFocus ExamFocus) (*Answer, error) {
	log := mw.log.With(
		zap.String("action", "ask"),
		zap.String("request_id", uuid.NewString()),
		zap.String("question", question),
		zap.Int("k", k),
		zap.String("exam_focus", string(examFocus)),
	)

	answer, err := mw.next.Ask(ctx, question, k, examFocus)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("question answered",
		zap.String("intent", string(answer.Intent)),
		zap.Bool("summary", answer.Summary),
		zap.Int("sources", len(answer.Sources)),
	)

	return answer, nil
}

func (mw *loggingMiddleware) Stats(ctx context.Context) (*Stats, error) {
	log := mw.log.With(
		zap.String("action", "stats"),
	)

	stats, err := mw.next.Stats(ctx)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Debug("stats collected",
		zap.Int("chunks", stats.Chunks),
		zap.Int("documents", stats.Documents),
	)

	return stats, nil
}
