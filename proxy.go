package edumentor

import (
	"context"
	"errors"

	"github.com/flarexio/edumentor/vector"
)

func ProxyMiddleware(endpoints *EndpointSet) ServiceMiddleware {
	return func(next Service) Service {
		return &proxyMiddleware{
			endpoints: endpoints,
		}
	}
}

type proxyMiddleware struct {
	endpoints *EndpointSet
}

func (mw *proxyMiddleware) Close() error {
	return errors.New("method not implemented")
}

func (mw *proxyMiddleware) ingest(ctx context.Context, req IngestRequest) (int, error) {
	resp, err := mw.endpoints.Ingest(ctx, req)
	if err != nil {
		return 0, err
	}

	result, ok := resp.(IngestResponse)
	if !ok {
		return 0, errors.New("invalid response type")
	}

	return result.Chunks, nil
}

func (mw *proxyMiddleware) Ingest(ctx context.Context, path string) (int, error) {
	return mw.ingest(ctx, IngestRequest{Path: path})
}

func (mw *proxyMiddleware) IngestFolder(ctx context.Context, dir string, pattern string) (int, error) {
	return mw.ingest(ctx, IngestRequest{Path: dir, Pattern: pattern})
}

func (mw *proxyMiddleware) Upload(ctx context.Context, files []File) (int, error) {
	resp, err := mw.endpoints.Upload(ctx, UploadRequest{Files: files})
	if err != nil {
		return 0, err
	}

	result, ok := resp.(IngestResponse)
	if !ok {
		return 0, errors.New("invalid response type")
	}

	return result.Chunks, nil
}

func (mw *proxyMiddleware) Search(ctx context.Context, query string, k int) ([]vector.Result, error) {
	req := SearchRequest{
		Query: query,
		K:     k,
	}

	resp, err := mw.endpoints.Search(ctx, req)
	if err != nil {
		return nil, err
	}

	results, ok := resp.([]vector.Result)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return results, nil
}

func (mw *proxyMiddleware) Ask(ctx context.Context, question string, k int, examFocus ExamFocus) (*Answer, error) {
	req := AskRequest{
		Question:  question,
		K:         k,
		ExamFocus: examFocus,
	}

	resp, err := mw.endpoints.Ask(ctx, req)
	if err != nil {
		return nil, err
	}

	answer, ok := resp.(*Answer)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return answer, nil
}

func (mw *proxyMiddleware) Stats(ctx context.Context) (*Stats, error) {
	resp, err := mw.endpoints.Stats(ctx, nil)
	if err != nil {
		return nil, err
	}

	stats, ok := resp.(*Stats)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return stats, nil
}
