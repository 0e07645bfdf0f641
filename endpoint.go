package edumentor

import (
	"context"
	"errors"

	"github.com/go-kit/kit/endpoint"
)

type EndpointSet struct {
	Ingest endpoint.Endpoint
	Upload endpoint.Endpoint
	Search endpoint.Endpoint
	Ask    endpoint.Endpoint
	Stats  endpoint.Endpoint
}

func MakeEndpoints(svc Service) EndpointSet {
	return EndpointSet{
		Ingest: IngestEndpoint(svc),
		Upload: UploadEndpoint(svc),
		Search: SearchEndpoint(svc),
		Ask:    AskEndpoint(svc),
		Stats:  StatsEndpoint(svc),
	}
}

type IngestRequest struct {
	Path    string `json:"path" binding:"required"`
	Pattern string `json:"pattern,omitempty"`
}

type IngestResponse struct {
	Chunks int `json:"chunks"`
}

func IngestEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(IngestRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		var (
			n   int
			err error
		)

		if req.Pattern != "" {
			n, err = svc.IngestFolder(ctx, req.Path, req.Pattern)
		} else {
			n, err = svc.Ingest(ctx, req.Path)
		}

		if err != nil {
			return nil, err
		}

		return IngestResponse{Chunks: n}, nil
	}
}

type UploadRequest struct {
	Files []File `json:"files"`
}

func UploadEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(UploadRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		n, err := svc.Upload(ctx, req.Files)
		if err != nil {
			return nil, err
		}

		return IngestResponse{Chunks: n}, nil
	}
}

type SearchRequest struct {
	Query string `json:"query" form:"query" binding:"required"`
	K     int    `json:"k,omitempty" form:"k"`
}

func SearchEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(SearchRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.Search(ctx, req.Query, ClampTopK(req.K))
	}
}

type AskRequest struct {
	Question  string    `json:"question" binding:"required"`
	K         int       `json:"k,omitempty"`
	ExamFocus ExamFocus `json:"exam_focus,omitempty"`
}

func AskEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(AskRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.Ask(ctx, req.Question, ClampTopK(req.K), req.ExamFocus)
	}
}

func StatsEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		return svc.Stats(ctx)
	}
}
