package nats

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/edumentor"
	"github.com/flarexio/edumentor/vector"
)

// RequestTimeout applies to ingest and ask, which wait on the embedding
// backend and the language model.
const RequestTimeout = 5 * time.Minute

func MakeEndpoints(nc *nats.Conn, prefix string) *edumentor.EndpointSet {
	return &edumentor.EndpointSet{
		Ingest: IngestEndpoint(nc, prefix+".ingest"),
		Upload: UploadEndpoint(nc, prefix+".upload"),
		Search: SearchEndpoint(nc, prefix+".search"),
		Ask:    AskEndpoint(nc, prefix+".ask"),
		Stats:  StatsEndpoint(nc, prefix+".stats"),
	}
}

func doRequest(ctx context.Context, nc *nats.Conn, topic string, req any, timeout time.Duration) (*nats.Msg, error) {
	var data []byte
	if req != nil {
		bs, err := json.Marshal(req)
		if err != nil {
			return nil, err
		}

		data = bs
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := nc.RequestWithContext(ctx, topic, data)
	if err != nil {
		return nil, err
	}

	if err := Error(resp); err != nil {
		return nil, err
	}

	return resp, nil
}

func IngestEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(edumentor.IngestRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		return ingestResponse(ctx, nc, topic, req)
	}
}

func UploadEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(edumentor.UploadRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		return ingestResponse(ctx, nc, topic, req)
	}
}

func ingestResponse(ctx context.Context, nc *nats.Conn, topic string, req any) (any, error) {
	resp, err := doRequest(ctx, nc, topic, req, RequestTimeout)
	if err != nil {
		return nil, err
	}

	var result edumentor.IngestResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, err
	}

	return result, nil
}

func SearchEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(edumentor.SearchRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		resp, err := doRequest(ctx, nc, topic, req, nats.DefaultTimeout)
		if err != nil {
			return nil, err
		}

		var results []vector.Result
		if err := json.Unmarshal(resp.Data, &results); err != nil {
			return nil, err
		}

		return results, nil
	}
}

func AskEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(edumentor.AskRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		resp, err := doRequest(ctx, nc, topic, req, RequestTimeout)
		if err != nil {
			return nil, err
		}

		var answer *edumentor.Answer
		if err := json.Unmarshal(resp.Data, &answer); err != nil {
			return nil, err
		}

		return answer, nil
	}
}

func StatsEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		resp, err := doRequest(ctx, nc, topic, nil, nats.DefaultTimeout)
		if err != nil {
			return nil, err
		}

		var stats *edumentor.Stats
		if err := json.Unmarshal(resp.Data, &stats); err != nil {
			return nil, err
		}

		return stats, nil
	}
}

func Error(msg *nats.Msg) error {
	if msg == nil {
		return errors.New("nil message")
	}

	code := msg.Header.Get(micro.ErrorCodeHeader)
	if code == "" {
		return nil
	}

	description := msg.Header.Get(micro.ErrorHeader)
	if description == "" {
		description = "unknown error"
	}

	return errors.New(code + ":" + description)
}
