package nats

import (
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	assert := assert.New(t)

	assert.Error(Error(nil))

	msg := nats.NewMsg("edges.test.edumentor.ask")
	assert.NoError(Error(msg))

	msg.Header = make(nats.Header)
	msg.Header.Set(micro.ErrorCodeHeader, "417")
	msg.Header.Set(micro.ErrorHeader, "embedding backend unavailable")
	assert.EqualError(Error(msg), "417:embedding backend unavailable")

	msg.Header.Del(micro.ErrorHeader)
	assert.EqualError(Error(msg), "417:unknown error")
}

func TestMakeEndpoints(t *testing.T) {
	assert := assert.New(t)

	endpoints := MakeEndpoints(nil, "edges.test.edumentor")

	assert.NotNil(endpoints.Ingest)
	assert.NotNil(endpoints.Upload)
	assert.NotNil(endpoints.Search)
	assert.NotNil(endpoints.Ask)
	assert.NotNil(endpoints.Stats)
}
