package nats

import (
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/edumentor"
)

func AddEndpoints(group micro.Group, endpoints edumentor.EndpointSet) {
	group.AddEndpoint("ingest", IngestHandler(endpoints.Ingest))
	group.AddEndpoint("upload", UploadHandler(endpoints.Upload))
	group.AddEndpoint("search", SearchHandler(endpoints.Search))
	group.AddEndpoint("ask", AskHandler(endpoints.Ask))
	group.AddEndpoint("stats", StatsHandler(endpoints.Stats))
}
