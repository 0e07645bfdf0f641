package http

import (
	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flarexio/edumentor"

	mcpE "github.com/flarexio/edumentor/mcp"
)

func AddRouters(r *gin.Engine, endpoints edumentor.EndpointSet) {
	r.MaxMultipartMemory = MaxUploadSize

	api := r.Group("/api")
	{
		api.POST("/ingest", IngestHandler(endpoints.Ingest))
		api.POST("/upload", UploadHandler(endpoints.Upload))
		api.GET("/search", SearchHandler(endpoints.Search))
		api.POST("/ask", AskHandler(endpoints.Ask))
		api.GET("/stats", StatsHandler(endpoints.Stats))
	}
}

func AddStreamableRouters(r *gin.Engine, endpoints map[mcp.MCPMethod]mcpE.MCPEndpoint) {
	mcp := r.Group("/mcp")
	{
		mcp.POST("/", MCPStreamableHandler(endpoints))
	}
}
