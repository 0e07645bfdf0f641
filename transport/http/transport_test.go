package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"

	"github.com/flarexio/edumentor"
	"github.com/flarexio/edumentor/intent"
	"github.com/flarexio/edumentor/vector"

	mcpE "github.com/flarexio/edumentor/mcp"
)

type fakeService struct {
	edumentor.Service

	path   string
	files  []edumentor.File
	query  string
	k      int
	focus  edumentor.ExamFocus
	chunks int
}

func (svc *fakeService) Ingest(ctx context.Context, path string) (int, error) {
	svc.path = path
	return svc.chunks, nil
}

func (svc *fakeService) Upload(ctx context.Context, files []edumentor.File) (int, error) {
	svc.files = files
	return svc.chunks, nil
}

func (svc *fakeService) Search(ctx context.Context, query string, k int) ([]vector.Result, error) {
	svc.query = query
	svc.k = k

	return []vector.Result{
		{Chunk: vector.Chunk{ID: "waves.pdf-1-0", Text: "A wave transfers energy."}, Distance: 0.5},
	}, nil
}

func (svc *fakeService) Ask(ctx context.Context, question string, k int, examFocus edumentor.ExamFocus) (*edumentor.Answer, error) {
	svc.query = question
	svc.k = k
	svc.focus = examFocus

	return &edumentor.Answer{
		Question: question,
		Intent:   intent.Classify(question),
		Text:     "answer",
	}, nil
}

func (svc *fakeService) Stats(ctx context.Context) (*edumentor.Stats, error) {
	return &edumentor.Stats{Chunks: svc.chunks, Collection: "default"}, nil
}

func newRouter(svc edumentor.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	AddRouters(r, edumentor.MakeEndpoints(svc))

	endpoints := make(map[mcp.MCPMethod]mcpE.MCPEndpoint)
	endpoints[mcp.MethodPing] = mcpE.PingEndpoint(svc)
	endpoints[mcp.MethodToolsList] = mcpE.ListToolsEndpoint(svc)
	AddStreamableRouters(r, endpoints)

	return r
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIngestHandler(t *testing.T) {
	assert := assert.New(t)

	svc := &fakeService{chunks: 12}
	r := newRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(`{"path":"docs/physics.pdf"}`))
	req.Header.Set("Content-Type", "application/json")

	w := serve(r, req)

	assert.Equal(http.StatusOK, w.Code)
	assert.JSONEq(`{"chunks":12}`, w.Body.String())
	assert.Equal("docs/physics.pdf", svc.path)

	req = httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")

	w = serve(r, req)
	assert.Equal(http.StatusBadRequest, w.Code)
}

func TestUploadHandler(t *testing.T) {
	assert := assert.New(t)

	svc := &fakeService{chunks: 3}
	r := newRouter(svc)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, _ := mw.CreateFormFile("files", "chemistry.pdf")
	part.Write([]byte("%PDF-1.4"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w := serve(r, req)

	assert.Equal(http.StatusOK, w.Code)
	if assert.Len(svc.files, 1) {
		assert.Equal("chemistry.pdf", svc.files[0].Name)
		assert.Equal("%PDF-1.4", string(svc.files[0].Data))
	}

	body.Reset()
	mw = multipart.NewWriter(&body)
	mw.WriteField("note", "no files")
	mw.Close()

	req = httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w = serve(r, req)
	assert.Equal(http.StatusBadRequest, w.Code)
}

func TestSearchHandler(t *testing.T) {
	assert := assert.New(t)

	svc := &fakeService{}
	r := newRouter(svc)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/search?query=wave+energy&k=25", nil))

	assert.Equal(http.StatusOK, w.Code)
	assert.Equal("wave energy", svc.query)
	assert.Equal(edumentor.MaxTopK, svc.k)

	var results []vector.Result
	if err := json.Unmarshal(w.Body.Bytes(), &results); assert.NoError(err) {
		assert.Len(results, 1)
	}

	w = serve(r, httptest.NewRequest(http.MethodGet, "/api/search", nil))
	assert.Equal(http.StatusBadRequest, w.Code)
}

func TestAskHandler(t *testing.T) {
	assert := assert.New(t)

	svc := &fakeService{}
	r := newRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"question":"Define momentum","exam_focus":"JEE Advanced"}`))
	req.Header.Set("Content-Type", "application/json")

	w := serve(r, req)

	assert.Equal(http.StatusOK, w.Code)
	assert.Equal(edumentor.DefaultTopK, svc.k)
	assert.Equal(edumentor.JEEAdvanced, svc.focus)

	var answer edumentor.Answer
	if err := json.Unmarshal(w.Body.Bytes(), &answer); assert.NoError(err) {
		assert.Equal(intent.Definition, answer.Intent)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"question":"Define momentum","exam_focus":"SAT"}`))
	req.Header.Set("Content-Type", "application/json")

	w = serve(r, req)
	assert.Equal(http.StatusBadRequest, w.Code)
}

func TestStatsHandler(t *testing.T) {
	assert := assert.New(t)

	r := newRouter(&fakeService{chunks: 42})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	assert.Equal(http.StatusOK, w.Code)
	assert.Contains(w.Body.String(), `"chunks":42`)
}

func TestMCPStreamableHandler(t *testing.T) {
	assert := assert.New(t)

	r := newRouter(&fakeService{})

	req := httptest.NewRequest(http.MethodPost, "/mcp/", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	req.Header.Set("Content-Type", "application/json")

	w := serve(r, req)

	assert.Equal(http.StatusOK, w.Code)
	assert.Contains(w.Body.String(), "search_material")
	assert.Contains(w.Body.String(), "ask_tutor")

	req = httptest.NewRequest(http.MethodPost, "/mcp/", strings.NewReader(`{"jsonrpc":"2.0","id":2,"method":"resources/list"}`))
	req.Header.Set("Content-Type", "application/json")

	w = serve(r, req)
	assert.Equal(http.StatusNotFound, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/mcp/", strings.NewReader(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	req.Header.Set("Content-Type", "application/json")

	w = serve(r, req)
	assert.Equal(http.StatusAccepted, w.Code)
}
