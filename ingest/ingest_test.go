package ingest_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/flarexio/edumentor/catalog"
	"github.com/flarexio/edumentor/chunker"
	"github.com/flarexio/edumentor/embedder"
	"github.com/flarexio/edumentor/ingest"
	"github.com/flarexio/edumentor/persistence/flatfile"
	"github.com/flarexio/edumentor/vector"
)

type fakeSource map[string][]string

func (s fakeSource) Pages(ctx context.Context, path string) ([]string, error) {
	pages, ok := s[filepath.Base(path)]
	if !ok {
		return nil, ingest.ErrUnreadable
	}

	return pages, nil
}

const (
	pageOne   = "Newton's second law relates force mass and acceleration. The net force on a body equals its mass times its acceleration."
	pageThree = "Photosynthesis converts light energy into chemical energy stored in glucose inside chloroplasts of plant cells."
)

type ingestTestSuite struct {
	suite.Suite
	dir      string
	store    *vector.Store
	catalog  *catalog.Catalog
	pipeline *ingest.Pipeline
	source   fakeSource
}

func (suite *ingestTestSuite) SetupTest() {
	suite.dir = suite.T().TempDir()

	suite.source = fakeSource{
		"notes.pdf": {pageOne, "   \n\t ", pageThree},
		"extra.pdf": {"Ohm's law states voltage equals current times resistance."},
	}

	for name := range suite.source {
		path := filepath.Join(suite.dir, "docs", name)
		require.NoError(suite.T(), os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(suite.T(), os.WriteFile(path, []byte(name), 0o644))
	}

	persister := flatfile.New(filepath.Join(suite.dir, "vectors", "default"))

	store, err := vector.Open(context.Background(), persister, embedder.NewHash(1024))
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	cat, err := catalog.Open(filepath.Join(suite.dir, "catalog.db"))
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	cfg := ingest.Config{
		Chunk: chunker.Config{Size: 10, Overlap: 2},
	}

	suite.store = store
	suite.catalog = cat
	suite.pipeline = ingest.New(store, suite.source, cfg, ingest.WithCatalog(cat))
}

func (suite *ingestTestSuite) TearDownTest() {
	if suite.catalog != nil {
		suite.catalog.Close()
	}
}

func (suite *ingestTestSuite) TestIngestPDF() {
	assert := suite.Assert()
	ctx := context.Background()

	path := filepath.Join(suite.dir, "docs", "notes.pdf")

	n, err := suite.pipeline.IngestPDF(ctx, path)
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	first, _ := chunker.Chunk(pageOne, 10, 2)
	third, _ := chunker.Chunk(pageThree, 10, 2)

	assert.Equal(len(first)+len(third), n)
	assert.Equal(n, suite.store.Len())

	for _, c := range suite.store.Chunks() {
		assert.NotEqual(2, c.Metadata.Page)
		assert.Equal("notes", c.Metadata.Title)
		assert.Equal(path, c.Metadata.Source)
		assert.True(strings.HasPrefix(c.ID, "notes.pdf-"))
	}

	results, err := suite.store.Query(ctx, "photosynthesis chloroplasts glucose", 1)
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	if assert.Len(results, 1) {
		assert.Equal(3, results[0].Metadata.Page)
	}

	records, err := suite.catalog.List(ctx)
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	if assert.Len(records, 1) {
		assert.Equal(path, records[0].Source)
		assert.Equal(3, records[0].Pages)
		assert.Equal(n, records[0].Chunks)
	}
}

func (suite *ingestTestSuite) TestIngestFolder() {
	assert := suite.Assert()

	n, err := suite.pipeline.IngestFolder(context.Background(), filepath.Join(suite.dir, "docs"), "")
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal(suite.store.Len(), n)

	sources := make(map[string]bool)
	for _, c := range suite.store.Chunks() {
		sources[filepath.Base(c.Metadata.Source)] = true
	}

	assert.True(sources["notes.pdf"])
	assert.True(sources["extra.pdf"])
}

func (suite *ingestTestSuite) TestIngestDispatch() {
	assert := suite.Assert()
	ctx := context.Background()

	n, err := suite.pipeline.Ingest(ctx, filepath.Join(suite.dir, "docs", "extra.pdf"))
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal(suite.store.Len(), n)

	_, err = suite.pipeline.Ingest(ctx, filepath.Join(suite.dir, "missing.pdf"))
	assert.ErrorIs(err, os.ErrNotExist)
}

func (suite *ingestTestSuite) TestSkipIngested() {
	assert := suite.Assert()
	ctx := context.Background()

	cfg := ingest.Config{
		Chunk:        chunker.Config{Size: 10, Overlap: 2},
		SkipIngested: true,
	}

	pipeline := ingest.New(suite.store, suite.source, cfg, ingest.WithCatalog(suite.catalog))

	path := filepath.Join(suite.dir, "docs", "extra.pdf")

	first, err := pipeline.IngestPDF(ctx, path)
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	second, err := pipeline.IngestPDF(ctx, path)
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Greater(first, 0)
	assert.Equal(0, second)
	assert.Equal(first, suite.store.Len())
}

func (suite *ingestTestSuite) TestUnreadable() {
	assert := suite.Assert()

	path := filepath.Join(suite.dir, "docs", "broken.pdf")
	os.WriteFile(path, []byte("not a pdf"), 0o644)

	_, err := suite.pipeline.IngestPDF(context.Background(), path)
	assert.ErrorIs(err, ingest.ErrUnreadable)
	assert.Equal(0, suite.store.Len())
}

func TestIngestTestSuite(t *testing.T) {
	suite.Run(t, new(ingestTestSuite))
}

func TestBuildChunks(t *testing.T) {
	assert := assert.New(t)

	chunks, err := ingest.BuildChunks("docs/notes.pdf", 4, "a b c d e f", "notes", chunker.Config{Size: 4, Overlap: 1})
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	if assert.Len(chunks, 2) {
		assert.Equal("notes.pdf-4-0", chunks[0].ID)
		assert.Equal("a b c d", chunks[0].Text)
		assert.Equal("notes.pdf-4-1", chunks[1].ID)
		assert.Equal("d e f", chunks[1].Text)
		assert.Equal(vector.Metadata{Title: "notes", Source: "docs/notes.pdf", Page: 4}, chunks[1].Metadata)
	}

	_, err = ingest.BuildChunks("x.pdf", 1, "a b", "x", chunker.Config{Size: 2, Overlap: 2})
	assert.ErrorIs(err, chunker.ErrInvalidOverlap)
}

func TestTitle(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("physics_notes", ingest.Title("/tmp/docs/physics_notes.pdf"))
	assert.Equal("README", ingest.Title("README"))
}

func TestSaveUpload(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()

	path, err := ingest.SaveUpload(dir, "../../etc/passwd.pdf", []byte("data"))
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal(filepath.Join(dir, "passwd.pdf"), path)

	data, err := os.ReadFile(path)
	if assert.NoError(err) {
		assert.Equal("data", string(data))
	}

	_, err = ingest.SaveUpload(dir, "..", nil)
	assert.ErrorIs(err, ingest.ErrInvalidFileName)
}
