package flatfile

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/flarexio/edumentor/vector"
)

const (
	IndexFile    = "index.bin"
	MetadataFile = "metadata.json"

	tmpSuffix = ".tmp"
	version   = 1
)

var magic = [4]byte{'E', 'D', 'V', 'I'}

type indexHeader struct {
	Magic      [4]byte
	Version    uint32
	Generation uint64
	Dimension  uint32
	Count      uint64
}

type metadataBlob struct {
	Version    int            `json:"version"`
	Generation uint64         `json:"generation"`
	Model      string         `json:"model"`
	Dimension  int            `json:"dimension"`
	Count      int            `json:"count"`
	Chunks     []vector.Chunk `json:"chunks"`
}

// New returns a persister keeping a collection in two files under dir: a
// little-endian float32 index blob and a JSON metadata blob. Both carry the
// snapshot generation so a mismatched pair is detected on load.
func New(dir string) vector.Persister {
	return &persister{
		dir: dir,
		log: zap.L().With(
			zap.String("component", "flatfile"),
			zap.String("dir", dir),
		),
	}
}

type persister struct {
	dir string
	log *zap.Logger
}

func (p *persister) path(name string) string {
	return filepath.Join(p.dir, name)
}

func (p *persister) Save(ctx context.Context, snap vector.Snapshot) error {
	if len(snap.Vectors) != len(snap.Chunks) {
		return vector.ErrLengthMismatch
	}

	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return err
	}

	indexTmp := p.path(IndexFile + tmpSuffix)
	metaTmp := p.path(MetadataFile + tmpSuffix)

	err := writeFile(indexTmp, func(w io.Writer) error {
		return encodeIndex(w, snap)
	})
	if err != nil {
		return fmt.Errorf("write index: %w", err)
	}

	err = writeFile(metaTmp, func(w io.Writer) error {
		return encodeMetadata(w, snap)
	})
	if err != nil {
		os.Remove(indexTmp)
		return fmt.Errorf("write metadata: %w", err)
	}

	if err := ctx.Err(); err != nil {
		os.Remove(indexTmp)
		os.Remove(metaTmp)
		return err
	}

	// Metadata first: an interrupted save leaves index.bin.tmp carrying the
	// new generation, which Load rolls forward.
	if err := os.Rename(metaTmp, p.path(MetadataFile)); err != nil {
		os.Remove(indexTmp)
		os.Remove(metaTmp)
		return err
	}

	if err := os.Rename(indexTmp, p.path(IndexFile)); err != nil {
		return fmt.Errorf("%w: %s: %w", vector.ErrSaveIncomplete, IndexFile, err)
	}

	syncDir(p.dir)
	return nil
}

func (p *persister) Load(ctx context.Context) (vector.Snapshot, error) {
	p.rollForward()

	indexPath := p.path(IndexFile)
	metaPath := p.path(MetadataFile)

	indexExists, err := exists(indexPath)
	if err != nil {
		return vector.Snapshot{}, err
	}

	metaExists, err := exists(metaPath)
	if err != nil {
		return vector.Snapshot{}, err
	}

	switch {
	case !indexExists && !metaExists:
		return vector.Snapshot{}, vector.ErrNotFound

	case !metaExists:
		return vector.Snapshot{}, fmt.Errorf("%w: %s present without %s", vector.ErrCorruptStore, IndexFile, MetadataFile)

	case !indexExists:
		return vector.Snapshot{}, fmt.Errorf("%w: %s present without %s", vector.ErrCorruptStore, MetadataFile, IndexFile)
	}

	header, vectors, err := readIndex(indexPath)
	if err != nil {
		return vector.Snapshot{}, fmt.Errorf("%w: %s: %w", vector.ErrCorruptStore, IndexFile, err)
	}

	meta, err := readMetadata(metaPath)
	if err != nil {
		return vector.Snapshot{}, fmt.Errorf("%w: %s: %w", vector.ErrCorruptStore, MetadataFile, err)
	}

	if header.Generation != meta.Generation {
		return vector.Snapshot{}, fmt.Errorf("%w: generation %d in %s, %d in %s",
			vector.ErrCorruptStore, header.Generation, IndexFile, meta.Generation, MetadataFile)
	}

	if int(header.Count) != len(meta.Chunks) || meta.Count != len(meta.Chunks) {
		return vector.Snapshot{}, fmt.Errorf("%w: %d vectors, %d chunks",
			vector.ErrCorruptStore, header.Count, len(meta.Chunks))
	}

	if int(header.Dimension) != meta.Dimension {
		return vector.Snapshot{}, fmt.Errorf("%w: dimension %d in %s, %d in %s",
			vector.ErrCorruptStore, header.Dimension, IndexFile, meta.Dimension, MetadataFile)
	}

	return vector.Snapshot{
		Generation: meta.Generation,
		Model:      meta.Model,
		Dimension:  meta.Dimension,
		Vectors:    vectors,
		Chunks:     meta.Chunks,
	}, nil
}

// rollForward finishes a save that was interrupted between the two renames and
// discards temp files from saves that never reached them.
func (p *persister) rollForward() {
	indexTmp := p.path(IndexFile + tmpSuffix)
	metaTmp := p.path(MetadataFile + tmpSuffix)

	if ok, _ := exists(metaTmp); ok {
		p.log.Warn("discarding unfinished save")
		os.Remove(metaTmp)
		os.Remove(indexTmp)
		return
	}

	ok, _ := exists(indexTmp)
	if !ok {
		return
	}

	meta, err := readMetadata(p.path(MetadataFile))
	if err == nil {
		header, err := readHeader(indexTmp)
		if err == nil && header.Generation == meta.Generation {
			if err := os.Rename(indexTmp, p.path(IndexFile)); err == nil {
				p.log.Warn("completed interrupted save", zap.Uint64("generation", meta.Generation))
				return
			}
		}
	}

	os.Remove(indexTmp)
}

func encodeIndex(w io.Writer, snap vector.Snapshot) error {
	header := indexHeader{
		Magic:      magic,
		Version:    version,
		Generation: snap.Generation,
		Dimension:  uint32(snap.Dimension),
		Count:      uint64(len(snap.Vectors)),
	}

	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return err
	}

	for _, v := range snap.Vectors {
		if len(v) != snap.Dimension {
			return vector.ErrDimensionMismatch
		}

		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}

	return nil
}

func encodeMetadata(w io.Writer, snap vector.Snapshot) error {
	blob := metadataBlob{
		Version:    version,
		Generation: snap.Generation,
		Model:      snap.Model,
		Dimension:  snap.Dimension,
		Count:      len(snap.Chunks),
		Chunks:     snap.Chunks,
	}

	if blob.Chunks == nil {
		blob.Chunks = []vector.Chunk{}
	}

	return json.NewEncoder(w).Encode(&blob)
}

func readHeader(path string) (indexHeader, error) {
	f, err := os.Open(path)
	if err != nil {
		return indexHeader{}, err
	}
	defer f.Close()

	return decodeHeader(f)
}

func decodeHeader(r io.Reader) (indexHeader, error) {
	var header indexHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return indexHeader{}, err
	}

	if header.Magic != magic {
		return indexHeader{}, errors.New("bad magic")
	}

	if header.Version != version {
		return indexHeader{}, fmt.Errorf("unsupported version %d", header.Version)
	}

	return header, nil
}

func readIndex(path string) (indexHeader, [][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return indexHeader{}, nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return indexHeader{}, nil, err
	}

	r := bufio.NewReader(f)

	header, err := decodeHeader(r)
	if err != nil {
		return indexHeader{}, nil, err
	}

	if err := checkSize(header, info.Size()); err != nil {
		return indexHeader{}, nil, err
	}

	vectors := make([][]float32, header.Count)
	for i := range vectors {
		v := make([]float32, header.Dimension)
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return indexHeader{}, nil, fmt.Errorf("vector %d: %w", i, err)
		}

		vectors[i] = v
	}

	if _, err := r.ReadByte(); err != io.EOF {
		return indexHeader{}, nil, errors.New("trailing data")
	}

	return header, vectors, nil
}

var ErrSizeMismatch = errors.New("index size does not match header")

// checkSize verifies the file holds exactly Count vectors of Dimension
// float32s after the header, before anything is allocated from those fields.
func checkSize(header indexHeader, size int64) error {
	payload := size - int64(binary.Size(header))
	if payload < 0 {
		return ErrSizeMismatch
	}

	if header.Count == 0 {
		if payload != 0 {
			return ErrSizeMismatch
		}

		return nil
	}

	if header.Dimension == 0 {
		return fmt.Errorf("%w: %d vectors of dimension 0", ErrSizeMismatch, header.Count)
	}

	row := uint64(header.Dimension) * 4
	if header.Count > uint64(payload)/row || header.Count*row != uint64(payload) {
		return fmt.Errorf("%w: %d vectors of dimension %d in %d bytes",
			ErrSizeMismatch, header.Count, header.Dimension, payload)
	}

	return nil
}

func readMetadata(path string) (metadataBlob, error) {
	f, err := os.Open(path)
	if err != nil {
		return metadataBlob{}, err
	}
	defer f.Close()

	var blob metadataBlob
	if err := json.NewDecoder(f).Decode(&blob); err != nil {
		return metadataBlob{}, err
	}

	if blob.Version != version {
		return metadataBlob{}, fmt.Errorf("unsupported version %d", blob.Version)
	}

	return blob, nil
}

func writeFile(path string, encode func(w io.Writer) error) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	if err := encode(w); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}

	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}

	return f.Close()
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}

	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	return false, err
}

func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()

	d.Sync()
}
