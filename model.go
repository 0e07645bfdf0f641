package edumentor

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/flarexio/edumentor/chunker"
	"github.com/flarexio/edumentor/embedder"
	"github.com/flarexio/edumentor/ingest"
	"github.com/flarexio/edumentor/intent"
	"github.com/flarexio/edumentor/llm"
	"github.com/flarexio/edumentor/vector"
)

var (
	ErrInvalidQuery     = errors.New("query must not be empty")
	ErrInvalidQuestion  = errors.New("question must not be empty")
	ErrInvalidPath      = errors.New("path must not be empty")
	ErrInvalidExamFocus = errors.New("invalid exam focus")
	ErrNoFiles          = errors.New("no files uploaded")
)

const (
	DefaultStorageDir = "storage"
	DefaultCollection = "default"
	DefaultTopK       = 5
	MaxTopK           = 10
	DefaultTimeout    = 2 * time.Minute
)

const NoIndexedContentMessage = "No indexed content found.\n\n" +
	"Please upload study PDFs to generate a document summary."

type ExamFocus string

const (
	JEEMain     ExamFocus = "JEE Main"
	JEEAdvanced ExamFocus = "JEE Advanced"
	NEET        ExamFocus = "NEET"
)

var examFocuses = []ExamFocus{JEEMain, JEEAdvanced, NEET}

func (f ExamFocus) Valid() bool {
	return slices.Contains(examFocuses, f)
}

// ClampTopK bounds k to 1..MaxTopK; zero or negative falls back to DefaultTopK.
func ClampTopK(k int) int {
	if k <= 0 {
		return DefaultTopK
	}

	return min(k, MaxTopK)
}

type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	str := d.Duration().String()
	return json.Marshal(str)
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.Duration().String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}

	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

type Config struct {
	StorageDir string          `yaml:"storageDir"`
	Collection string          `yaml:"collection"`
	TopK       int             `yaml:"topK"`
	ExamFocus  ExamFocus       `yaml:"examFocus"`
	Timeout    Duration        `yaml:"timeout"`
	Embedder   embedder.Config `yaml:"embedder"`
	LLM        llm.Config      `yaml:"llm"`
	Ingest     ingest.Config   `yaml:"ingest"`
}

func (cfg *Config) ApplyDefaults() {
	if cfg.StorageDir == "" {
		cfg.StorageDir = DefaultStorageDir
	}

	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	cfg.TopK = ClampTopK(cfg.TopK)

	if cfg.ExamFocus == "" {
		cfg.ExamFocus = JEEMain
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = Duration(DefaultTimeout)
	}

	if cfg.Ingest.Chunk.Size == 0 {
		cfg.Ingest.Chunk = chunker.DefaultConfig()
	}
}

func (cfg Config) Validate() error {
	if cfg.ExamFocus != "" && !cfg.ExamFocus.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidExamFocus, cfg.ExamFocus)
	}

	return cfg.Ingest.Chunk.Validate()
}

func (cfg Config) Vector() vector.Config {
	return vector.Config{
		Path:       filepath.Join(cfg.StorageDir, "vectors"),
		Collection: cfg.Collection,
	}
}

func (cfg Config) CatalogPath() string {
	return filepath.Join(cfg.StorageDir, "catalog.db")
}

func (cfg Config) DocsDir() string {
	return filepath.Join(cfg.StorageDir, "docs")
}

// LoadConfig reads config.yaml under dir when present, then the dotenv files
// (".env" in the working directory and in dir) and the environment. The
// store defaults to dir/storage.
func LoadConfig(dir string) (Config, error) {
	var cfg Config

	f, err := os.Open(filepath.Join(dir, "config.yaml"))
	switch {
	case errors.Is(err, fs.ErrNotExist):

	case err != nil:
		return cfg, err

	default:
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return cfg, err
		}
	}

	if err := cfg.LoadEnv(".env", filepath.Join(dir, ".env")); err != nil {
		return cfg, err
	}

	if cfg.StorageDir == "" {
		cfg.StorageDir = filepath.Join(dir, DefaultStorageDir)
	}

	cfg.ApplyDefaults()
	return cfg, cfg.Validate()
}

// Env holds the process environment read on top of the config file.
type Env struct {
	GoogleAPIKey string `envconfig:"GOOGLE_API_KEY"`
	GeminiModel  string `envconfig:"GEMINI_MODEL"`
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	StorageDir   string `envconfig:"STORAGE_DIR"`
	ExamFocus    string `envconfig:"EXAM_FOCUS"`
	TopK         string `envconfig:"TOP_K"`
}

// LoadEnv reads the dotenv files (".env" when none are given, missing files
// are ignored) and overlays the environment onto cfg.
func (cfg *Config) LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, file := range files {
		err := godotenv.Load(file)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return err
	}

	if env.GoogleAPIKey == "" {
		env.GoogleAPIKey = os.Getenv("Google_API_KEY")
	}

	return cfg.Overlay(env)
}

func (cfg *Config) Overlay(env Env) error {
	if env.StorageDir != "" {
		cfg.StorageDir = env.StorageDir
	}

	if env.ExamFocus != "" {
		cfg.ExamFocus = ExamFocus(env.ExamFocus)
	}

	if env.TopK != "" {
		k, err := strconv.Atoi(strings.TrimSpace(env.TopK))
		if err != nil {
			return fmt.Errorf("TOP_K: %w", err)
		}

		cfg.TopK = k
	}

	switch cfg.LLM.Provider {
	case llm.ProviderGemini, "":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = env.GoogleAPIKey
		}

		if env.GeminiModel != "" {
			cfg.LLM.Model = env.GeminiModel
		}

	case llm.ProviderOpenAI:
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = env.OpenAIAPIKey
		}
	}

	switch cfg.Embedder.Provider {
	case embedder.ProviderOpenAI, embedder.ProviderOpenAIBatch, "":
		if cfg.Embedder.APIKey == "" {
			cfg.Embedder.APIKey = env.OpenAIAPIKey
		}
	}

	return nil
}

// File is an uploaded document.
type File struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

type Answer struct {
	Question string         `json:"question"`
	Intent   intent.Intent  `json:"intent"`
	Text     string         `json:"text"`
	Summary  bool           `json:"summary,omitempty"`
	Sources  []vector.Chunk `json:"sources"`
}

type Stats struct {
	Chunks     int      `json:"chunks"`
	Dimension  int      `json:"dimension"`
	Model      string   `json:"model"`
	Collection string   `json:"collection"`
	Documents  int      `json:"documents"`
	Sources    []string `json:"sources"`
	Generation uint64   `json:"generation"`
}

// Overview describes the retrieved chunks without calling the model:
// distinct titles in retrieval order and the sorted pages they came from,
// at most ten pages listed.
func Overview(chunks []vector.Chunk) string {
	if len(chunks) == 0 {
		return NoIndexedContentMessage
	}

	var (
		titles []string
		pages  []int
	)

	for _, c := range chunks {
		if t := c.Metadata.Title; t != "" && !slices.Contains(titles, t) {
			titles = append(titles, t)
		}

		if !slices.Contains(pages, c.Metadata.Page) {
			pages = append(pages, c.Metadata.Page)
		}
	}

	slices.Sort(pages)

	var b strings.Builder
	b.WriteString("**Document Overview (Auto-Generated)**\n\n")
	b.WriteString("This PDF primarily covers topics related to:\n\n")

	for _, t := range titles {
		b.WriteString("- " + t + "\n")
	}

	shown := pages[:min(len(pages), 10)]

	strs := make([]string, len(shown))
	for i, p := range shown {
		strs[i] = strconv.Itoa(p)
	}

	b.WriteString("\nReferenced pages: [" + strings.Join(strs, ", ") + "]")
	if len(pages) > 10 {
		b.WriteString("...")
	}

	b.WriteString("\n\nThis summary is generated using semantic retrieval from indexed sections.")

	return b.String()
}
