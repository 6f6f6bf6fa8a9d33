package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/llms"
)

// Retriever performs similarity search against the indexed document store.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]Document, error)
}

// WebSearcher queries a live web search provider.
type WebSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
}

// Uploader stores a piece of content durably. Used only by the background
// knowledge-save task; errors are logged there and never reach the workflow.
type Uploader interface {
	Upload(ctx context.Context, name string, content []byte) (string, error)
}

// Options configure the workflow. Zero values fall back to the defaults
// below, so Options{} is usable directly.
type Options struct {
	TopK             int           // documents requested from the retriever
	WebSearchResults int           // results requested from the web searcher
	MaxRetries       int           // attempts per external call
	RetryDelay       time.Duration // base backoff delay, doubled per attempt
	Language         string        // prompt/fallback text variant
}

const (
	defaultTopK             = 3
	defaultWebSearchResults = 3
	defaultMaxRetries       = 3
	defaultRetryDelay       = time.Second
)

func (o Options) withDefaults() Options {
	if o.TopK <= 0 {
		o.TopK = defaultTopK
	}
	if o.WebSearchResults <= 0 {
		o.WebSearchResults = defaultWebSearchResults
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetries
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = defaultRetryDelay
	}
	if o.Language == "" {
		o.Language = LanguageZhTW
	}
	return o
}

// Agent runs the question-answering workflow. Collaborators are injected at
// construction so tests can substitute fakes; a nil searcher or uploader
// marks that capability as unconfigured.
type Agent struct {
	retriever Retriever
	llm       llms.Model
	searcher  WebSearcher
	uploader  Uploader
	opts      Options
	logger    *slog.Logger
	registry  *TaskRegistry
}

// New builds an Agent around the given collaborators.
func New(retriever Retriever, model llms.Model, searcher WebSearcher, uploader Uploader, opts Options) *Agent {
	return &Agent{
		retriever: retriever,
		llm:       model,
		searcher:  searcher,
		uploader:  uploader,
		opts:      opts.withDefaults(),
		logger:    slog.Default(),
		registry:  NewTaskRegistry(),
	}
}

// SetLogger replaces the agent's logger.
func (a *Agent) SetLogger(logger *slog.Logger) {
	if logger != nil {
		a.logger = logger
	}
}

// Registry exposes the in-flight run registry for observability.
func (a *Agent) Registry() *TaskRegistry { return a.registry }
