package agent

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tmc/langchaingo/llms"
)

type fakeRetriever struct {
	docs []Document
	err  error
}

func (f *fakeRetriever) Search(ctx context.Context, query string, k int) ([]Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.docs, nil
}

type fakeSearcher struct {
	results []SearchResult
	err     error
	calls   int
}

func (f *fakeSearcher) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type fakeUploader struct {
	mu       sync.Mutex
	uploaded []string
	contents []string
	done     chan struct{}
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{done: make(chan struct{}, 1)}
}

func (f *fakeUploader) Upload(ctx context.Context, name string, content []byte) (string, error) {
	f.mu.Lock()
	f.uploaded = append(f.uploaded, name)
	f.contents = append(f.contents, string(content))
	f.mu.Unlock()
	select {
	case f.done <- struct{}{}:
	default:
	}
	return "file-id-1", nil
}

func (f *fakeUploader) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploaded)
}

// blockingUploader stalls until released, to prove nothing waits on it.
type blockingUploader struct {
	release chan struct{}
}

func (b *blockingUploader) Upload(ctx context.Context, name string, content []byte) (string, error) {
	<-b.release
	return "file-id-1", nil
}

// fakeModel routes grading calls (JSON mode) and generation calls to separate
// canned responses.
type fakeModel struct {
	gradeResponse string
	gradeErr      error
	genResponse   string
	genErr        error
	panicOnCall   bool

	mu         sync.Mutex
	gradeCalls int
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if f.panicOnCall {
		panic("model exploded")
	}

	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}

	content, err := f.genResponse, f.genErr
	if opts.JSONMode {
		f.mu.Lock()
		f.gradeCalls++
		f.mu.Unlock()
		content, err = f.gradeResponse, f.gradeErr
	}
	if err != nil {
		return nil, err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: content}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", errors.New("not implemented")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAgent(r Retriever, m llms.Model, s WebSearcher, u Uploader) *Agent {
	a := New(r, m, s, u, Options{
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		Language:   LanguageEN,
	})
	a.SetLogger(quietLogger())
	return a
}

func TestProcessQuestionRelevantDocuments(t *testing.T) {
	retriever := &fakeRetriever{docs: []Document{{Content: "restart the ingest service"}}}
	searcher := &fakeSearcher{}
	uploader := newFakeUploader()
	model := &fakeModel{gradeResponse: `{"score": "yes"}`, genResponse: "Restart it via systemctl."}

	a := newTestAgent(retriever, model, searcher, uploader)
	state := a.ProcessQuestion(context.Background(), "how do I restart the service?")

	if state.Status != StatusCompleted {
		t.Errorf("Status = %s, want %s", state.Status, StatusCompleted)
	}
	if state.Source != SourceVectorstore {
		t.Errorf("Source = %s, want %s", state.Source, SourceVectorstore)
	}
	if state.Generation != "Restart it via systemctl." {
		t.Errorf("Generation = %q", state.Generation)
	}
	if searcher.calls != 0 {
		t.Errorf("web search called %d times, want 0", searcher.calls)
	}
	if uploader.count() != 0 {
		t.Errorf("uploader called for a vectorstore answer")
	}
	if saved, ok := state.Progress["saved"]; !ok || saved != false {
		t.Errorf("Progress[saved] = %v, want false", saved)
	}
}

func TestProcessQuestionFallsBackToWebSearch(t *testing.T) {
	retriever := &fakeRetriever{docs: []Document{{Content: "unrelated text"}}}
	searcher := &fakeSearcher{results: []SearchResult{{Title: "Guide", URL: "https://example.com", Content: "steps"}}}
	uploader := newFakeUploader()
	model := &fakeModel{gradeResponse: `{"score": "no"}`, genResponse: "Follow the guide at example.com."}

	a := newTestAgent(retriever, model, searcher, uploader)
	state := a.ProcessQuestion(context.Background(), "how do I configure the VPN?")

	if state.Status != StatusCompleted {
		t.Errorf("Status = %s, want %s", state.Status, StatusCompleted)
	}
	if state.Source != SourceWebSearch {
		t.Errorf("Source = %s, want %s", state.Source, SourceWebSearch)
	}
	if len(state.Documents) != 0 {
		t.Errorf("Documents not cleared after negative grade: %v", state.Documents)
	}
	if searcher.calls != 1 {
		t.Errorf("web search called %d times, want 1", searcher.calls)
	}

	// The upload runs in the background.
	select {
	case <-uploader.done:
	case <-time.After(2 * time.Second):
		t.Fatal("knowledge upload never happened")
	}
	if uploader.count() != 1 {
		t.Errorf("uploads = %d, want 1", uploader.count())
	}
	uploader.mu.Lock()
	content := uploader.contents[0]
	uploader.mu.Unlock()
	if !strings.Contains(content, "how do I configure the VPN?") || !strings.Contains(content, "Follow the guide at example.com.") {
		t.Errorf("uploaded content missing the question/answer pair: %q", content)
	}
	if saved := state.Progress["saved"]; saved != true {
		t.Errorf("Progress[saved] = %v, want true", saved)
	}
}

func TestProcessQuestionRetrievalFailure(t *testing.T) {
	retriever := &fakeRetriever{err: errors.New("connection refused")}
	searcher := &fakeSearcher{results: []SearchResult{{Title: "Doc", URL: "https://example.com", Content: "text"}}}
	model := &fakeModel{gradeResponse: `{"score": "yes"}`, genResponse: "Answer from the web."}

	a := newTestAgent(retriever, model, searcher, nil)
	state := a.ProcessQuestion(context.Background(), "anything")

	// Retrieval failure marks the run failed but the workflow still produces
	// an answer through web search.
	if state.Status != StatusFailed {
		t.Errorf("Status = %s, want %s", state.Status, StatusFailed)
	}
	if state.Generation == "" {
		t.Error("Generation is empty, want an answer despite retrieval failure")
	}
	if searcher.calls == 0 {
		t.Error("web search not attempted after retrieval failure")
	}
	if !strings.Contains(state.ErrorMessage, "retrieval failed") {
		t.Errorf("ErrorMessage = %q, want retrieval failure recorded", state.ErrorMessage)
	}
	if model.gradeCalls != 0 {
		t.Errorf("grader called %d times with no documents, want 0", model.gradeCalls)
	}
}

func TestProcessQuestionDoesNotWaitForUpload(t *testing.T) {
	retriever := &fakeRetriever{}
	searcher := &fakeSearcher{results: []SearchResult{{Title: "T", URL: "u", Content: "c"}}}
	model := &fakeModel{genResponse: "Answer from the web."}

	release := make(chan struct{})
	uploader := &blockingUploader{release: release}

	a := newTestAgent(retriever, model, searcher, uploader)

	done := make(chan State, 1)
	go func() {
		done <- a.ProcessQuestion(context.Background(), "anything")
	}()

	// The run must reach its terminal state while the upload is still stuck.
	select {
	case state := <-done:
		if state.Status != StatusCompleted {
			t.Errorf("Status = %s, want %s", state.Status, StatusCompleted)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("workflow blocked on the upload")
	}
	close(release)
}

func TestProcessQuestionWebSearchFailure(t *testing.T) {
	retriever := &fakeRetriever{}
	searcher := &fakeSearcher{err: errors.New("search provider down")}
	model := &fakeModel{genResponse: "Best-effort answer."}

	a := newTestAgent(retriever, model, searcher, nil)
	state := a.ProcessQuestion(context.Background(), "anything")

	if state.Status != StatusFailed {
		t.Errorf("Status = %s, want %s", state.Status, StatusFailed)
	}
	if state.Generation == "" {
		t.Error("Generation is empty, want a best-effort answer")
	}
	// Both configured attempts per try.
	if searcher.calls != 2 {
		t.Errorf("searcher called %d times, want 2", searcher.calls)
	}
}

func TestProcessQuestionNoSearcherConfigured(t *testing.T) {
	retriever := &fakeRetriever{}
	model := &fakeModel{genResponse: "Answer."}

	a := newTestAgent(retriever, model, nil, nil)
	state := a.ProcessQuestion(context.Background(), "anything")

	if state.Status != StatusFailed {
		t.Errorf("Status = %s, want %s", state.Status, StatusFailed)
	}
	if !strings.Contains(state.ErrorMessage, ErrWebSearchUnavailable.Error()) {
		t.Errorf("ErrorMessage = %q, want %q", state.ErrorMessage, ErrWebSearchUnavailable)
	}
}

func TestProcessQuestionMalformedGrade(t *testing.T) {
	retriever := &fakeRetriever{docs: []Document{{Content: "something"}}}
	searcher := &fakeSearcher{results: []SearchResult{{Title: "T", URL: "u", Content: "c"}}}
	model := &fakeModel{gradeResponse: "this is not json", genResponse: "Answer."}

	a := newTestAgent(retriever, model, searcher, nil)
	state := a.ProcessQuestion(context.Background(), "anything")

	// A grader that cannot be parsed is treated as "not relevant".
	if searcher.calls == 0 {
		t.Error("expected fallback to web search on malformed grade")
	}
	if state.Status != StatusCompleted {
		t.Errorf("Status = %s, want %s", state.Status, StatusCompleted)
	}
}

func TestProcessQuestionGenerationFailure(t *testing.T) {
	retriever := &fakeRetriever{docs: []Document{{Content: "doc"}}}
	model := &fakeModel{gradeResponse: `{"score": "yes"}`, genErr: errors.New("model overloaded")}

	a := newTestAgent(retriever, model, nil, nil)
	state := a.ProcessQuestion(context.Background(), "anything")

	if state.Status != StatusFailed {
		t.Errorf("Status = %s, want %s", state.Status, StatusFailed)
	}
	if state.Generation != generationFallback(LanguageEN) {
		t.Errorf("Generation = %q, want the fallback apology", state.Generation)
	}
}

func TestProcessQuestionRecoversFromPanic(t *testing.T) {
	retriever := &fakeRetriever{docs: []Document{{Content: "doc"}}}
	model := &fakeModel{panicOnCall: true}

	a := newTestAgent(retriever, model, nil, nil)
	state := a.ProcessQuestion(context.Background(), "anything")

	if state.Status != StatusFailed {
		t.Errorf("Status = %s, want %s", state.Status, StatusFailed)
	}
	if state.Generation != engineFallback(LanguageEN) {
		t.Errorf("Generation = %q, want the engine fallback", state.Generation)
	}
	if !strings.Contains(state.ErrorMessage, "workflow execution failed") {
		t.Errorf("ErrorMessage = %q", state.ErrorMessage)
	}
}

func TestProcessQuestionClearsRegistry(t *testing.T) {
	retriever := &fakeRetriever{docs: []Document{{Content: "doc"}}}
	model := &fakeModel{gradeResponse: `{"score": "yes"}`, genResponse: "Answer."}

	a := newTestAgent(retriever, model, nil, nil)
	a.ProcessQuestionFrom(context.Background(), "U123", "anything")

	if n := a.Registry().Len(); n != 0 {
		t.Errorf("registry has %d entries after run, want 0", n)
	}
}

func TestProcessQuestionRegistryDuringPanic(t *testing.T) {
	model := &fakeModel{panicOnCall: true}
	a := newTestAgent(&fakeRetriever{docs: []Document{{Content: "d"}}}, model, nil, nil)

	a.ProcessQuestionFrom(context.Background(), "U123", "anything")

	if n := a.Registry().Len(); n != 0 {
		t.Errorf("registry has %d entries after panic, want 0", n)
	}
}
