package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
)

// retrieveDocuments asks the retriever for the top-K documents. A retrieval
// failure does not abort the run: it clears documents and lets the router
// fall through to web search.
func (a *Agent) retrieveDocuments(ctx context.Context, s State) Update {
	a.logger.Info("retrieving documents", "question", s.Question)

	docs, err := Retry(ctx, a.logger, "retrieve_documents", a.opts.MaxRetries, a.opts.RetryDelay,
		func(ctx context.Context) ([]Document, error) {
			return a.retriever.Search(ctx, s.Question, a.opts.TopK)
		})
	if err != nil {
		a.logger.Error("document retrieval failed", "error", err)
		return Update{
			Documents:    docsUpdate(nil),
			Status:       StatusFailed,
			ErrorMessage: fmt.Sprintf("document retrieval failed: %v", err),
		}
	}

	a.logger.Info("documents retrieved", "count", len(docs))
	return Update{
		Documents: docsUpdate(docs),
		Source:    SourceVectorstore,
		Status:    StatusRunning,
		Progress:  map[string]any{"step": "documents_retrieved", "count": len(docs)},
	}
}

type gradeResponse struct {
	Score string `json:"score"`
}

// gradeDocuments asks the model for a binary relevance judgment. Clearing
// the documents is the only signal the router reads, so "not relevant",
// "nothing retrieved" and "grader broke" all present the same way there.
func (a *Agent) gradeDocuments(ctx context.Context, s State) Update {
	if len(s.Documents) == 0 {
		a.logger.Info("no documents to grade, proceeding to web search")
		return Update{
			Documents: docsUpdate(nil),
			Status:    StatusRunning,
			Progress:  map[string]any{"step": "documents_graded", "grade": "skipped_no_documents"},
		}
	}

	a.logger.Info("grading documents", "count", len(s.Documents))
	prompt := graderPrompt(a.opts.Language, s.Question, s.Documents)

	content, err := Retry(ctx, a.logger, "grade_documents", a.opts.MaxRetries, a.opts.RetryDelay,
		func(ctx context.Context) (string, error) {
			return a.completeText(ctx, prompt, llms.WithJSONMode())
		})
	if err != nil {
		// An inability to judge relevance must not block the answer.
		a.logger.Error("document grading failed, proceeding to web search", "error", err)
		return Update{
			Documents:    docsUpdate(nil),
			Status:       StatusRunning,
			ErrorMessage: fmt.Sprintf("document grading failed: %v", err),
			Progress:     map[string]any{"step": "documents_graded", "grade": "grading_failed"},
		}
	}

	var grade gradeResponse
	if err := json.Unmarshal([]byte(content), &grade); err != nil {
		a.logger.Warn("grader returned malformed output, treating as not relevant", "content", content)
	}

	if strings.EqualFold(strings.TrimSpace(grade.Score), "yes") {
		a.logger.Info("documents are relevant")
		return Update{
			Documents: docsUpdate(s.Documents),
			Status:    StatusRunning,
			Progress:  map[string]any{"step": "documents_graded", "grade": "relevant"},
		}
	}

	a.logger.Info("documents not relevant, proceeding to web search")
	return Update{
		Documents: docsUpdate(nil),
		Status:    StatusRunning,
		Progress:  map[string]any{"step": "documents_graded", "grade": "not_relevant"},
	}
}

// webSearch queries the live search provider. An unconfigured searcher is a
// configuration failure, not a transient one, so it bypasses the retry loop.
func (a *Agent) webSearch(ctx context.Context, s State) Update {
	if a.searcher == nil {
		a.logger.Error("web search requested but no searcher configured")
		return Update{
			WebSearchResults: resultsUpdate(nil),
			Status:           StatusFailed,
			ErrorMessage:     ErrWebSearchUnavailable.Error(),
		}
	}

	a.logger.Info("searching the web", "question", s.Question)
	results, err := Retry(ctx, a.logger, "web_search", a.opts.MaxRetries, a.opts.RetryDelay,
		func(ctx context.Context) ([]SearchResult, error) {
			return a.searcher.Search(ctx, s.Question, a.opts.WebSearchResults)
		})
	if err != nil {
		a.logger.Error("web search failed", "error", err)
		return Update{
			WebSearchResults: resultsUpdate(nil),
			Status:           StatusFailed,
			ErrorMessage:     fmt.Sprintf("web search failed: %v", err),
		}
	}

	a.logger.Info("web search completed", "results", len(results))
	return Update{
		WebSearchResults: resultsUpdate(results),
		Source:           SourceWebSearch,
		Status:           StatusRunning,
		Progress:         map[string]any{"step": "web_search_completed", "results_count": len(results)},
	}
}

// generateAnswer produces the user-facing answer, choosing the prompt
// strategy from the answer's provenance. It never leaves Generation empty:
// on failure the localized apology is returned instead.
func (a *Agent) generateAnswer(ctx context.Context, s State) Update {
	a.logger.Info("generating answer", "source", s.Source)

	var prompt string
	if s.Source == SourceWebSearch {
		prompt = webGenerationPrompt(a.opts.Language, s.Question, s.WebSearchResults)
	} else {
		prompt = generationPrompt(a.opts.Language, s.Question, s.Documents)
	}

	generation, err := Retry(ctx, a.logger, "generate_answer", a.opts.MaxRetries, a.opts.RetryDelay,
		func(ctx context.Context) (string, error) {
			return a.completeText(ctx, prompt)
		})
	if err != nil {
		a.logger.Error("answer generation failed", "error", err)
		return Update{
			Generation:   generationUpdate(generationFallback(a.opts.Language)),
			Status:       StatusFailed,
			ErrorMessage: fmt.Sprintf("answer generation failed: %v", err),
		}
	}

	a.logger.Info("answer generated", "length", len(generation))
	return Update{
		Generation: generationUpdate(generation),
		Status:     StatusRunning,
		Progress:   map[string]any{"step": "answer_generated", "source": string(s.Source)},
	}
}

// saveKnowledge schedules a background upload of web-sourced answers so the
// knowledge can be re-ingested later. The workflow does not wait for the
// upload: its success or failure is observable only through logs.
func (a *Agent) saveKnowledge(ctx context.Context, s State) Update {
	saved := false

	if s.Source == SourceWebSearch && s.Generation != "" {
		if a.uploader == nil {
			a.logger.Warn("knowledge uploader not configured, skipping save")
		} else {
			saved = true
			question, answer := s.Question, s.Generation
			go a.uploadKnowledge(question, answer)
			a.logger.Info("knowledge save scheduled")
		}
	}

	return Update{
		Status:   StatusCompleted,
		Progress: map[string]any{"step": "knowledge_saved", "saved": saved},
	}
}

const uploadTimeout = 2 * time.Minute

func (a *Agent) uploadKnowledge(question, answer string) {
	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()

	name := knowledgeFileName(question, time.Now())
	content := fmt.Sprintf("Question:\n%s\n\nAnswer:\n%s\n\nSource: Web Search", question, answer)

	id, err := a.uploader.Upload(ctx, name, []byte(content))
	if err != nil {
		a.logger.Error("background knowledge save failed", "file", name, "error", err)
		return
	}
	a.logger.Info("knowledge saved", "file", name, "id", id)
}

// knowledgeFileName derives a storage name from a truncated, sanitized
// question plus a timestamp for uniqueness. Concurrent runs with the same
// question may still collide; last write wins at the storage layer.
func knowledgeFileName(question string, now time.Time) string {
	runes := []rune(question)
	if len(runes) > 30 {
		runes = runes[:30]
	}
	sanitized := strings.NewReplacer(" ", "_", "/", "_").Replace(string(runes))
	return fmt.Sprintf("SOP_%s_%s.txt", sanitized, now.Format("20060102_150405"))
}

// completeText runs a single-turn completion and returns the first choice.
func (a *Agent) completeText(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := a.llm.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, options...)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}
	return resp.Choices[0].Content, nil
}
