package agent

// Source records where the answer came from.
type Source string

const (
	SourceUnset       Source = ""
	SourceVectorstore Source = "vectorstore"
	SourceWebSearch   Source = "web_search"
)

// Status tracks workflow execution progress.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRetrying  Status = "retrying"
)

// Document is a retrieved document as the workflow sees it: content plus
// string metadata. The retrieval collaborator owns the full record.
type Document struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SearchResult is a single web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// State is the record threaded through the workflow graph. A fresh State is
// created per question and discarded once the caller has the final one.
type State struct {
	Question         string         `json:"question"`
	Documents        []Document     `json:"documents"`
	WebSearchResults []SearchResult `json:"web_search_results,omitempty"`
	Generation       string         `json:"generation"`
	Source           Source         `json:"source"`
	Status           Status         `json:"status"`
	ErrorMessage     string         `json:"error_message,omitempty"`
	Progress         map[string]any `json:"progress,omitempty"`
}

// Update is the partial state change a stage emits. Nil/zero fields are left
// untouched by Apply, so stages only name what they changed.
type Update struct {
	Documents        *[]Document
	WebSearchResults *[]SearchResult
	Generation       *string
	Source           Source
	Status           Status
	ErrorMessage     string
	Progress         map[string]any
}

// Apply merges an update into the state. Source reflects the path that
// actually produced the answer: it may be superseded while no generation
// exists yet (retrieve sets vectorstore, a later web search replaces it),
// and is frozen once an answer has been generated. Status never regresses
// out of a terminal value.
func (s State) Apply(u Update) State {
	if u.Documents != nil {
		s.Documents = *u.Documents
	}
	if u.WebSearchResults != nil {
		s.WebSearchResults = *u.WebSearchResults
	}
	if u.Source != SourceUnset && s.Generation == "" {
		s.Source = u.Source
	}
	if u.Generation != nil {
		s.Generation = *u.Generation
	}
	if u.Status != "" && s.Status != StatusCompleted && s.Status != StatusFailed {
		s.Status = u.Status
	}
	if u.ErrorMessage != "" {
		s.ErrorMessage = u.ErrorMessage
	}
	for k, v := range u.Progress {
		if s.Progress == nil {
			s.Progress = make(map[string]any, len(u.Progress))
		}
		s.Progress[k] = v
	}
	return s
}

func docsUpdate(docs []Document) *[]Document { return &docs }

func resultsUpdate(results []SearchResult) *[]SearchResult { return &results }

func generationUpdate(text string) *string { return &text }
