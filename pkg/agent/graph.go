package agent

import (
	"context"
	"fmt"
)

// node identifies a stage in the workflow graph.
type node string

const (
	nodeRetrieve        node = "retrieve"
	nodeGradeDocuments  node = "grade_documents"
	nodeWebSearch       node = "web_search"
	nodeGenerateFromDoc node = "generate_from_docs"
	nodeGenerateFromWeb node = "generate_from_web"
	nodeSaveKnowledge   node = "save_knowledge"
	nodeEnd             node = ""
)

type stageFunc func(ctx context.Context, s State) Update

func (a *Agent) stages() map[node]stageFunc {
	return map[node]stageFunc{
		nodeRetrieve:        a.retrieveDocuments,
		nodeGradeDocuments:  a.gradeDocuments,
		nodeWebSearch:       a.webSearch,
		nodeGenerateFromDoc: a.generateAnswer,
		nodeGenerateFromWeb: a.generateAnswer,
		nodeSaveKnowledge:   a.saveKnowledge,
	}
}

// decideToGenerate is the single conditional edge: non-empty documents go
// straight to generation, anything else falls through to web search. It
// consults nothing but the document list.
func decideToGenerate(s State) node {
	if len(s.Documents) > 0 {
		return nodeGenerateFromDoc
	}
	return nodeWebSearch
}

// next returns the successor of a node after its update has been merged.
func next(current node, s State) node {
	switch current {
	case nodeRetrieve:
		return nodeGradeDocuments
	case nodeGradeDocuments:
		return decideToGenerate(s)
	case nodeWebSearch:
		return nodeGenerateFromWeb
	case nodeGenerateFromDoc, nodeGenerateFromWeb:
		return nodeSaveKnowledge
	default:
		return nodeEnd
	}
}

// ProcessQuestion runs the full workflow for one question and returns the
// terminal state. It is total: stage failures are folded into the state, and
// an engine-level panic is converted into a failed state carrying the
// localized apology. It never returns an error and never panics.
func (a *Agent) ProcessQuestion(ctx context.Context, question string) State {
	return a.ProcessQuestionFrom(ctx, "", question)
}

// ProcessQuestionFrom is ProcessQuestion with a requester identity, used to
// key the in-flight task registry.
func (a *Agent) ProcessQuestionFrom(ctx context.Context, requester, question string) (final State) {
	a.logger.Info("processing question", "requester", requester, "question", question)

	state := State{
		Question: question,
		Status:   StatusPending,
		Progress: map[string]any{"step": "initialized"},
	}

	taskKey := a.registry.Add(requester, question)
	defer a.registry.Remove(taskKey)

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("workflow execution panicked", "panic", r)
			final = state
			final.Status = StatusFailed
			final.ErrorMessage = fmt.Sprintf("workflow execution failed: %v", r)
			final.Generation = engineFallback(a.opts.Language)
		}
	}()

	stages := a.stages()
	for current := nodeRetrieve; current != nodeEnd; current = next(current, state) {
		stage, ok := stages[current]
		if !ok {
			panic(fmt.Sprintf("no stage registered for node %q", current))
		}
		state = state.Apply(stage(ctx, state))
		a.logger.Info("stage completed", "node", string(current), "status", string(state.Status))
	}

	return state
}
