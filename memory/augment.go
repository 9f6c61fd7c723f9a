package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"text/template"

	"github.com/casualjim/zentry/messages"
	"github.com/casualjim/zentry/pkg/slogx"
)

const promptTemplate = `System Message: These are the memories I have stored. Give more weight to the question by the user and try to answer that first. You have to modify your answer based on the memories I have provided. If the memories are irrelevant you can ignore them. Also don't reply to this section of the prompt, or the memories, they are only for your reference. The System prompt starts after text System Message:
{{range .Records}}
Memory: {{.Memory}}
{{end}}
{{- if and .Graph .Relations}}
HERE ARE THE GRAPH RELATIONS FOR THE PREFERENCES OF THE USER:
{{range .Relations}}
Relation: {{.Source}} -> {{.Relationship}} -> {{.Target}}
{{end}}
{{- end}}`

var memoryPrompt = template.Must(template.New("memories").Option("missingkey=error").Parse(promptTemplate))

type promptData struct {
	Records   []Record
	Relations []Relation
	Graph     bool
}

// FormatPrompt renders the synthetic system message for result. Relations
// are only rendered in graph mode.
func FormatPrompt(result SearchResult, cfg Config) (string, error) {
	var b strings.Builder
	err := memoryPrompt.Execute(&b, promptData{
		Records:   result.Results,
		Relations: result.Relations,
		Graph:     cfg.EnableGraph,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render memory prompt: %w", err)
	}
	return b.String(), nil
}

// Augmentation is the outcome of Augment.
type Augmentation struct {
	// Records are the flat memories that were injected, nil when nothing was.
	Records []Record
	// Prompt is the original prompt, or a new prompt with one system message
	// prepended when Records is non-empty.
	Prompt messages.Prompt
}

// Augment recalls memories relevant to the user messages in prompt and
// prepends them as a system message. The conversation is written back to the
// store in the background once the read has completed.
//
// Augment never fails: a nil store, a search error, a malformed result or a
// panic in the store all yield the original prompt and no records.
func Augment(ctx context.Context, store Store, prompt messages.Prompt, cfg Config) (aug Augmentation) {
	aug = Augmentation{Prompt: prompt}
	if store == nil {
		return aug
	}

	defer func() {
		if r := recover(); r != nil {
			slog.WarnContext(ctx, "memory augmentation panicked", slogx.Recovered(r))
			aug = Augmentation{Prompt: prompt}
		}
	}()

	result, err := search(ctx, store, prompt, cfg)
	pending.start()
	go remember(ctx, store, prompt.Clone(), cfg)
	if err != nil {
		slog.WarnContext(ctx, "failed to search memories", slogx.Error(err))
		return aug
	}
	if result.Empty() {
		return aug
	}

	text, err := FormatPrompt(result, cfg)
	if err != nil {
		slog.WarnContext(ctx, "failed to format memories", slogx.Error(err))
		return aug
	}

	return Augmentation{
		Records: result.Results,
		Prompt:  prompt.Prepend(messages.System(text)),
	}
}

func search(ctx context.Context, store Store, prompt messages.Prompt, cfg Config) (result SearchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("memory search panicked: %v", r)
		}
	}()
	return store.Search(ctx, prompt.UserText(), cfg)
}

// remember writes the conversation to the store. Its outcome never reaches the caller.
func remember(ctx context.Context, store Store, prompt messages.Prompt, cfg Config) {
	defer pending.done()
	ctx = context.WithoutCancel(ctx)
	defer func() {
		if r := recover(); r != nil {
			slog.WarnContext(ctx, "adding memories panicked", slogx.Recovered(r))
		}
	}()

	if err := store.Add(ctx, prompt, cfg); err != nil {
		slog.WarnContext(ctx, "failed to add memories", slogx.Error(err))
	}
}

// pending counts the background writes that have not finished yet.
var pending writes

type writes struct {
	mu   sync.Mutex
	n    int
	idle chan struct{} // closed when n drops to zero
}

func (w *writes) start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.n == 0 {
		w.idle = make(chan struct{})
	}
	w.n++
}

func (w *writes) done() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.n--
	if w.n == 0 {
		close(w.idle)
	}
}

func (w *writes) wait(ctx context.Context) error {
	w.mu.Lock()
	if w.n == 0 {
		w.mu.Unlock()
		return nil
	}
	idle := w.idle
	w.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Flush blocks until every background write started by Augment has finished
// or ctx is done. Calls never wait for their own write; a process that exits
// right after a call uses Flush so the conversation is stored.
func Flush(ctx context.Context) error {
	return pending.wait(ctx)
}
