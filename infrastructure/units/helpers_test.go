package units

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/alexleeyt8888/StockFanAI-Bot/infrastructure/llm"
	"github.com/alexleeyt8888/StockFanAI-Bot/internal/domain"
	"github.com/alexleeyt8888/StockFanAI-Bot/internal/ports"
)

// call is one request seen by fakeClient.
type call struct {
	operation string
	prompt    string
	params    ports.GenerationParams
}

// fakeClient is a ports.LLMClient returning scripted responses in order.
// Once the script runs out the last response repeats.
type fakeClient struct {
	mu        sync.Mutex
	model     string
	responses []string
	err       error
	calls     []call
}

func newFakeClient(responses ...string) *fakeClient {
	return &fakeClient{model: "gemini-2.5-flash", responses: responses}
}

func (f *fakeClient) Complete(ctx context.Context, prompt string, params ports.GenerationParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{
		operation: llm.OperationFromContext(ctx),
		prompt:    prompt,
		params:    params,
	})
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", nil
	}
	idx := min(len(f.calls)-1, len(f.responses)-1)
	return f.responses[idx], nil
}

func (f *fakeClient) GetModel() string { return f.model }

func (f *fakeClient) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

// stubPrompts renders short, predictable prompts.
type stubPrompts struct {
	err error
}

func (s stubPrompts) DraftPrompt(subject string, topic domain.Topic) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("draft %s for %s", topic.Label, subject), nil
}

func (s stubPrompts) CritiquePrompt(subject string, drafts []domain.Entry) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "critique %s\n", subject)
	for _, e := range drafts {
		fmt.Fprintf(&b, "=== TOPIC: %s ===\n%s\n", e.Topic.Label, e.Text)
	}
	return b.String(), nil
}

func (s stubPrompts) RevisionPrompt(subject string, topic domain.Topic, draft string, corrections []domain.Correction) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("revise %s for %s with %d corrections: %s", topic.Label, subject, len(corrections), draft), nil
}
