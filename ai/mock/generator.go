package mock

import (
	"context"
	"strings"

	"github.com/lethanhson9903/rag-assistant-api-core/core"
)

// MockGenerator is a test double for ai.Generator.
// It allows custom behavior injection via function fields.
type MockGenerator struct {
	// GenerateFunc is called by Generate if set.
	// If nil, uses default deterministic behavior.
	GenerateFunc func(ctx context.Context, messages []core.PromptMessage) (string, error)

	callCount    int
	lastMessages []core.PromptMessage
}

// NewMockGenerator creates a mock generator with default deterministic behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Generate echoes the last user message by default, which lets tests verify
// the assembled prompt round-trips through the generation stage.
func (m *MockGenerator) Generate(ctx context.Context, messages []core.PromptMessage) (string, error) {
	m.callCount++
	m.lastMessages = append([]core.PromptMessage(nil), messages...)

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, messages)
	}

	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == core.RoleUser {
			return "mock answer: " + firstLine(messages[i].Content), nil
		}
	}
	return "mock answer", nil
}

// CallCount returns the number of times Generate was called.
func (m *MockGenerator) CallCount() int {
	return m.callCount
}

// LastMessages returns the prompt passed to the most recent Generate call.
func (m *MockGenerator) LastMessages() []core.PromptMessage {
	return m.lastMessages
}

// Reset clears the call count, recorded prompt, and injected behavior.
func (m *MockGenerator) Reset() {
	m.callCount = 0
	m.lastMessages = nil
	m.GenerateFunc = nil
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
