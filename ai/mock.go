package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"crisiswatch/ports"
)

// MockCompleter is a scripted Completer for testing. Responses are
// consumed in order; Respond functions take precedence when set.
type MockCompleter struct {
	Responses []string                                          // raw JSON payloads, consumed in order
	Respond   func(req ports.CompletionRequest) (string, error) // optional dynamic responder
	Err       error                                             // returned on every call when set

	Calls []ports.CompletionRequest
	next  int
}

func (m *MockCompleter) Complete(_ context.Context, req ports.CompletionRequest, out any) error {
	m.Calls = append(m.Calls, req)
	if m.Err != nil {
		return m.Err
	}
	var payload string
	switch {
	case m.Respond != nil:
		p, err := m.Respond(req)
		if err != nil {
			return err
		}
		payload = p
	case m.next < len(m.Responses):
		payload = m.Responses[m.next]
		m.next++
	default:
		return fmt.Errorf("mock completer: no response scripted for call %d", len(m.Calls))
	}
	return json.Unmarshal([]byte(payload), out)
}

// MockFactory hands the same MockCompleter to every credential
type MockFactory struct {
	Completer ports.Completer
}

func (f *MockFactory) WithCredential(ports.Credential) ports.Completer {
	return f.Completer
}
