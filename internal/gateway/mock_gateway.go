package gateway

import (
	"context"
	"fmt"
	"sync"
)

// DeliveredMessage records one Deliver or Edit call on the mock
type DeliveredMessage struct {
	ChatID     string
	MessageRef string
	Message    RenderedMessage
	Edited     bool
}

// MockGateway records deliveries for tests
type MockGateway struct {
	mu        sync.Mutex
	messages  []DeliveredMessage
	nextRef   int
	FailNext  bool
	FailError error
}

func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (m *MockGateway) Deliver(_ context.Context, chatID string, msg RenderedMessage) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailNext {
		m.FailNext = false
		if m.FailError != nil {
			return "", m.FailError
		}
		return "", fmt.Errorf("delivery failed")
	}

	m.nextRef++
	ref := fmt.Sprintf("msg-%d", m.nextRef)
	m.messages = append(m.messages, DeliveredMessage{
		ChatID:     chatID,
		MessageRef: ref,
		Message:    msg,
	})
	return ref, nil
}

func (m *MockGateway) Edit(_ context.Context, chatID, messageRef string, msg RenderedMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = append(m.messages, DeliveredMessage{
		ChatID:     chatID,
		MessageRef: messageRef,
		Message:    msg,
		Edited:     true,
	})
	return nil
}

// Messages returns a copy of all recorded deliveries
func (m *MockGateway) Messages() []DeliveredMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]DeliveredMessage, len(m.messages))
	copy(out, m.messages)
	return out
}

// LastMessage returns the most recent delivery, if any
func (m *MockGateway) LastMessage() (DeliveredMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return DeliveredMessage{}, false
	}
	return m.messages[len(m.messages)-1], true
}
