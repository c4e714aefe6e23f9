package notification

import (
	"context"
	"sync"
)

// Message is a message captured by MemorySender.
type Message struct {
	To      string
	Subject string
	Body    string
}

// MemorySender keeps sent messages in memory. Setting Err makes every
// Send fail with it.
type MemorySender struct {
	mu       sync.Mutex
	messages []Message
	Err      error
}

func NewMemorySender() *MemorySender {
	return &MemorySender{}
}

func (s *MemorySender) Send(_ context.Context, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return s.Err
	}
	s.messages = append(s.messages, Message{To: to, Subject: subject, Body: body})
	return nil
}

// Messages returns a copy of everything sent so far.
func (s *MemorySender) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Message(nil), s.messages...)
}

// Last returns the most recent message sent to the address.
func (s *MemorySender) Last(to string) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].To == to {
			return s.messages[i], true
		}
	}
	return Message{}, false
}
