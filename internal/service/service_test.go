package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dhaneeshkmrt/expense-flow-sub000/internal/domain"
)

// --- Mocks ---

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, event domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

func (m *mockPublisher) ofType(t domain.EventType) []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Event
	for _, e := range m.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

var errBroker = errors.New("broker down")

// fixedClock returns a clock stuck at the given date.
func fixedClock(date string) func() time.Time {
	t, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		panic(err)
	}
	t = t.Add(10 * time.Hour)
	return func() time.Time { return t }
}

const tenant = "tenant-1"
