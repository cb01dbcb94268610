package testutils

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/papercomputeco/leo/pkg/vector"
)

// MockVectorDriver is a goroutine-safe in-memory vector driver. Query ignores
// the embedding and returns matching documents in insertion order unless
// Results is set.
type MockVectorDriver struct {
	mu   sync.Mutex
	docs []vector.Document

	// Results, when set, is returned by Query as-is.
	Results []vector.QueryResult

	// FailAdds makes the next n Add calls fail.
	FailAdds int

	// QueryErr is returned by Query when set.
	QueryErr error

	closed bool
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{}
}

func (m *MockVectorDriver) Add(_ context.Context, docs []vector.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailAdds > 0 {
		m.FailAdds--
		return errors.New("mock add failure")
	}

	for _, doc := range docs {
		m.docs = slices.DeleteFunc(m.docs, func(d vector.Document) bool { return d.ID == doc.ID })
		m.docs = append(m.docs, doc)
	}
	return nil
}

func (m *MockVectorDriver) Query(_ context.Context, _ []float32, topK int, filter vector.Filter) ([]vector.QueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	if m.Results != nil {
		return m.Results, nil
	}

	var results []vector.QueryResult
	for _, doc := range m.docs {
		if filter.Matches(doc) && len(results) < topK {
			results = append(results, vector.QueryResult{Document: doc, Score: 1})
		}
	}
	return results, nil
}

func (m *MockVectorDriver) Get(_ context.Context, ids []string) ([]vector.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []vector.Document
	for _, doc := range m.docs {
		if slices.Contains(ids, doc.ID) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (m *MockVectorDriver) Delete(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.docs = slices.DeleteFunc(m.docs, func(d vector.Document) bool { return slices.Contains(ids, d.ID) })
	return nil
}

func (m *MockVectorDriver) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Documents returns a copy of the stored documents.
func (m *MockVectorDriver) Documents() []vector.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.docs)
}

// DocumentIDs returns the ids of the stored documents.
func (m *MockVectorDriver) DocumentIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, len(m.docs))
	for i, doc := range m.docs {
		ids[i] = doc.ID
	}
	return ids
}

// Closed reports whether Close was called.
func (m *MockVectorDriver) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
