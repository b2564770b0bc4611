package mocks

import "github.com/mcdonaldj/unpack/internal/ports"

// ProgressUpdate is one recorded Update call.
type ProgressUpdate struct {
	Current int
	Total   int
}

// MockProgress implements ports.ProgressReporter by recording calls.
type MockProgress struct {
	Updates  []ProgressUpdate
	Failures []ports.EntryFailure
}

// NewMockProgress creates a new recording reporter.
func NewMockProgress() *MockProgress {
	return &MockProgress{}
}

// Update records the call.
func (m *MockProgress) Update(current, total int) {
	m.Updates = append(m.Updates, ProgressUpdate{Current: current, Total: total})
}

// Failed records the failure.
func (m *MockProgress) Failed(f ports.EntryFailure) {
	m.Failures = append(m.Failures, f)
}

// Last returns the final update, or the zero value if none were made.
func (m *MockProgress) Last() ProgressUpdate {
	if len(m.Updates) == 0 {
		return ProgressUpdate{}
	}
	return m.Updates[len(m.Updates)-1]
}

// Compile-time check that MockProgress implements ports.ProgressReporter.
var _ ports.ProgressReporter = (*MockProgress)(nil)
