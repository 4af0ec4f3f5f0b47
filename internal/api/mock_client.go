// ABOUTME: Mock Client implementation for testing
// ABOUTME: Records every call and serves canned responses without any network

package api

import (
	"context"
	"sync"
)

// MockClient is a configurable in-memory Client for tests. Each method
// delegates to its function field when set and fails with a generic *Error
// otherwise. Calls records method names in invocation order.
type MockClient struct {
	mu    sync.Mutex
	Calls []string

	StatusFn            func(ctx context.Context, id string) (*Status, error)
	DeleteStatusFn      func(ctx context.Context, id string) error
	FavouriteStatusFn   func(ctx context.Context, id string) (*Status, error)
	UnfavouriteStatusFn func(ctx context.Context, id string) (*Status, error)
	ReblogStatusFn      func(ctx context.Context, id string) (*Status, error)
	UnreblogStatusFn    func(ctx context.Context, id string) (*Status, error)
	BookmarkStatusFn    func(ctx context.Context, id string) (*Status, error)
	UnbookmarkStatusFn  func(ctx context.Context, id string) (*Status, error)
	PinStatusFn         func(ctx context.Context, id string) (*Status, error)
	UnpinStatusFn       func(ctx context.Context, id string) (*Status, error)
	MuteStatusFn        func(ctx context.Context, id string) (*Status, error)
	UnmuteStatusFn      func(ctx context.Context, id string) (*Status, error)
	PollFn              func(ctx context.Context, id string) (*Poll, error)
	VotePollFn          func(ctx context.Context, id string, choices []int) (*Poll, error)
	InstanceFn          func(ctx context.Context, uri string) (*Instance, error)
	VerifyCredentialsFn func(ctx context.Context) (*Account, error)
}

// NewMockClient creates an empty MockClient.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// CallNames returns a copy of the recorded call names.
func (m *MockClient) CallNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Calls))
	copy(out, m.Calls)
	return out
}

func (m *MockClient) record(name string) {
	m.mu.Lock()
	m.Calls = append(m.Calls, name)
	m.mu.Unlock()
}

func (m *MockClient) statusCall(name string, fn func(ctx context.Context, id string) (*Status, error), ctx context.Context, id string) (*Status, error) {
	m.record(name)
	if fn == nil {
		return nil, &Error{Endpoint: name, Message: "not configured"}
	}
	return fn(ctx, id)
}

func (m *MockClient) Status(ctx context.Context, id string) (*Status, error) {
	return m.statusCall("Status", m.StatusFn, ctx, id)
}

func (m *MockClient) DeleteStatus(ctx context.Context, id string) error {
	m.record("DeleteStatus")
	if m.DeleteStatusFn == nil {
		return &Error{Endpoint: "DeleteStatus", Message: "not configured"}
	}
	return m.DeleteStatusFn(ctx, id)
}

func (m *MockClient) FavouriteStatus(ctx context.Context, id string) (*Status, error) {
	return m.statusCall("FavouriteStatus", m.FavouriteStatusFn, ctx, id)
}

func (m *MockClient) UnfavouriteStatus(ctx context.Context, id string) (*Status, error) {
	return m.statusCall("UnfavouriteStatus", m.UnfavouriteStatusFn, ctx, id)
}

func (m *MockClient) ReblogStatus(ctx context.Context, id string) (*Status, error) {
	return m.statusCall("ReblogStatus", m.ReblogStatusFn, ctx, id)
}

func (m *MockClient) UnreblogStatus(ctx context.Context, id string) (*Status, error) {
	return m.statusCall("UnreblogStatus", m.UnreblogStatusFn, ctx, id)
}

func (m *MockClient) BookmarkStatus(ctx context.Context, id string) (*Status, error) {
	return m.statusCall("BookmarkStatus", m.BookmarkStatusFn, ctx, id)
}

func (m *MockClient) UnbookmarkStatus(ctx context.Context, id string) (*Status, error) {
	return m.statusCall("UnbookmarkStatus", m.UnbookmarkStatusFn, ctx, id)
}

func (m *MockClient) PinStatus(ctx context.Context, id string) (*Status, error) {
	return m.statusCall("PinStatus", m.PinStatusFn, ctx, id)
}

func (m *MockClient) UnpinStatus(ctx context.Context, id string) (*Status, error) {
	return m.statusCall("UnpinStatus", m.UnpinStatusFn, ctx, id)
}

func (m *MockClient) MuteStatus(ctx context.Context, id string) (*Status, error) {
	return m.statusCall("MuteStatus", m.MuteStatusFn, ctx, id)
}

func (m *MockClient) UnmuteStatus(ctx context.Context, id string) (*Status, error) {
	return m.statusCall("UnmuteStatus", m.UnmuteStatusFn, ctx, id)
}

func (m *MockClient) Poll(ctx context.Context, id string) (*Poll, error) {
	m.record("Poll")
	if m.PollFn == nil {
		return nil, &Error{Endpoint: "Poll", Message: "not configured"}
	}
	return m.PollFn(ctx, id)
}

func (m *MockClient) VotePoll(ctx context.Context, id string, choices []int) (*Poll, error) {
	m.record("VotePoll")
	if m.VotePollFn == nil {
		return nil, &Error{Endpoint: "VotePoll", Message: "not configured"}
	}
	return m.VotePollFn(ctx, id, choices)
}

func (m *MockClient) Instance(ctx context.Context, uri string) (*Instance, error) {
	m.record("Instance")
	if m.InstanceFn == nil {
		return nil, &Error{Endpoint: "Instance", Message: "not configured"}
	}
	return m.InstanceFn(ctx, uri)
}

func (m *MockClient) VerifyCredentials(ctx context.Context) (*Account, error) {
	m.record("VerifyCredentials")
	if m.VerifyCredentialsFn == nil {
		return nil, &Error{Endpoint: "VerifyCredentials", Message: "not configured"}
	}
	return m.VerifyCredentialsFn(ctx)
}

// Ensure MockClient implements Client
var _ Client = (*MockClient)(nil)
