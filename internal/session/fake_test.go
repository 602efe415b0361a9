package session

import (
	"context"
	"strings"
	"sync"

	"privatetasks/internal/masq"
)

type call struct {
	Op    string
	Key   string
	Value bool
}

// fakeClient is an in-memory masq.Client with error injection.
type fakeClient struct {
	mu       sync.Mutex
	logged   bool
	active   bool
	username string
	links    int
	records  map[string]bool
	calls    []call

	// Error injection for testing
	IsLoggedInErr error
	LoginLinkErr  error
	ConnectErr    error
	LogIntoErr    error
	SignOutErr    error
	ListErr       error
	PutErr        error
	DelErr        error

	// Link is returned by every LoginLink call.
	Link string
	// LogIntoBlock, when set, makes LogIntoMasq wait for it to close.
	LogIntoBlock chan struct{}
	// PutBlock, when set, makes Put wait for it to close.
	PutBlock chan struct{}
}

var _ masq.Client = (*fakeClient)(nil)

func newFakeClient() *fakeClient {
	return &fakeClient{
		Link:     "https://pair/abc",
		username: "alice",
		records:  make(map[string]bool),
	}
}

func (f *fakeClient) record(op, key string, value bool) {
	f.calls = append(f.calls, call{Op: op, Key: key, Value: value})
}

func (f *fakeClient) Calls(op string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeClient) Seed(records map[string]bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, v := range records {
		f.records[k] = v
	}
}

func (f *fakeClient) IsLoggedIn(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("isLoggedIn", "", false)
	if f.IsLoggedInErr != nil {
		return false, f.IsLoggedInErr
	}
	return f.logged || f.active, nil
}

func (f *fakeClient) LoginLink(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("loginLink", "", false)
	if f.LoginLinkErr != nil {
		return "", f.LoginLinkErr
	}
	f.links++
	return f.Link, nil
}

func (f *fakeClient) ConnectToMasq(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("connectToMasq", "", false)
	if f.ConnectErr != nil {
		return f.ConnectErr
	}
	f.active = true
	return nil
}

func (f *fakeClient) LogIntoMasq(ctx context.Context, stayConnected bool) error {
	f.mu.Lock()
	block := f.LogIntoBlock
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("logIntoMasq", "", stayConnected)
	if f.LogIntoErr != nil {
		return f.LogIntoErr
	}
	f.active = true
	f.logged = stayConnected
	return nil
}

func (f *fakeClient) SignOut(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("signout", "", false)
	if f.SignOutErr != nil {
		return f.SignOutErr
	}
	f.active = false
	f.logged = false
	return nil
}

func (f *fakeClient) Username() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.active {
		return ""
	}
	return f.username
}

func (f *fakeClient) List(ctx context.Context) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("list", "", false)
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	out := make(map[string]bool, len(f.records))
	for k, v := range f.records {
		out[strings.TrimPrefix(k, "/")] = v
	}
	return out, nil
}

func (f *fakeClient) Put(ctx context.Context, key string, value bool) error {
	f.mu.Lock()
	block := f.PutBlock
	f.mu.Unlock()
	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("put", key, value)
	if f.PutErr != nil {
		return f.PutErr
	}
	f.records[key] = value
	return nil
}

func (f *fakeClient) Del(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("del", key, false)
	if f.DelErr != nil {
		return f.DelErr
	}
	delete(f.records, key)
	return nil
}
