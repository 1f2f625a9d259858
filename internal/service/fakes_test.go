package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/jogjaantibully/kanal/internal/apperror"
	"github.com/jogjaantibully/kanal/internal/auth"
	"github.com/jogjaantibully/kanal/internal/model"
	"github.com/jogjaantibully/kanal/internal/repository"
)

// =========================================================================
// FAKES
// =========================================================================
//
// Hand-written in-memory fakes for every dependency of the services. Each
// one counts its calls so tests can assert what did NOT happen (no write,
// no provider call, no sign-out).

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeUserRepo mimics the document store: whole-document set, last write wins.
type fakeUserRepo struct {
	mu       sync.Mutex
	profiles map[string]model.UserProfile

	getCalls int
	setCalls int

	// set to a non-nil error to simulate a store failure
	getErr error
	setErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{profiles: make(map[string]model.UserProfile)}
}

func (f *fakeUserRepo) GetProfile(_ context.Context, id string) (*model.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.profiles[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return &p, nil
}

func (f *fakeUserRepo) SetProfile(_ context.Context, p *model.UserProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls++
	if f.setErr != nil {
		return f.setErr
	}
	f.profiles[p.ID] = *p
	return nil
}

// put seeds a profile without counting it as a write by the code under test.
func (f *fakeUserRepo) put(p model.UserProfile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[p.ID] = p
}

func (f *fakeUserRepo) stored(id string) (model.UserProfile, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	return p, ok
}

// fakeSession is an in-memory session.Context.
type fakeSession struct {
	principal *auth.Principal
	signIns   int
	signOuts  int

	signInErr  error
	signOutErr error
}

func (f *fakeSession) Current(context.Context) (*auth.Principal, bool) {
	return f.principal, f.principal != nil
}

func (f *fakeSession) SignIn(_ context.Context, p *auth.Principal) error {
	f.signIns++
	if f.signInErr != nil {
		return f.signInErr
	}
	f.principal = p
	return nil
}

func (f *fakeSession) SignOut(context.Context) error {
	f.signOuts++
	if f.signOutErr != nil {
		return f.signOutErr
	}
	f.principal = nil
	return nil
}

// fakeProvider returns a fixed principal (or error) from Exchange.
type fakeProvider struct {
	principal *auth.Principal
	err       error

	authURLCalls  int
	exchangeCalls int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) AuthCodeURL(state, challenge string) string {
	f.authURLCalls++
	return "https://idp.example/authorize?state=" + state + "&code_challenge=" + challenge
}

func (f *fakeProvider) Exchange(context.Context, string, string) (*auth.Principal, error) {
	f.exchangeCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.principal, nil
}

// fakeQuoteRepo stores quotes in a map; List sorts by ID for determinism.
type fakeQuoteRepo struct {
	quotes map[string]model.Quote
	nextID int
	err    error
}

func newFakeQuoteRepo() *fakeQuoteRepo {
	return &fakeQuoteRepo{quotes: make(map[string]model.Quote)}
}

func (f *fakeQuoteRepo) Create(_ context.Context, q *model.Quote) error {
	if f.err != nil {
		return f.err
	}
	f.nextID++
	q.ID = fmt.Sprintf("quote-%d", f.nextID)
	f.quotes[q.ID] = *q
	return nil
}

func (f *fakeQuoteRepo) GetByID(_ context.Context, id string) (*model.Quote, error) {
	q, ok := f.quotes[id]
	if !ok {
		return nil, apperror.NotFound("quote", id)
	}
	return &q, nil
}

func (f *fakeQuoteRepo) List(_ context.Context, _ repository.ListOptions) ([]model.Quote, error) {
	out := make([]model.Quote, 0, len(f.quotes))
	for _, q := range f.quotes {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeQuoteRepo) Update(_ context.Context, q *model.Quote) error {
	if _, ok := f.quotes[q.ID]; !ok {
		return apperror.NotFound("quote", q.ID)
	}
	f.quotes[q.ID] = *q
	return nil
}

func (f *fakeQuoteRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.quotes[id]; !ok {
		return apperror.NotFound("quote", id)
	}
	delete(f.quotes, id)
	return nil
}

type fakeGelarRepo struct {
	posts  map[string]model.GelarPost
	nextID int
}

func newFakeGelarRepo() *fakeGelarRepo {
	return &fakeGelarRepo{posts: make(map[string]model.GelarPost)}
}

func (f *fakeGelarRepo) Create(_ context.Context, p *model.GelarPost) error {
	f.nextID++
	p.ID = fmt.Sprintf("post-%d", f.nextID)
	f.posts[p.ID] = *p
	return nil
}

func (f *fakeGelarRepo) GetByID(_ context.Context, id string) (*model.GelarPost, error) {
	p, ok := f.posts[id]
	if !ok {
		return nil, apperror.NotFound("gelar post", id)
	}
	return &p, nil
}

func (f *fakeGelarRepo) ListApproved(_ context.Context, _ repository.ListOptions) ([]model.GelarPost, error) {
	out := make([]model.GelarPost, 0)
	for _, p := range f.posts {
		if p.Approved {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeGelarRepo) SetApproved(_ context.Context, id string, approved bool) error {
	p, ok := f.posts[id]
	if !ok {
		return apperror.NotFound("gelar post", id)
	}
	p.Approved = approved
	f.posts[id] = p
	return nil
}

// fakeBlobStore records uploads and returns a predictable URL.
type fakeBlobStore struct {
	keys   []string
	bodies map[string]string
	err    error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{bodies: make(map[string]string)}
}

func (f *fakeBlobStore) Put(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.keys = append(f.keys, key)
	f.bodies[key] = string(b)
	return "https://cdn.example/" + key, nil
}

func (f *fakeBlobStore) hasKeyWithPrefix(prefix string) bool {
	for _, k := range f.keys {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}
