package application

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pixzlo/pixzlo-bridge/internal/domain"
	"github.com/pixzlo/pixzlo-bridge/internal/ports"
	"github.com/stretchr/testify/mock"
)

func mockAnyContext() interface{} {
	return mock.Anything
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type memoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemoryStore(values map[string]string) *memoryStore {
	if values == nil {
		values = map[string]string{}
	}
	return &memoryStore{values: values}
}

func (s *memoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	if !ok {
		return "", domain.ErrKeyNotFound
	}
	return value, nil
}

func (s *memoryStore) Put(_ context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *memoryStore) value(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	return value, ok
}

// fakeBackend counts calls and returns canned data. Unset functions fall back
// to zero values.
type fakeBackend struct {
	profileCalls       atomic.Int32
	figmaMetadataCalls atomic.Int32
	linearCalls        atomic.Int32

	profile    func() (domain.Profile, error)
	metadata   func(workspaceID domain.WorkspaceID, websiteURL string) (domain.FigmaMetadata, error)
	authURL    func(workspaceID domain.WorkspaceID) (string, error)
	mutateErr  error
	linear     func(workspaceID domain.WorkspaceID) (domain.LinearMetadata, error)
	issue      func(input domain.LinearIssueInput) (domain.LinearIssue, error)
	pagesTree  json.RawMessage
	lastCalled atomic.Value
}

var _ ports.Backend = (*fakeBackend)(nil)

func (b *fakeBackend) GetProfile(context.Context) (domain.Profile, error) {
	b.profileCalls.Add(1)
	if b.profile == nil {
		return domain.Profile{}, nil
	}
	return b.profile()
}

func (b *fakeBackend) FetchFigmaMetadata(_ context.Context, workspaceID domain.WorkspaceID, websiteURL string) (domain.FigmaMetadata, error) {
	b.figmaMetadataCalls.Add(1)
	if b.metadata == nil {
		return domain.FigmaMetadata{Connected: true, WebsiteURL: websiteURL, DesignLinks: []domain.DesignLink{}}, nil
	}
	return b.metadata(workspaceID, websiteURL)
}

func (b *fakeBackend) UpdateFigmaPreference(context.Context, domain.WorkspaceID, domain.FigmaPreference) error {
	b.lastCalled.Store("UpdateFigmaPreference")
	return b.mutateErr
}

func (b *fakeBackend) CreateDesignLink(_ context.Context, _ domain.WorkspaceID, input domain.DesignLinkInput) (domain.DesignLink, error) {
	b.lastCalled.Store("CreateDesignLink")
	if b.mutateErr != nil {
		return domain.DesignLink{}, b.mutateErr
	}
	return domain.DesignLink{ID: "link-1", WebsiteURL: input.WebsiteURL, FigmaFileID: input.LinkData.FigmaFileID, FigmaFrameID: input.LinkData.FigmaFrameID}, nil
}

func (b *fakeBackend) DeleteDesignLink(context.Context, domain.WorkspaceID, string) error {
	b.lastCalled.Store("DeleteDesignLink")
	return b.mutateErr
}

func (b *fakeBackend) FigmaAuthURL(_ context.Context, workspaceID domain.WorkspaceID) (string, error) {
	if b.authURL == nil {
		return "https://backend.test/oauth/figma?workspace=" + string(workspaceID), nil
	}
	return b.authURL(workspaceID)
}

func (b *fakeBackend) FigmaAccessToken(context.Context, domain.WorkspaceID) (domain.AccessToken, error) {
	return domain.AccessToken{Token: "figma-token"}, nil
}

func (b *fakeBackend) LinearStatus(context.Context, domain.WorkspaceID) (domain.LinearStatus, error) {
	return domain.LinearStatus{Connected: true, Organization: "acme"}, nil
}

func (b *fakeBackend) FetchLinearMetadata(_ context.Context, workspaceID domain.WorkspaceID) (domain.LinearMetadata, error) {
	b.linearCalls.Add(1)
	if b.linear == nil {
		return domain.LinearMetadata{Teams: []domain.LinearTeam{{ID: "team-1", Key: "ENG", Name: "Engineering"}}}, nil
	}
	return b.linear(workspaceID)
}

func (b *fakeBackend) UpdateLinearPreference(context.Context, domain.WorkspaceID, domain.LinearPreference) error {
	b.lastCalled.Store("UpdateLinearPreference")
	return b.mutateErr
}

func (b *fakeBackend) CreateLinearIssue(_ context.Context, _ domain.WorkspaceID, input domain.LinearIssueInput) (domain.LinearIssue, error) {
	if b.issue == nil {
		return domain.LinearIssue{ID: "issue-1", Identifier: "ENG-1", Title: input.Title}, nil
	}
	return b.issue(input)
}

func (b *fakeBackend) FetchPagesTree(context.Context, domain.WorkspaceID, string) (json.RawMessage, error) {
	return b.pagesTree, nil
}

func (b *fakeBackend) Call(_ context.Context, endpoint string, _ domain.APICallOptions) (json.RawMessage, error) {
	return json.RawMessage(`{"endpoint":"` + endpoint + `"}`), nil
}

type fakeDesignAPI struct {
	fileCalls  atomic.Int32
	imageCalls atomic.Int32

	file     domain.DesignFile
	fileErr  error
	imageErr error
	// gate, when set, holds GetFile until it is closed.
	gate chan struct{}
}

var _ ports.DesignAPI = (*fakeDesignAPI)(nil)

func (a *fakeDesignAPI) GetFile(ctx context.Context, _ string) (domain.DesignFile, error) {
	a.fileCalls.Add(1)
	if a.gate != nil {
		select {
		case <-a.gate:
		case <-ctx.Done():
			return domain.DesignFile{}, ctx.Err()
		}
	}
	if a.fileErr != nil {
		return domain.DesignFile{}, a.fileErr
	}
	return a.file, nil
}

func (a *fakeDesignAPI) RenderImage(_ context.Context, fileID, nodeID string) (string, error) {
	a.imageCalls.Add(1)
	if a.imageErr != nil {
		return "", a.imageErr
	}
	return "https://cdn.test/" + fileID + "/" + nodeID + ".png", nil
}

type fakePopup struct {
	id string

	mu         sync.Mutex
	navigate   map[int]func(string)
	closeFns   map[int]func()
	nextID     int
	removed    int
	closeCalls int
	lastURL    string
	userClosed bool
}

func newFakePopup() *fakePopup {
	return &fakePopup{id: "popup-1", navigate: map[int]func(string){}, closeFns: map[int]func(){}}
}

func (p *fakePopup) ID() string { return p.id }

func (p *fakePopup) OnNavigate(fn func(string)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.navigate[id] = fn
	remove := p.remover(func() bool {
		_, ok := p.navigate[id]
		delete(p.navigate, id)
		return ok
	})
	if last := p.lastURL; last != "" {
		p.mu.Unlock()
		fn(last)
		p.mu.Lock()
	}
	return remove
}

func (p *fakePopup) OnClose(fn func()) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.closeFns[id] = fn
	remove := p.remover(func() bool {
		_, ok := p.closeFns[id]
		delete(p.closeFns, id)
		return ok
	})
	if p.userClosed {
		p.mu.Unlock()
		fn()
		p.mu.Lock()
	}
	return remove
}

func (p *fakePopup) remover(remove func() bool) func() {
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if remove() {
			p.removed++
		}
	}
}

func (p *fakePopup) Close() error {
	p.mu.Lock()
	p.closeCalls++
	p.mu.Unlock()
	return nil
}

// Navigate fires every registered navigation listener with url.
func (p *fakePopup) Navigate(url string) {
	p.mu.Lock()
	p.lastURL = url
	fns := make([]func(string), 0, len(p.navigate))
	for _, fn := range p.navigate {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(url)
	}
}

// UserClose fires every registered close listener.
func (p *fakePopup) UserClose() {
	p.mu.Lock()
	p.userClosed = true
	fns := make([]func(), 0, len(p.closeFns))
	for _, fn := range p.closeFns {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (p *fakePopup) listenerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.navigate) + len(p.closeFns)
}

func (p *fakePopup) stats() (removed, closeCalls int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.removed, p.closeCalls
}

type fakeBrowser struct {
	popup  *fakePopup
	opened chan string

	mu       sync.Mutex
	size     domain.WindowSize
	tabs     []string
	openErr  error
	isPinned bool
	// loadTo, when set, is navigated to inside OpenPopup, before the caller
	// can subscribe. closeOnOpen closes the window there too.
	loadTo      string
	closeOnOpen bool
}

var _ ports.BrowserHost = (*fakeBrowser)(nil)

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{popup: newFakePopup(), opened: make(chan string, 1)}
}

func (b *fakeBrowser) OpenPopup(_ context.Context, url string, size domain.WindowSize) (ports.Popup, error) {
	b.mu.Lock()
	b.size = size
	err := b.openErr
	loadTo, closeOnOpen := b.loadTo, b.closeOnOpen
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if loadTo != "" {
		b.popup.Navigate(loadTo)
	}
	if closeOnOpen {
		b.popup.UserClose()
	}
	b.opened <- url
	return b.popup, nil
}

func (b *fakeBrowser) OpenTab(_ context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tabs = append(b.tabs, url)
	return nil
}

func (b *fakeBrowser) PinnedState(context.Context) (bool, error) {
	return b.isPinned, nil
}

type countingInvalidator struct {
	calls atomic.Int32
}

func (c *countingInvalidator) Invalidate() {
	c.calls.Add(1)
}
