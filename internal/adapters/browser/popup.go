package browser

import (
	"sync"

	"github.com/playwright-community/playwright-go"
)

const (
	eventFrameNavigated = "framenavigated"
	eventClose          = "close"
)

// pageHandle is the part of playwright.Page a popup needs.
type pageHandle interface {
	On(event string, handler interface{})
	Close(options ...playwright.PageCloseOptions) error
	IsClosed() bool
}

// Popup fans one playwright handler per event out to its own listener set.
// Listeners are tracked here because the driver matches handlers by function
// pointer, which cannot tell two closures of the same literal apart.
//
// The page starts loading before anyone can subscribe, so the latest
// main-frame URL and the close are remembered and replayed to listeners added
// afterwards.
type Popup struct {
	id   string
	page pageHandle

	mu       sync.Mutex
	nextID   int
	navigate map[int]func(string)
	closeFns map[int]func()
	lastURL  string
	closed   bool
}

func newPopup(id string, p pageHandle) *Popup {
	popup := &Popup{
		id:       id,
		page:     p,
		navigate: make(map[int]func(string)),
		closeFns: make(map[int]func()),
	}
	p.On(eventFrameNavigated, popup.handleFrameNavigated)
	p.On(eventClose, popup.handleClose)
	return popup
}

func (p *Popup) ID() string {
	return p.id
}

// OnNavigate registers fn for main-frame navigations. If the page has
// already navigated, fn is called with the latest URL before OnNavigate
// returns.
func (p *Popup) OnNavigate(fn func(url string)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.navigate[id] = fn
	last := p.lastURL
	p.mu.Unlock()

	remove := func() {
		p.mu.Lock()
		delete(p.navigate, id)
		p.mu.Unlock()
	}
	if last != "" {
		fn(last)
	}
	return remove
}

// OnClose registers fn for the page closing. A page that is already closed
// calls fn before OnClose returns.
func (p *Popup) OnClose(fn func()) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.closeFns[id] = fn
	closed := p.closed
	p.mu.Unlock()

	remove := func() {
		p.mu.Lock()
		delete(p.closeFns, id)
		p.mu.Unlock()
	}
	if closed {
		fn()
	}
	return remove
}

func (p *Popup) Close() error {
	if p.page.IsClosed() {
		return nil
	}
	return p.page.Close()
}

func (p *Popup) handleFrameNavigated(frame playwright.Frame) {
	if frame == nil || frame.ParentFrame() != nil {
		return
	}
	url := frame.URL()

	p.mu.Lock()
	p.lastURL = url
	listeners := make([]func(string), 0, len(p.navigate))
	for _, fn := range p.navigate {
		listeners = append(listeners, fn)
	}
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(url)
	}
}

func (p *Popup) handleClose(playwright.Page) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	listeners := make([]func(), 0, len(p.closeFns))
	for _, fn := range p.closeFns {
		listeners = append(listeners, fn)
	}
	p.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}
