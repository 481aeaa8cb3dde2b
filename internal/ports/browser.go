package ports

import (
	"context"

	"github.com/pixzlo/pixzlo-bridge/internal/domain"
)

type BrowserHost interface {
	OpenPopup(ctx context.Context, url string, size domain.WindowSize) (Popup, error)
	OpenTab(ctx context.Context, url string) error
	PinnedState(ctx context.Context) (bool, error)
}

// Popup is one browser window. The returned functions detach the listener;
// calling them more than once is allowed. A listener registered after the
// window navigated or closed is called at once with the latest URL or the
// close, so events raised while the window was opening are not lost.
type Popup interface {
	ID() string
	OnNavigate(fn func(url string)) (remove func())
	OnClose(fn func()) (remove func())
	Close() error
}
