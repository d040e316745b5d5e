package browser

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/ev28032024/Guide-RPA-Discord-Login/pkg/logging"
)

// DefaultConnectTimeout bounds the CDP attach handshake.
const DefaultConnectTimeout = 30 * time.Second

// identityScript stashes a caller-supplied token inside the page's own
// execution context on first run and returns whatever is already there on
// subsequent runs. A page reload wipes the slot, yielding a fresh token.
const identityScript = `fresh => {
	if (!window.__hcap_page_key) {
		window.__hcap_page_key = fresh;
	}
	return window.__hcap_page_key;
}`

// Attacher connects to already-running browsers over CDP. It owns the
// Playwright driver process; Stop must be called on shutdown.
type Attacher struct {
	pw             *playwright.Playwright
	connectTimeout time.Duration
	log            *logging.Logger
}

// NewAttacher boots the Playwright driver. Browser binaries are never
// installed; this process only attaches to browsers AdsPower already runs.
func NewAttacher(connectTimeout time.Duration, log *logging.Logger) (*Attacher, error) {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}

	opts := &playwright.RunOptions{
		SkipInstallBrowsers: true,
		Stdout:              io.Discard,
		Stderr:              io.Discard,
	}
	if err := playwright.Install(opts); err != nil {
		return nil, fmt.Errorf("installing playwright driver: %w", err)
	}
	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("starting playwright driver: %w", err)
	}
	log.Debugf("playwright driver started")

	return &Attacher{pw: pw, connectTimeout: connectTimeout, log: log}, nil
}

// Attach opens a CDP connection to the browser behind endpoint. One failed
// attach is final; callers decide whether the profile gets another chance on
// a later discovery pass.
func (a *Attacher) Attach(endpoint string) (Session, error) {
	browser, err := a.pw.Chromium.ConnectOverCDP(endpoint, playwright.BrowserTypeConnectOverCDPOptions{
		Timeout: playwright.Float(float64(a.connectTimeout.Milliseconds())),
	})
	if err != nil {
		return nil, fmt.Errorf("cdp attach to %s: %w", logging.ShortURL(endpoint), err)
	}
	return &playwrightSession{browser: browser}, nil
}

// Stop shuts the Playwright driver down.
func (a *Attacher) Stop() error {
	return a.pw.Stop()
}

type playwrightSession struct {
	browser playwright.Browser
}

func (s *playwrightSession) Contexts() []BrowsingContext {
	contexts := s.browser.Contexts()
	out := make([]BrowsingContext, 0, len(contexts))
	for _, c := range contexts {
		out = append(out, &playwrightContext{ctx: c})
	}
	return out
}

func (s *playwrightSession) Close() error {
	return s.browser.Close()
}

type playwrightContext struct {
	ctx playwright.BrowserContext
}

func (c *playwrightContext) Tabs() []Tab {
	pages := c.ctx.Pages()
	out := make([]Tab, 0, len(pages))
	for _, p := range pages {
		out = append(out, &playwrightTab{page: p})
	}
	return out
}

type playwrightTab struct {
	page playwright.Page
}

func (t *playwrightTab) URL() string    { return t.page.URL() }
func (t *playwrightTab) IsClosed() bool { return t.page.IsClosed() }

func (t *playwrightTab) Frames() []Frame {
	frames := t.page.Frames()
	out := make([]Frame, 0, len(frames))
	for _, f := range frames {
		out = append(out, &playwrightFrame{frame: f})
	}
	return out
}

// Identity returns the durable token stashed in the page, minting one when
// absent. Pages that cannot be scripted fall back to an address-based token
// that is stable for the lifetime of this connection.
func (t *playwrightTab) Identity() string {
	result, err := t.page.Evaluate(identityScript, uuid.NewString())
	if err == nil {
		if token, ok := result.(string); ok && token != "" {
			return token
		}
	}
	return fmt.Sprintf("cdp:%p", t.page)
}

type playwrightFrame struct {
	frame playwright.Frame
}

func (f *playwrightFrame) URL() string { return f.frame.URL() }

func (f *playwrightFrame) ProbeVisible(selector string, timeout time.Duration) (bool, error) {
	err := f.frame.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		// The wait not completing covers both "no such element" and frames
		// torn down mid-probe.
		return false, nil
	}
	return true, nil
}

func (f *playwrightFrame) Click(selector string, timeout time.Duration) error {
	return f.frame.Click(selector, playwright.FrameClickOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
}
