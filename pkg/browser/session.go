package browser

import (
	"context"
	"encoding/json"
	"time"
)

// ChallengeMarker identifies hCaptcha frames by URL substring.
const ChallengeMarker = "hcaptcha"

// CheckboxSelector matches the widget's checkbox element across the markup
// variants hCaptcha ships.
const CheckboxSelector = `div#checkbox, .check, #checkbox, div.check`

// Session is a live browser reached over its session endpoint.
type Session interface {
	// Contexts returns the browsing contexts currently open.
	Contexts() []BrowsingContext

	// Close releases the connection. The remote browser keeps running.
	Close() error
}

// BrowsingContext is one isolated context within a browser.
type BrowsingContext interface {
	Tabs() []Tab
}

// Tab is one open page.
type Tab interface {
	URL() string
	IsClosed() bool
	Frames() []Frame

	// Identity returns the tab's durable identity token, generating and
	// stashing one on first observation. Implementations must return a
	// usable token even when the page cannot be scripted.
	Identity() string
}

// Frame is one frame of a tab, including the main frame.
type Frame interface {
	URL() string

	// ProbeVisible reports whether the first element matching selector
	// becomes visible within timeout. A timeout is not an error, just
	// "not found here".
	ProbeVisible(selector string, timeout time.Duration) (bool, error)

	// Click clicks the first element matching selector.
	Click(selector string, timeout time.Duration) error
}

// ProfileRef carries the identity of the profile a session belongs to, for
// logging.
type ProfileRef struct {
	ID   string
	Name string
}

// SolveResult is the outcome reported by a solver.
type SolveResult struct {
	Success bool
	Payload json.RawMessage
}

// Solver attempts to pass the challenge on a tab. Invoked at most once per
// dispatch job; implementations should honor ctx between steps.
type Solver interface {
	Solve(ctx context.Context, tab Tab) (SolveResult, error)
}
