// Package browser attaches to live Chromium sessions and scans their tabs
// for the hCaptcha widget.
//
// The package is built around four core concepts:
//
// 1. Session: a handle to one profile's already-running browser, reached
// over CDP. A session exposes browsing contexts, their tabs, and each tab's
// frames. The concrete implementation wraps Playwright; the interfaces exist
// so the scanning logic can be exercised against fakes.
//
// 2. Detector: decides whether a tab currently shows an hCaptcha widget by
// filtering frames on the provider marker and probing for a visible
// checkbox element with a short bounded wait.
//
// 3. TabLocks: per-tab mutual exclusion keyed by a durable identity token.
// A held lock means a solve is already in flight for that tab, and further
// dispatches are skipped rather than queued.
//
// 4. Dispatcher: runs one detection pass over a session and spawns at most
// one asynchronous solve job per tab, guarded by the tab's lock.
//
// Each tab carries a durable identity token stashed inside its own
// execution context, so the token survives navigation within the tab's
// lifetime and regenerates after a reload.
package browser
