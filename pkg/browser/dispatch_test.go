package browser

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ev28032024/Guide-RPA-Discord-Login/pkg/logging"
	"github.com/ev28032024/Guide-RPA-Discord-Login/pkg/metrics"
)

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	sink, err := logging.NewSink(logging.Options{Level: logging.LevelError, Writer: io.Discard})
	require.NoError(t, err)
	return sink.Logger("test")
}

type fakeFrame struct {
	url      string
	visible  bool
	probeErr error
}

func (f *fakeFrame) URL() string { return f.url }

func (f *fakeFrame) ProbeVisible(selector string, timeout time.Duration) (bool, error) {
	if f.probeErr != nil {
		return false, f.probeErr
	}
	return f.visible, nil
}

func (f *fakeFrame) Click(selector string, timeout time.Duration) error { return nil }

type fakeTab struct {
	url    string
	token  string
	closed bool
	frames []Frame
}

func (t *fakeTab) URL() string      { return t.url }
func (t *fakeTab) IsClosed() bool   { return t.closed }
func (t *fakeTab) Frames() []Frame  { return t.frames }
func (t *fakeTab) Identity() string { return t.token }

type fakeContext struct {
	tabs []Tab
}

func (c *fakeContext) Tabs() []Tab { return c.tabs }

type fakeSession struct {
	contexts []BrowsingContext
}

func (s *fakeSession) Contexts() []BrowsingContext { return s.contexts }
func (s *fakeSession) Close() error                { return nil }

type fakeSolver struct {
	mu     sync.Mutex
	calls  int
	block  chan struct{}
	result SolveResult
	err    error
	panics bool
}

func (s *fakeSolver) Solve(ctx context.Context, tab Tab) (SolveResult, error) {
	s.mu.Lock()
	s.calls++
	block := s.block
	s.mu.Unlock()

	if s.panics {
		panic("solver exploded")
	}
	if block != nil {
		<-block
	}
	return s.result, s.err
}

func (s *fakeSolver) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func challengeTab(token string, visible bool) *fakeTab {
	return &fakeTab{
		url:   "https://example.com/login",
		token: token,
		frames: []Frame{
			&fakeFrame{url: "https://example.com/login", visible: false},
			&fakeFrame{url: "https://newassets.hcaptcha.com/captcha/v1/frame", visible: visible},
		},
	}
}

func sessionOf(tabs ...Tab) *fakeSession {
	return &fakeSession{contexts: []BrowsingContext{&fakeContext{tabs: tabs}}}
}

func newTestDispatcher(t *testing.T, solver Solver, m *metrics.Metrics) (*Dispatcher, *TabLocks) {
	t.Helper()
	locks := NewTabLocks()
	detector := NewDetector(time.Millisecond, testLogger(t))
	return NewDispatcher(detector, locks, solver, 800, testLogger(t), m), locks
}

func TestDispatchVisibleChallenge(t *testing.T) {
	solver := &fakeSolver{result: SolveResult{Success: true, Payload: json.RawMessage(`{"checked":true}`)}}
	m := metrics.New()
	d, locks := newTestDispatcher(t, solver, m)

	d.ScanAndDispatch(context.Background(), sessionOf(challengeTab("t1", true)), ProfileRef{ID: "u1", Name: "Main"})
	d.Wait()

	assert.Equal(t, 1, solver.callCount())
	assert.False(t, locks.Held("t1"), "lock released after the job")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Detections))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SolveSuccess))
}

func TestDispatchSkipsWithoutVisibleCheckbox(t *testing.T) {
	tests := []struct {
		name string
		tab  *fakeTab
	}{
		{name: "marker frame with hidden checkbox", tab: challengeTab("t1", false)},
		{name: "no marker frame", tab: &fakeTab{
			url:    "https://example.com",
			token:  "t2",
			frames: []Frame{&fakeFrame{url: "https://example.com", visible: true}},
		}},
		{name: "closed tab", tab: func() *fakeTab {
			tab := challengeTab("t3", true)
			tab.closed = true
			return tab
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			solver := &fakeSolver{}
			d, _ := newTestDispatcher(t, solver, nil)

			d.ScanAndDispatch(context.Background(), sessionOf(tt.tab), ProfileRef{Name: "Main"})
			d.Wait()

			assert.Equal(t, 0, solver.callCount())
		})
	}
}

func TestDispatchSkipsTabWithSolveInFlight(t *testing.T) {
	block := make(chan struct{})
	solver := &fakeSolver{block: block, result: SolveResult{Success: true}}
	m := metrics.New()
	d, locks := newTestDispatcher(t, solver, m)

	tab := challengeTab("t1", true)
	profile := ProfileRef{Name: "Main"}

	d.ScanAndDispatch(context.Background(), sessionOf(tab), profile)
	require.Eventually(t, func() bool { return locks.Held("t1") }, time.Second, time.Millisecond)

	// Second pass while the first solve is still running.
	d.ScanAndDispatch(context.Background(), sessionOf(tab), profile)
	assert.Equal(t, 1, solver.callCount())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SolveSkipped))

	close(block)
	d.Wait()

	// The tab becomes eligible again once the job finishes.
	d.ScanAndDispatch(context.Background(), sessionOf(tab), profile)
	d.Wait()
	assert.Equal(t, 2, solver.callCount())
}

func TestDispatchRunsDistinctTabsConcurrently(t *testing.T) {
	block := make(chan struct{})
	solver := &fakeSolver{block: block, result: SolveResult{Success: true}}
	d, locks := newTestDispatcher(t, solver, nil)

	sess := sessionOf(challengeTab("t1", true), challengeTab("t2", true))
	d.ScanAndDispatch(context.Background(), sess, ProfileRef{Name: "Main"})

	require.Eventually(t, func() bool {
		return locks.Held("t1") && locks.Held("t2")
	}, time.Second, time.Millisecond, "both solves run at once")
	assert.Equal(t, 2, solver.callCount())

	close(block)
	d.Wait()
}

func TestDispatchReleasesLockOnSolverError(t *testing.T) {
	solver := &fakeSolver{err: errors.New("click failed")}
	m := metrics.New()
	d, locks := newTestDispatcher(t, solver, m)

	d.ScanAndDispatch(context.Background(), sessionOf(challengeTab("t1", true)), ProfileRef{Name: "Main"})
	d.Wait()

	assert.False(t, locks.Held("t1"))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SolveFailure))
}

func TestDispatchReleasesLockOnSolverPanic(t *testing.T) {
	solver := &fakeSolver{panics: true}
	m := metrics.New()
	d, locks := newTestDispatcher(t, solver, m)

	d.ScanAndDispatch(context.Background(), sessionOf(challengeTab("t1", true)), ProfileRef{Name: "Main"})
	d.Wait()

	assert.False(t, locks.Held("t1"))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SolveFailure))
}

func TestDispatchFrameProbeErrorDoesNotAbortScan(t *testing.T) {
	broken := &fakeTab{
		url:   "https://example.com/a",
		token: "t1",
		frames: []Frame{
			&fakeFrame{url: "https://newassets.hcaptcha.com/frame", probeErr: errors.New("frame detached")},
		},
	}
	solver := &fakeSolver{result: SolveResult{Success: true}}
	d, _ := newTestDispatcher(t, solver, nil)

	d.ScanAndDispatch(context.Background(), sessionOf(broken, challengeTab("t2", true)), ProfileRef{Name: "Main"})
	d.Wait()

	assert.Equal(t, 1, solver.callCount(), "healthy tab still dispatched")
}

func TestDispatchStopsOnCancelledContext(t *testing.T) {
	solver := &fakeSolver{}
	d, _ := newTestDispatcher(t, solver, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d.ScanAndDispatch(ctx, sessionOf(challengeTab("t1", true)), ProfileRef{Name: "Main"})
	d.Wait()

	assert.Equal(t, 0, solver.callCount())
}

func TestDetectorUnsuccessfulResultCountsAsFailure(t *testing.T) {
	solver := &fakeSolver{result: SolveResult{Success: false}}
	m := metrics.New()
	d, _ := newTestDispatcher(t, solver, m)

	d.ScanAndDispatch(context.Background(), sessionOf(challengeTab("t1", true)), ProfileRef{Name: "Main"})
	d.Wait()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.SolveFailure))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.SolveSuccess))
}
