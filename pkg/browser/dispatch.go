package browser

import (
	"context"
	"errors"
	"sync"

	"github.com/ev28032024/Guide-RPA-Discord-Login/pkg/logging"
	"github.com/ev28032024/Guide-RPA-Discord-Login/pkg/metrics"
)

// Dispatcher runs detection passes over live sessions and spawns at most one
// asynchronous solve job per tab, guarded by the tab's identity lock.
type Dispatcher struct {
	detector *Detector
	locks    *TabLocks
	solver   Solver

	maxPayloadChars int

	log *logging.Logger
	m   *metrics.Metrics

	jobs sync.WaitGroup
}

// NewDispatcher wires a dispatcher. A nil metrics instance gets a private
// registry so callers in tests need not provide one.
func NewDispatcher(detector *Detector, locks *TabLocks, solver Solver, maxPayloadChars int, log *logging.Logger, m *metrics.Metrics) *Dispatcher {
	if m == nil {
		m = metrics.New()
	}
	return &Dispatcher{
		detector:        detector,
		locks:           locks,
		solver:          solver,
		maxPayloadChars: maxPayloadChars,
		log:             log,
		m:               m,
	}
}

// ScanAndDispatch walks every tab of every browsing context in sess and
// starts a solve job for each tab that shows a challenge and has no solve
// already running. Per-tab failures never abort the pass. Returns once the
// scan is complete; solve jobs keep running in the background.
func (d *Dispatcher) ScanAndDispatch(ctx context.Context, sess Session, profile ProfileRef) {
	for _, bc := range sess.Contexts() {
		for _, tab := range bc.Tabs() {
			if ctx.Err() != nil {
				return
			}
			d.scanTab(ctx, tab, profile)
		}
	}
}

// Wait blocks until every in-flight solve job has finished.
func (d *Dispatcher) Wait() {
	d.jobs.Wait()
}

func (d *Dispatcher) scanTab(ctx context.Context, tab Tab, profile ProfileRef) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Warnf("[%s] tab scan panicked: %v", profile.Name, r)
		}
	}()

	if tab.IsClosed() {
		return
	}
	if !d.detector.HasChallenge(tab) {
		return
	}

	d.m.Detections.Inc()
	d.log.Infof("[%s] hCaptcha found: %s", profile.Name, logging.ShortURL(tab.URL()))

	token := tab.Identity()
	if !d.locks.TryAcquire(token) {
		d.m.SolveSkipped.Inc()
		d.log.Debugf("[%s] solve already in flight for tab %s", profile.Name, token)
		return
	}

	d.jobs.Add(1)
	go d.runSolve(ctx, tab, profile, token)
}

func (d *Dispatcher) runSolve(ctx context.Context, tab Tab, profile ProfileRef, token string) {
	defer d.jobs.Done()
	defer d.locks.Release(token)
	defer func() {
		if r := recover(); r != nil {
			d.m.SolveFailure.Inc()
			d.log.Errorf("[%s] solver panicked: %v", profile.Name, r)
		}
	}()

	d.m.SolveStarted.Inc()
	d.log.Infof("[%s] solving hCaptcha on %s", profile.Name, logging.ShortURL(tab.URL()))

	result, err := d.solver.Solve(ctx, tab)
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		d.log.Infof("[%s] solve cancelled", profile.Name)
	case err != nil:
		d.m.SolveFailure.Inc()
		d.log.Errorf("[%s] solve failed: %v", profile.Name, err)
	case !result.Success:
		d.m.SolveFailure.Inc()
		d.log.Warnf("[%s] solver finished without a result", profile.Name)
	default:
		d.m.SolveSuccess.Inc()
		d.log.Infof("[%s] captcha solved: %s", profile.Name, logging.SafeJSON(result.Payload, d.maxPayloadChars))
	}
}
