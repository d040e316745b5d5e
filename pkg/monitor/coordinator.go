package monitor

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ev28032024/Guide-RPA-Discord-Login/pkg/logging"
)

// SolveWaiter drains in-flight solve jobs.
type SolveWaiter interface {
	Wait()
}

// APICloser releases the AdsPower client.
type APICloser interface {
	Close()
}

// DriverStopper shuts the browser driver down.
type DriverStopper interface {
	Stop() error
}

// Coordinator owns the shutdown sequence. The first stop request cancels the
// run context; Shutdown then drains monitors and solve jobs before releasing
// the API client and the browser driver.
type Coordinator struct {
	cancel     context.CancelFunc
	set        *Set
	dispatcher SolveWaiter
	client     APICloser
	attacher   DriverStopper
	log        *logging.Logger

	stopping     atomic.Bool
	shutdownOnce sync.Once
}

func NewCoordinator(cancel context.CancelFunc, set *Set, dispatcher SolveWaiter, client APICloser, attacher DriverStopper, log *logging.Logger) *Coordinator {
	return &Coordinator{
		cancel:     cancel,
		set:        set,
		dispatcher: dispatcher,
		client:     client,
		attacher:   attacher,
		log:        log,
	}
}

// RequestStop cancels the run context. Repeat requests are acknowledged but
// change nothing; shutdown stays graceful.
func (c *Coordinator) RequestStop() {
	if c.stopping.CompareAndSwap(false, true) {
		c.log.Infof("shutdown requested, finishing in-flight work")
		c.cancel()
		return
	}
	c.log.Warnf("shutdown already in progress")
}

// Shutdown drains everything and releases held resources. Safe to call more
// than once; only the first call does the work.
func (c *Coordinator) Shutdown() {
	c.shutdownOnce.Do(func() {
		c.stopping.Store(true)
		c.cancel()

		c.set.CancelAll()
		c.set.Wait()
		c.dispatcher.Wait()

		c.client.Close()
		if err := c.attacher.Stop(); err != nil {
			c.log.Warnf("browser driver stop: %v", err)
		}
		c.log.Infof("shutdown complete")
	})
}
