package monitor

import (
	"context"

	"github.com/ev28032024/Guide-RPA-Discord-Login/pkg/adspower"
	"github.com/ev28032024/Guide-RPA-Discord-Login/pkg/browser"
	"github.com/ev28032024/Guide-RPA-Discord-Login/pkg/logging"
	"github.com/ev28032024/Guide-RPA-Discord-Login/pkg/metrics"
)

// Record is everything a monitor needs to know about one running profile.
type Record struct {
	ID       string
	Name     string
	Endpoint string
}

// StatusAPI is the slice of the AdsPower client the profile monitor needs.
type StatusAPI interface {
	ProfileStatus(ctx context.Context, userID string) (adspower.StatusResult, error)
}

// Attacher connects to a profile's running browser.
type Attacher interface {
	Attach(endpoint string) (browser.Session, error)
}

// TabScanner runs one detection pass over an attached session.
type TabScanner interface {
	ScanAndDispatch(ctx context.Context, sess browser.Session, profile browser.ProfileRef)
}

// ProfileMonitor watches one profile's browser for challenges.
type ProfileMonitor struct {
	api      StatusAPI
	attacher Attacher
	scanner  TabScanner
	log      *logging.Logger
	m        *metrics.Metrics
}

func NewProfileMonitor(api StatusAPI, attacher Attacher, scanner TabScanner, log *logging.Logger, m *metrics.Metrics) *ProfileMonitor {
	if m == nil {
		m = metrics.New()
	}
	return &ProfileMonitor{api: api, attacher: attacher, scanner: scanner, log: log, m: m}
}

// Run attaches to the profile's browser and alternates liveness checks with
// tab scans until the browser closes or ctx is cancelled. The attach gets a
// single attempt; a failure ends this run, and the profile becomes eligible
// again on the next discovery pass.
func (pm *ProfileMonitor) Run(ctx context.Context, profile Record) {
	sess, err := pm.attacher.Attach(profile.Endpoint)
	if err != nil {
		pm.log.Errorf("[%s] attach failed: %v", profile.Name, err)
		return
	}
	defer sess.Close()

	pm.m.ActiveMonitors.Inc()
	defer pm.m.ActiveMonitors.Dec()
	pm.log.Infof("[%s] monitoring started", profile.Name)

	ref := browser.ProfileRef{ID: profile.ID, Name: profile.Name}
	for {
		if ctx.Err() != nil {
			pm.log.Infof("[%s] monitoring stopped", profile.Name)
			return
		}

		status, err := pm.api.ProfileStatus(ctx, profile.ID)
		if err != nil {
			pm.log.Infof("[%s] monitoring stopped", profile.Name)
			return
		}
		if !status.Active() {
			pm.log.Infof("[%s] browser closed, monitoring finished", profile.Name)
			return
		}

		pm.scanner.ScanAndDispatch(ctx, sess, ref)
	}
}
