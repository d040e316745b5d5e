package monitor

import (
	"context"
	"strings"

	"github.com/ev28032024/Guide-RPA-Discord-Login/pkg/adspower"
	"github.com/ev28032024/Guide-RPA-Discord-Login/pkg/logging"
)

// DiscoveryAPI is the slice of the AdsPower client discovery needs.
type DiscoveryAPI interface {
	ListActiveProfiles(ctx context.Context) ([]adspower.ActiveProfile, error)
}

// NameDirectory resolves profile ids to display names.
type NameDirectory interface {
	Refresh(ctx context.Context, force bool) error
	ResolveName(ctx context.Context, id string) string
}

// Runner is the per-profile monitor loop discovery spawns.
type Runner interface {
	Run(ctx context.Context, profile Record)
}

// Discovery polls AdsPower for running profiles and keeps exactly one
// monitor goroutine alive per profile.
type Discovery struct {
	api     DiscoveryAPI
	names   NameDirectory
	monitor Runner
	set     *Set
	log     *logging.Logger
}

func NewDiscovery(api DiscoveryAPI, names NameDirectory, monitor Runner, set *Set, log *logging.Logger) *Discovery {
	return &Discovery{api: api, names: names, monitor: monitor, set: set, log: log}
}

// Run loops until ctx is cancelled, spawning monitors for newly seen
// profiles. API failures surface as empty lists from the client, so an
// iteration with nothing running just logs and polls again; the client's
// throttle paces the loop.
func (d *Discovery) Run(ctx context.Context) error {
	d.log.Infof("watching for running AdsPower profiles")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.names.Refresh(ctx, false); err != nil {
			return err
		}

		active, err := d.api.ListActiveProfiles(ctx)
		if err != nil {
			return err
		}

		for _, p := range active {
			endpoint := p.Endpoint()
			if p.UserID == "" || endpoint == "" {
				continue
			}
			if d.set.Contains(p.UserID) {
				continue
			}
			d.spawn(ctx, Record{
				ID:       p.UserID,
				Name:     d.names.ResolveName(ctx, p.UserID),
				Endpoint: endpoint,
			})
		}

		if n := d.set.Len(); n > 0 {
			d.log.Debugf("active profiles: %d [%s]", n, strings.Join(d.set.Names(), ", "))
		} else {
			d.log.Debugf("no running profiles, waiting")
		}
	}
}

func (d *Discovery) spawn(ctx context.Context, profile Record) {
	mctx, cancel := context.WithCancel(ctx)
	if !d.set.Add(profile.ID, profile.Name, cancel) {
		cancel()
		return
	}
	d.log.Infof("[%s] profile is running, starting monitor", profile.Name)

	go func() {
		defer d.set.Remove(profile.ID)
		defer cancel()
		d.monitor.Run(mctx, profile)
	}()
}
