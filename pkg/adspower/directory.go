package adspower

import (
	"context"
	"sync"
	"time"

	"github.com/ev28032024/Guide-RPA-Discord-Login/pkg/logging"
)

// directoryPageSize is the page size used when refreshing the profile list.
const directoryPageSize = 100

// ProfileLister is the slice of the API the Directory depends on.
type ProfileLister interface {
	ListProfiles(ctx context.Context, page, pageSize int) ([]Profile, error)
}

// Directory caches profile display names with a single process-wide TTL.
// The cache is refreshed wholesale from the full profile list; entries that
// vanish from the remote list are kept, an accepted trade-off that favors
// stable names over strict consistency.
type Directory struct {
	client ProfileLister
	ttl    time.Duration
	log    *logging.Logger

	mu            sync.Mutex
	names         map[string]string
	lastRefreshed time.Time
}

// NewDirectory creates a directory over the given client.
func NewDirectory(client ProfileLister, ttl time.Duration, log *logging.Logger) *Directory {
	return &Directory{
		client: client,
		ttl:    ttl,
		log:    log,
		names:  make(map[string]string),
	}
}

// Refresh reloads the cache from the API. Unless force is set, the call is a
// no-op while the cache is within its TTL. The error is non-nil only on
// cancellation; an API failure leaves the cache as-is but still counts as a
// refresh, so a flapping API is not hammered.
func (d *Directory) Refresh(ctx context.Context, force bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !force && time.Since(d.lastRefreshed) < d.ttl {
		return nil
	}

	profiles, err := d.client.ListProfiles(ctx, 1, directoryPageSize)
	if err != nil {
		return err
	}

	for _, p := range profiles {
		if p.UserID == "" {
			continue
		}
		d.names[p.UserID] = p.DisplayName()
	}
	d.lastRefreshed = time.Now()
	d.log.Debugf("profile cache refreshed: %d entries", len(d.names))
	return nil
}

// ResolveName returns the display name for a profile id. A miss forces one
// synchronous refresh; if the id is still unknown a placeholder name is
// synthesized.
func (d *Directory) ResolveName(ctx context.Context, id string) string {
	d.mu.Lock()
	name, ok := d.names[id]
	d.mu.Unlock()
	if ok {
		return name
	}

	if err := d.Refresh(ctx, true); err != nil {
		return "Profile_" + id
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if name, ok := d.names[id]; ok {
		return name
	}
	return "Profile_" + id
}
