package browser

import (
	"strings"
	"time"

	"github.com/ev28032024/Guide-RPA-Discord-Login/pkg/logging"
)

// DefaultProbeTimeout bounds the per-frame visibility wait.
const DefaultProbeTimeout = 800 * time.Millisecond

// Detector decides whether a tab currently shows an hCaptcha widget.
// Detection is two-phase: filter the tab's frames by the provider marker in
// the frame URL, then probe each candidate for a visible checkbox element.
type Detector struct {
	marker       string
	selector     string
	probeTimeout time.Duration
	log          *logging.Logger
}

// NewDetector creates a detector with the stock marker and checkbox selector.
func NewDetector(probeTimeout time.Duration, log *logging.Logger) *Detector {
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}
	return &Detector{
		marker:       ChallengeMarker,
		selector:     CheckboxSelector,
		probeTimeout: probeTimeout,
		log:          log,
	}
}

// HasChallenge reports whether tab has a visible hCaptcha checkbox in any of
// its frames. Probe failures on individual frames are logged at debug level
// and never abort the scan.
func (d *Detector) HasChallenge(tab Tab) bool {
	for _, frame := range tab.Frames() {
		if !strings.Contains(frame.URL(), d.marker) {
			continue
		}
		visible, err := frame.ProbeVisible(d.selector, d.probeTimeout)
		if err != nil {
			d.log.Debugf("checkbox probe failed on %s: %v", logging.ShortURL(frame.URL()), err)
			continue
		}
		if visible {
			return true
		}
	}
	return false
}
