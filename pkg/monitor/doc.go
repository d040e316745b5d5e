// Package monitor orchestrates the watch loop over AdsPower profiles.
//
// Discovery polls the local API for running profiles and spawns one
// ProfileMonitor goroutine per profile, registered in a Set so the same
// profile is never watched twice. Each ProfileMonitor attaches to its
// profile's browser once, then alternates liveness checks with tab scans
// until the browser closes or the run is cancelled. The Coordinator ties the
// lifecycle together for graceful shutdown.
//
// The loops carry no sleeps of their own. Every iteration goes through the
// AdsPower client, whose global throttle spaces the API calls and therefore
// paces the loops.
package monitor
