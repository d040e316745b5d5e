package adspower

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	mu       sync.Mutex
	calls    int
	profiles []Profile
	err      error
}

func (f *fakeLister) ListProfiles(ctx context.Context, page, pageSize int) ([]Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.profiles, nil
}

func (f *fakeLister) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeLister) setProfiles(profiles []Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles = profiles
}

func TestDirectoryResolveUsesCacheWithinTTL(t *testing.T) {
	lister := &fakeLister{profiles: []Profile{{UserID: "a", Name: "Alpha"}}}
	dir := NewDirectory(lister, time.Hour, testLogger(t))

	ctx := context.Background()
	assert.Equal(t, "Alpha", dir.ResolveName(ctx, "a"))
	assert.Equal(t, 1, lister.callCount(), "first miss forces one fetch")

	assert.Equal(t, "Alpha", dir.ResolveName(ctx, "a"))
	assert.Equal(t, 1, lister.callCount(), "cache hit must not fetch")
}

func TestDirectoryMissForcesExactlyOneFetch(t *testing.T) {
	lister := &fakeLister{}
	dir := NewDirectory(lister, time.Hour, testLogger(t))

	name := dir.ResolveName(context.Background(), "ghost")
	assert.Equal(t, "Profile_ghost", name)
	assert.Equal(t, 1, lister.callCount())
}

func TestDirectoryRefreshHonorsTTL(t *testing.T) {
	lister := &fakeLister{profiles: []Profile{{UserID: "a", Name: "Alpha"}}}
	dir := NewDirectory(lister, 20*time.Millisecond, testLogger(t))

	ctx := context.Background()
	require.NoError(t, dir.Refresh(ctx, false))
	require.NoError(t, dir.Refresh(ctx, false))
	assert.Equal(t, 1, lister.callCount(), "second refresh inside TTL is a no-op")

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, dir.Refresh(ctx, false))
	assert.Equal(t, 2, lister.callCount(), "expired TTL refreshes again")

	require.NoError(t, dir.Refresh(ctx, true))
	assert.Equal(t, 3, lister.callCount(), "forced refresh ignores TTL")
}

func TestDirectoryKeepsStaleEntries(t *testing.T) {
	lister := &fakeLister{profiles: []Profile{
		{UserID: "a", Name: "Alpha"},
		{UserID: "b", Name: "Beta"},
	}}
	dir := NewDirectory(lister, time.Hour, testLogger(t))

	ctx := context.Background()
	require.NoError(t, dir.Refresh(ctx, true))

	// Profile "a" disappears from the remote list; its cached name stays.
	lister.setProfiles([]Profile{{UserID: "b", Name: "Beta"}})
	require.NoError(t, dir.Refresh(ctx, true))

	calls := lister.callCount()
	assert.Equal(t, "Alpha", dir.ResolveName(ctx, "a"))
	assert.Equal(t, calls, lister.callCount(), "stale entry is still a cache hit")
}

func TestDirectoryResolvePlaceholderOnCancel(t *testing.T) {
	lister := &fakeLister{err: context.Canceled}
	dir := NewDirectory(lister, time.Hour, testLogger(t))

	assert.Equal(t, "Profile_x", dir.ResolveName(context.Background(), "x"))
}

func TestDirectoryRefreshPropagatesCancellation(t *testing.T) {
	lister := &fakeLister{err: context.Canceled}
	dir := NewDirectory(lister, time.Hour, testLogger(t))

	err := dir.Refresh(context.Background(), true)
	assert.ErrorIs(t, err, context.Canceled)
}
