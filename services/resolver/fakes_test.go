package resolver

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"waimai-crawler/lib/chrono"
	"waimai-crawler/lib/citycode"
	"waimai-crawler/lib/platforms/baidumap"
	"waimai-crawler/lib/platforms/meituan"
	"waimai-crawler/lib/retry"
	"waimai-crawler/lib/scrapeerr"
	"waimai-crawler/lib/telemetry"

	"github.com/stretchr/testify/require"
)

type fakeBaidu struct {
	suggestions []string
	locations   map[string]baidumap.Location

	suggestCalls atomic.Int32
	geocodeCalls atomic.Int32
}

func (f *fakeBaidu) Suggest(ctx context.Context, cityId, keyword string, count int) ([]string, error) {
	f.suggestCalls.Add(1)
	if ctx.Err() != nil {
		return nil, scrapeerr.Transport(ctx, "suggest", ctx.Err())
	}
	return f.suggestions, nil
}

func (f *fakeBaidu) Geocode(ctx context.Context, address string) (baidumap.Location, error) {
	f.geocodeCalls.Add(1)
	loc, ok := f.locations[address]
	if !ok {
		return baidumap.Location{}, fmt.Errorf("geocode %q: %w", address, scrapeerr.ErrGeocode)
	}
	return loc, nil
}

type fakePlatform struct {
	// geohashes maps an address to its hash, addresses not in the map are
	// always rate limited. failFirst withholds the first n answers.
	geohashes map[string]string
	failFirst int
	// search maps a geohash to its search page, blocked geohashes answer
	// with an error status.
	search  map[string][]meituan.SearchEntry
	blocked map[string]bool
	menus   map[string][]meituan.MenuItem

	mu           sync.Mutex
	geohashCalls int
}

func (f *fakePlatform) GeoHash(ctx context.Context, lat, lng float64, address string) (string, error) {
	if ctx.Err() != nil {
		return "", scrapeerr.Transport(ctx, "geohash", ctx.Err())
	}
	f.mu.Lock()
	f.geohashCalls++
	call := f.geohashCalls
	f.mu.Unlock()

	hash, ok := f.geohashes[address]
	if !ok || call <= f.failFirst {
		return "", fmt.Errorf("geohash %q: %w", address, scrapeerr.ErrRateLimited)
	}
	return hash, nil
}

func (f *fakePlatform) Search(ctx context.Context, geohash, keyword string) ([]meituan.SearchEntry, error) {
	if f.blocked[geohash] {
		return nil, fmt.Errorf("search %s: %w: status 403 Forbidden", geohash, scrapeerr.ErrTransport)
	}
	return f.search[geohash], nil
}

func (f *fakePlatform) Menu(ctx context.Context, storefrontUrl string) ([]meituan.MenuItem, error) {
	items, ok := f.menus[storefrontUrl]
	if !ok {
		return nil, fmt.Errorf("menu: %w: status 404", scrapeerr.ErrTransport)
	}
	return items, nil
}

func (f *fakePlatform) StorefrontUrl(path string) (string, error) {
	return "http://waimai.meituan.com" + path, nil
}

func (f *fakePlatform) RestaurantUrl(id string) string {
	return "http://waimai.meituan.com/restaurant/" + id
}

func testCities(t *testing.T) citycode.Table {
	table, err := citycode.Parse(strings.NewReader("315,南京市\n224,苏州市\n179,杭州市\n"))
	require.NoError(t, err)
	return table
}

func testPolicy(sleeper *chrono.FakeSleeper) retry.Policy {
	return retry.Policy{
		MaxAttempts: 5,
		MinWait:     3 * time.Second,
		MaxWait:     4 * time.Second,
		Sleeper:     sleeper,
	}
}

func newTestPipeline(t *testing.T, baidu Baidu, platform Platform, opts Options) (*Pipeline, *telemetry.Recorder) {
	rec := &telemetry.Recorder{}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = testPolicy(&chrono.FakeSleeper{})
	}
	return NewPipeline(testCities(t), baidu, platform, opts, rec), rec
}
