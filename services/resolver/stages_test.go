package resolver

import (
	"context"
	"testing"
	"time"
	"waimai-crawler/lib/chrono"
	"waimai-crawler/lib/platforms/baidumap"
	"waimai-crawler/lib/platforms/meituan"
	"waimai-crawler/lib/scrapeerr"

	"github.com/stretchr/testify/require"
)

func TestResolveAddresses(t *testing.T) {
	baidu := &fakeBaidu{suggestions: []string{
		"南京市$玄武区$$鸭血粉丝(珠江路店)",
		"苏州市$$鸭血粉丝",
		"南京市$鼓楼区$$老王面馆",
	}}
	pipeline, _ := newTestPipeline(t, baidu, &fakePlatform{}, Options{})

	city, err := pipeline.cities.Lookup("南京")
	require.NoError(t, err)
	require.Equal(t, "315", city.Id)

	out, err := pipeline.ResolveAddresses(context.Background(), city, "鸭血粉丝")
	require.NoError(t, err)
	require.Equal(t, []string{"南京市$玄武区$$鸭血粉丝(珠江路店)"}, out)
}

func TestResolveAddressesEmpty(t *testing.T) {
	pipeline, _ := newTestPipeline(t, &fakeBaidu{}, &fakePlatform{}, Options{})
	city, err := pipeline.cities.Lookup("杭州")
	require.NoError(t, err)

	out, err := pipeline.ResolveAddresses(context.Background(), city, "鸭血粉丝")
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestResolveCoordinates(t *testing.T) {
	baidu := &fakeBaidu{locations: map[string]baidumap.Location{
		"a": {Lat: 32.05, Lng: 118.79},
	}}
	pipeline, _ := newTestPipeline(t, baidu, &fakePlatform{}, Options{})

	lat, lng, err := pipeline.ResolveCoordinates(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, 32.05, lat)
	require.Equal(t, 118.79, lng)

	_, _, err = pipeline.ResolveCoordinates(context.Background(), "b")
	require.ErrorIs(t, err, scrapeerr.ErrGeocode)
}

func TestResolveGeoHashExhausted(t *testing.T) {
	sleeper := &chrono.FakeSleeper{}
	platform := &fakePlatform{}
	pipeline, rec := newTestPipeline(t, &fakeBaidu{}, platform, Options{Retry: testPolicy(sleeper)})

	c := &Candidate{Name: "鸭血粉丝", Address: "南京市$$鸭血粉丝"}
	hash, err := pipeline.ResolveGeoHash(context.Background(), c)
	require.NoError(t, err)
	require.Empty(t, hash)
	require.Empty(t, c.GeoHash)

	require.Equal(t, 5, platform.geohashCalls)
	require.Len(t, sleeper.Slept, 4)
	for _, d := range sleeper.Slept {
		require.GreaterOrEqual(t, d, 3*time.Second)
		require.LessOrEqual(t, d, 4*time.Second)
	}
	require.Equal(t, 1, rec.Count("warning", report_resolve_geohash))
}

func TestResolveGeoHashRecovers(t *testing.T) {
	sleeper := &chrono.FakeSleeper{}
	platform := &fakePlatform{
		geohashes: map[string]string{"a": "wtsqq"},
		failFirst: 2,
	}
	pipeline, rec := newTestPipeline(t, &fakeBaidu{}, platform, Options{Retry: testPolicy(sleeper)})

	c := &Candidate{Name: "x", Address: "a"}
	hash, err := pipeline.ResolveGeoHash(context.Background(), c)
	require.NoError(t, err)
	require.Equal(t, "wtsqq", hash)
	require.Equal(t, "wtsqq", c.GeoHash)
	require.Equal(t, 3, platform.geohashCalls)
	require.Len(t, sleeper.Slept, 2)
	require.Equal(t, 0, rec.Count("warning", report_resolve_geohash))
}

func TestResolveGeoHashCancelled(t *testing.T) {
	platform := &fakePlatform{}
	pipeline, _ := newTestPipeline(t, &fakeBaidu{}, platform, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := pipeline.ResolveGeoHash(ctx, &Candidate{Address: "a"})
	require.ErrorIs(t, err, scrapeerr.ErrCancelled)
	require.Equal(t, 0, platform.geohashCalls)
}

func TestMatchStorefront(t *testing.T) {
	platform := &fakePlatform{search: map[string][]meituan.SearchEntry{
		"g1": {
			{Name: "鸭血粉丝(珠江路店)", Path: "/restaurant/1", SaleCount: "月售100单", StartPrice: "起送:¥20"},
			{Name: "老鸭粉丝汤", Path: "/restaurant/2"},
			{Name: "鸭血粉丝(新街口店)"},
		},
		"g2": {
			{Name: "鸭血粉丝汤", Path: "/restaurant/3"},
			{Name: "老王面馆", Path: "/restaurant/4"},
		},
	}}
	pipeline, rec := newTestPipeline(t, &fakeBaidu{}, platform, Options{})
	ctx := context.Background()

	c := &Candidate{Name: "鸭血粉丝", Address: "a", GeoHash: "g1"}
	require.NoError(t, pipeline.MatchStorefront(ctx, c))
	require.Equal(t, []string{"http://waimai.meituan.com/restaurant/1"}, c.Urls)
	require.Equal(t, "月售100单", *c.Stats.SaleCount)
	require.Equal(t, "起送:¥20", *c.Stats.StartPrice)
	require.Nil(t, c.Stats.DeliveryFee)
	require.Equal(t, 0, rec.Count("warning", report_match_storefront))

	// no result contains the brand
	c = &Candidate{Name: "鸭血粉丝", Address: "b", GeoHash: "g3"}
	require.NoError(t, pipeline.MatchStorefront(ctx, c))
	require.Empty(t, c.Urls)
	require.Equal(t, 1, rec.Count("warning", report_match_storefront))

	// a candidate without geohash is never searched
	c = &Candidate{Name: "鸭血粉丝", Address: "c"}
	require.NoError(t, pipeline.MatchStorefront(ctx, c))
	require.Empty(t, c.Urls)
}

func TestMatchStorefrontNeverAcceptsNonContaining(t *testing.T) {
	entries := []meituan.SearchEntry{
		{Name: "鸭血粉", Path: "/restaurant/1"},
		{Name: "鸭 血粉丝", Path: "/restaurant/2"},
		{Name: "Duck", Path: "/restaurant/3"},
		{Name: "", Path: "/restaurant/4"},
	}
	platform := &fakePlatform{search: map[string][]meituan.SearchEntry{"g": entries}}
	pipeline, rec := newTestPipeline(t, &fakeBaidu{}, platform, Options{})

	c := &Candidate{Name: "鸭血粉丝", Address: "a", GeoHash: "g"}
	require.NoError(t, pipeline.MatchStorefront(context.Background(), c))
	require.Empty(t, c.Urls)

	reports := rec.Reports()
	require.NotEmpty(t, reports)
	last := reports[len(reports)-1]
	require.Equal(t, "warning", last.Level)
	require.Contains(t, last.Params, "closest")
}

func TestMatchStorefrontBlocked(t *testing.T) {
	platform := &fakePlatform{blocked: map[string]bool{"g": true}}
	pipeline, rec := newTestPipeline(t, &fakeBaidu{}, platform, Options{})

	c := &Candidate{Name: "鸭血粉丝", Address: "a", GeoHash: "g"}
	err := pipeline.MatchStorefront(context.Background(), c)
	require.ErrorIs(t, err, scrapeerr.ErrTransport)
	require.Empty(t, c.Urls)
	// an error status is not reported as a brand missing from the results
	require.Equal(t, 0, rec.Count("warning", report_match_storefront))
}
