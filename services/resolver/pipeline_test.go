package resolver

import (
	"context"
	"testing"
	"time"
	"waimai-crawler/lib/chrono"
	"waimai-crawler/lib/citycode"
	"waimai-crawler/lib/kvcache"
	"waimai-crawler/lib/platforms/baidumap"
	"waimai-crawler/lib/platforms/meituan"

	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2017, 3, 2, 15, 4, 5, 0, time.UTC)

func nanjingFixture() (*fakeBaidu, *fakePlatform) {
	baidu := &fakeBaidu{
		suggestions: []string{
			"南京市$玄武区$$鸭血粉丝(珠江路店)",
			"南京市$鼓楼区$$鸭血粉丝(湖南路店)",
			"南京市$秦淮区$$鸭血粉丝(夫子庙店)",
			"南京市$江宁区$$鸭血粉丝(东山店)",
			"苏州市$$鸭血粉丝",
		},
		locations: map[string]baidumap.Location{
			"南京市$玄武区$$鸭血粉丝(珠江路店)": {Lat: 32.05, Lng: 118.79},
			"南京市$鼓楼区$$鸭血粉丝(湖南路店)": {Lat: 32.07, Lng: 118.78},
			"南京市$秦淮区$$鸭血粉丝(夫子庙店)": {Lat: 32.02, Lng: 118.79},
		},
	}
	platform := &fakePlatform{
		geohashes: map[string]string{
			"南京市$玄武区$$鸭血粉丝(珠江路店)": "g1",
			"南京市$鼓楼区$$鸭血粉丝(湖南路店)": "g2",
		},
		search: map[string][]meituan.SearchEntry{
			"g1": {
				{Name: "鸭血粉丝(珠江路店)", Path: "/restaurant/1"},
				{Name: "鸭血粉丝(浮桥店)", Path: "/restaurant/2"},
			},
			// overlapping delivery areas list the same storefront
			"g2": {{Name: "鸭血粉丝(珠江路店)", Path: "/restaurant/1"}},
		},
		menus: map[string][]meituan.MenuItem{
			"http://waimai.meituan.com/restaurant/1": {{Id: "101", Name: "鸭血粉丝汤"}},
			"http://waimai.meituan.com/restaurant/2": {{Id: "201", Name: "小笼包"}, {Id: "202", Name: "锅贴"}},
		},
	}
	return baidu, platform
}

func TestRun(t *testing.T) {
	baidu, platform := nanjingFixture()
	for _, workers := range []int{1, 4} {
		pipeline, rec := newTestPipeline(t, baidu, platform, Options{
			Workers: workers,
			Clock:   chrono.FixedClock{Time: testTime},
		})

		result, err := pipeline.Run(context.Background(), "南京", "鸭血粉丝")
		require.NoError(t, err)
		require.Equal(t, citycode.CityRef{Id: "315", Name: "南京市"}, result.City)
		require.Equal(t, "2017-03-02_15-04-05_南京_鸭血粉丝.xlsx", result.Filename)

		require.Len(t, result.Storefronts, 1)
		storefront := result.Storefronts[0]
		require.Equal(t, "南京市$玄武区$$鸭血粉丝(珠江路店)", storefront.Address)
		require.Equal(t, "g1", storefront.GeoHash)
		require.Equal(t, []string{
			"http://waimai.meituan.com/restaurant/1",
			"http://waimai.meituan.com/restaurant/2",
		}, storefront.Urls)

		require.Len(t, result.Menus, 2)
		require.Equal(t, "南京市玄武区鸭血粉丝(珠江路店)", result.Menus[0].Key)
		require.Len(t, result.Menus[0].Items, 1)
		require.Equal(t, "南京市玄武区鸭血粉丝(珠江路店)_1", result.Menus[1].Key)
		require.Len(t, result.Menus[1].Items, 2)

		// 东山店 has no coordinates, 夫子庙店 never gets a geohash
		require.Equal(t, 1, rec.Count("warning", report_resolve_coordinates))
		require.Equal(t, 1, rec.Count("warning", report_resolve_geohash))
	}
}

func TestRunCachesLookups(t *testing.T) {
	baidu, platform := nanjingFixture()
	pipeline, _ := newTestPipeline(t, baidu, platform, Options{
		Cache: kvcache.NewMemory(64, time.Minute),
	})

	for i := 0; i < 2; i++ {
		_, err := pipeline.Run(context.Background(), "南京", "鸭血粉丝")
		require.NoError(t, err)
	}
	require.EqualValues(t, 1, baidu.suggestCalls.Load())
	// failed geocodes are not cached
	require.EqualValues(t, 5, baidu.geocodeCalls.Load())
}

func TestRunUnknownCity(t *testing.T) {
	baidu, platform := nanjingFixture()
	pipeline, _ := newTestPipeline(t, baidu, platform, Options{})

	_, err := pipeline.Run(context.Background(), "上海", "鸭血粉丝")
	require.ErrorIs(t, err, citycode.ErrCityNotFound)
}

func TestRunNoStorefronts(t *testing.T) {
	pipeline, _ := newTestPipeline(t, &fakeBaidu{}, &fakePlatform{}, Options{})

	result, err := pipeline.Run(context.Background(), "南京", "鸭血粉丝")
	require.NoError(t, err)
	require.True(t, result.Empty())
	require.Empty(t, result.Menus)
}

func TestRunStorefronts(t *testing.T) {
	_, platform := nanjingFixture()
	pipeline, rec := newTestPipeline(t, &fakeBaidu{}, platform, Options{
		Clock: chrono.FixedClock{Time: testTime},
	})

	result, err := pipeline.RunStorefronts(context.Background(), "鸭血粉丝", []string{"2", "1", "2", "9"})
	require.NoError(t, err)
	require.Equal(t, "2017-03-02_15-04-05_鸭血粉丝.xlsx", result.Filename)
	require.Len(t, result.Storefronts, 3)
	require.Len(t, result.Menus, 3)
	require.Len(t, result.Menus[0].Items, 2)
	require.Len(t, result.Menus[1].Items, 1)
	require.Empty(t, result.Menus[2].Items)
	require.Equal(t, 1, rec.Count("warning", report_scrape_menu))
}

func TestRunCancelled(t *testing.T) {
	baidu, platform := nanjingFixture()
	pipeline, _ := newTestPipeline(t, baidu, platform, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := pipeline.Run(ctx, "南京", "鸭血粉丝")
	require.Error(t, err)
}

func TestResolveSkipsMenus(t *testing.T) {
	baidu, platform := nanjingFixture()
	platform.menus = nil
	pipeline, rec := newTestPipeline(t, baidu, platform, Options{})

	result, err := pipeline.Resolve(context.Background(), "南京", "鸭血粉丝")
	require.NoError(t, err)
	require.Len(t, result.Storefronts, 1)
	require.Empty(t, result.Menus)
	require.Equal(t, 0, rec.Count("warning", report_scrape_menu))
}
