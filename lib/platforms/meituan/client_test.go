package meituan

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"waimai-crawler/lib/scrapeerr"
	"waimai-crawler/lib/telemetry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchPage = `<ul>
<li class="rest-list">
  <a href="/restaurant/144833350729852647">
    <p class="name">
      鸭血粉丝(珠江路店)
    </p>
  </a>
  <span class="total">月售1234单</span>
  <span class="start-price">起送:¥20</span>
  <span class="send-price">配送费:¥5</span>
  <p class="sned-time">45分钟</p>
</li>
<li class="rest-list">
  <a href="/restaurant/2"><p class="name">老鸭粉丝汤</p></a>
</li>
</ul>`

func newTestServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/geo/geohash", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "m", q.Get("from"))
		assert.Equal(t, "32.05", q.Get("lat"))
		assert.Equal(t, "118.79", q.Get("lng"))
		if q.Get("addr") == "limited" {
			w.WriteHeader(http.StatusOK)
			return
		}
		if q.Get("addr") == "redirect" {
			http.SetCookie(w, &http.Cookie{Name: geoHashCookie, Value: "wtsqqbbb"})
			http.Redirect(w, r, "/home", http.StatusFound)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: geoHashCookie, Value: "wtsqqabc"})
	})
	mux.HandleFunc("/home", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/search/wtsqqabc/rt", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "鸭血粉丝", r.URL.Query().Get("keyword"))
		fmt.Fprint(w, searchPage)
	})
	mux.HandleFunc("/restaurant/101", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, menuPage)
	})
	mux.HandleFunc("/restaurant/403", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	})
	mux.HandleFunc("/search/blocked/rt", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	})
	mux.HandleFunc("/search/broken/rt", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream", http.StatusBadGateway)
	})
	return httptest.NewServer(mux)
}

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	client, err := NewClient(Options{
		BaseUrl: server.URL,
		Timeout: 5 * time.Second,
	}, &telemetry.Recorder{})
	require.NoError(t, err)
	return client
}

func TestGeoHash(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()
	client := newTestClient(t, server)
	ctx := context.Background()

	hash, err := client.GeoHash(ctx, 32.05, 118.79, "南京市$玄武区$$鸭血粉丝")
	require.NoError(t, err)
	require.Equal(t, "wtsqqabc", hash)

	hash, err = client.GeoHash(ctx, 32.05, 118.79, "redirect")
	require.NoError(t, err)
	require.Equal(t, "wtsqqbbb", hash)

	_, err = client.GeoHash(ctx, 32.05, 118.79, "limited")
	require.ErrorIs(t, err, scrapeerr.ErrRateLimited)
}

func TestSearch(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()
	client := newTestClient(t, server)

	entries, err := client.Search(context.Background(), "wtsqqabc", "鸭血粉丝")
	require.NoError(t, err)
	require.Equal(t, []SearchEntry{
		{
			Name:         "鸭血粉丝(珠江路店)",
			Path:         "/restaurant/144833350729852647",
			SaleCount:    "月售1234单",
			StartPrice:   "起送:¥20",
			DeliveryFee:  "配送费:¥5",
			DeliveryTime: "45分钟",
		},
		{Name: "老鸭粉丝汤", Path: "/restaurant/2"},
	}, entries)
}

func TestSearchErrorStatus(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()
	client := newTestClient(t, server)

	for _, geohash := range []string{"blocked", "broken"} {
		entries, err := client.Search(context.Background(), geohash, "鸭血粉丝")
		require.ErrorIs(t, err, scrapeerr.ErrTransport, geohash)
		require.True(t, scrapeerr.Recoverable(err))
		require.Empty(t, entries)
	}
}

func TestMenu(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()
	client := newTestClient(t, server)

	items, err := client.Menu(context.Background(), client.RestaurantUrl("101"))
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "鸭血粉丝汤", items[0].Name)
}

func TestMenuErrorStatus(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()
	client := newTestClient(t, server)

	items, err := client.Menu(context.Background(), client.RestaurantUrl("403"))
	require.ErrorIs(t, err, scrapeerr.ErrTransport)
	require.Contains(t, err.Error(), "403")
	require.Nil(t, items)
}

func TestStorefrontUrl(t *testing.T) {
	client, err := NewClient(Options{}, &telemetry.Recorder{})
	require.NoError(t, err)

	table := []struct {
		path     string
		expected string
	}{
		{path: "/restaurant/144833350729852647", expected: "http://waimai.meituan.com/restaurant/144833350729852647"},
		{path: "restaurant/1", expected: "http://waimai.meituan.com/restaurant/1"},
		{path: "/restaurant/../restaurant/2", expected: "http://waimai.meituan.com/restaurant/2"},
		{path: "HTTP://WAIMAI.meituan.com:80/restaurant/3", expected: "http://waimai.meituan.com/restaurant/3"},
	}
	for _, test := range table {
		got, err := client.StorefrontUrl(test.path)
		require.NoError(t, err)
		require.Equal(t, test.expected, got, test.path)
	}

	require.Equal(t, "http://waimai.meituan.com/restaurant/42", client.RestaurantUrl("42"))
}
