// Package baidumap scrapes the two Baidu Map endpoints the resolver needs:
// place-name suggestions within a city and address geocoding.
package baidumap

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
	"waimai-crawler/lib/restyutil"
	"waimai-crawler/lib/scrapeerr"
	"waimai-crawler/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("waimai.lib.platforms.baidumap")

const (
	report_client_suggest = "client.suggest"
	report_client_geocode = "client.geocode"
)

const (
	DefaultSuggestUrl  = "http://map.baidu.com/su"
	DefaultGeocoderUrl = "http://api.map.baidu.com/geocoder/v2/"
	DefaultUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
)

type Options struct {
	SuggestUrl  string
	GeocoderUrl string
	// AccessKey is the geocoder `ak` application key.
	AccessKey string
	Timeout   time.Duration
	UserAgent string
	// Output receives request dumps when set.
	Output restyutil.InstrumentOutput
}

type Client struct {
	http *resty.Client
	opts Options
	tel  telemetry.API
}

func NewClient(opts Options, tel telemetry.API) *Client {
	if opts.SuggestUrl == "" {
		opts.SuggestUrl = DefaultSuggestUrl
	}
	if opts.GeocoderUrl == "" {
		opts.GeocoderUrl = DefaultGeocoderUrl
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	tel = telemetry.NewScopedAPI("baidumap", tel)

	httpClient := resty.New()
	httpClient.SetTimeout(opts.Timeout)
	httpClient.SetHeader("user-agent", opts.UserAgent)
	httpClient.SetHeader("accept", "*/*")
	restyutil.InstrumentClient(httpClient, tracer, tel, opts.Output)

	return &Client{http: httpClient, opts: opts, tel: tel}
}

type suggestResponse struct {
	Query string   `json:"q"`
	S     []string `json:"s"`
}

// Suggest returns up to `count` raw place suggestions for `keyword`
// within the city `cityId`. An empty list is not an error.
func (c *Client) Suggest(ctx context.Context, cityId, keyword string, count int) ([]string, error) {
	ctx, span := tracer.Start(ctx, "client:Suggest")
	defer span.End()
	span.SetAttributes(
		attribute.String("keyword", keyword),
		attribute.String("city_id", cityId),
	)

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"wd":   keyword,
			"cid":  cityId,
			"rn":   strconv.Itoa(count),
			"type": "0",
		}).
		Get(c.opts.SuggestUrl)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch")
		c.tel.ReportBroken(report_client_suggest, fmt.Errorf("fetch: %w", err), keyword)
		return nil, scrapeerr.Transport(ctx, "suggest", err)
	}
	if res.IsError() {
		span.SetStatus(codes.Error, "unexpected status")
		return nil, fmt.Errorf("suggest: %w: status %s", scrapeerr.ErrLookup, res.Status())
	}

	var parsed suggestResponse
	err = json.Unmarshal(res.Body(), &parsed)
	if err != nil {
		span.SetStatus(codes.Error, "failed to decode")
		c.tel.ReportBroken(report_client_suggest, fmt.Errorf("unmarshal json: %w", err), keyword)
		return nil, fmt.Errorf("suggest: %w: %w", scrapeerr.ErrLookup, err)
	}

	c.tel.ReportDebug("suggestions", keyword, cityId, len(parsed.S))
	return parsed.S, nil
}

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type geocodeResponse struct {
	Status  int    `json:"status"`
	Message string `json:"msg"`
	Result  struct {
		Location *Location `json:"location"`
	} `json:"result"`
}

// Geocode resolves a street address to coordinates. A response without
// result.location is scrapeerr.ErrGeocode.
func (c *Client) Geocode(ctx context.Context, address string) (Location, error) {
	ctx, span := tracer.Start(ctx, "client:Geocode")
	defer span.End()
	span.SetAttributes(attribute.String("address", address))

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"output":  "json",
			"address": address,
			"ak":      c.opts.AccessKey,
		}).
		Get(c.opts.GeocoderUrl)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch")
		c.tel.ReportBroken(report_client_geocode, fmt.Errorf("fetch: %w", err), address)
		return Location{}, scrapeerr.Transport(ctx, "geocode", err)
	}

	var parsed geocodeResponse
	err = json.Unmarshal(res.Body(), &parsed)
	if err != nil {
		span.SetStatus(codes.Error, "failed to decode")
		return Location{}, fmt.Errorf("geocode %q: %w: %w", address, scrapeerr.ErrGeocode, err)
	}
	if parsed.Result.Location == nil {
		span.SetStatus(codes.Error, "no location")
		return Location{}, fmt.Errorf(
			"geocode %q: %w: status=%d msg=%q",
			address, scrapeerr.ErrGeocode, parsed.Status, parsed.Message,
		)
	}
	return *parsed.Result.Location, nil
}
