package meituan

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"waimai-crawler/lib/scrapeerr"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const geoHashCookie = "w_geoid"

// GeoHash asks the platform for the geohash of a location. The hash comes
// back as the w_geoid cookie, a response without it means the caller is
// being rate limited (scrapeerr.ErrRateLimited). GeoHash does not retry.
func (c *Client) GeoHash(ctx context.Context, lat, lng float64, address string) (string, error) {
	ctx, span := tracer.Start(ctx, "client:GeoHash")
	defer span.End()
	span.SetAttributes(attribute.String("address", address))

	if c.geohashLimiter != nil {
		err := c.geohashLimiter.Wait(ctx)
		if err != nil {
			return "", scrapeerr.Transport(ctx, "geohash", err)
		}
	}

	res, err := c.Http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat":  strconv.FormatFloat(lat, 'f', -1, 64),
			"lng":  strconv.FormatFloat(lng, 'f', -1, 64),
			"addr": address,
			"from": "m",
		}).
		Get("/geo/geohash")
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch")
		return "", scrapeerr.Transport(ctx, "geohash", err)
	}

	hash := findCookie(res.RawResponse, geoHashCookie)
	if hash == "" {
		span.SetStatus(codes.Error, "no geohash cookie")
		c.tel.ReportDebug(report_client_geohash, "withheld", address, res.Status())
		return "", fmt.Errorf("geohash %q: %w", address, scrapeerr.ErrRateLimited)
	}
	return hash, nil
}

// findCookie looks for a cookie set by the final response or by any
// redirect that led to it.
func findCookie(res *http.Response, name string) string {
	for res != nil {
		for _, cookie := range res.Cookies() {
			if cookie.Name == name && cookie.Value != "" {
				return cookie.Value
			}
		}
		if res.Request == nil {
			break
		}
		res = res.Request.Response
	}
	return ""
}
