package resolver

import (
	"context"
	"errors"
	"fmt"
	"waimai-crawler/lib/citycode"
	"waimai-crawler/lib/kvcache"
	"waimai-crawler/lib/platforms/baidumap"
	"waimai-crawler/lib/retry"
	"waimai-crawler/lib/scrapeerr"
	"waimai-crawler/lib/textutil"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_resolve_addresses   = "resolve.addresses"
	report_resolve_coordinates = "resolve.coordinates"
	report_resolve_geohash     = "resolve.geohash"
	report_match_storefront    = "match.storefront"
	report_scrape_menu         = "scrape.menu"
)

// ResolveAddresses lists the address suggestions for `brand` in `city`
// that mention both the brand and the city name.
func (p *Pipeline) ResolveAddresses(ctx context.Context, city citycode.CityRef, brand string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "ResolveAddresses")
	defer span.End()
	span.SetAttributes(
		attribute.String("city", city.Name),
		attribute.String("brand", brand),
	)

	key := kvcache.Key("suggest", city.Id, brand, p.opts.MaxSuggestions)
	suggestions, err := p.suggestions.Load(ctx, key, func(ctx context.Context) ([]string, error) {
		return p.baidu.Suggest(ctx, city.Id, brand, p.opts.MaxSuggestions)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch suggestions")
		return nil, err
	}

	addresses := []string{}
	for _, s := range suggestions {
		if !textutil.ContainsAll(s, brand, city.Name) {
			continue
		}
		addresses = append(addresses, s)
	}
	p.tel.ReportDebug(report_resolve_addresses, city.Name, brand, len(suggestions), len(addresses))
	return addresses, nil
}

// ResolveCoordinates geocodes one address, it is never retried.
func (p *Pipeline) ResolveCoordinates(ctx context.Context, address string) (float64, float64, error) {
	ctx, span := tracer.Start(ctx, "ResolveCoordinates")
	defer span.End()
	span.SetAttributes(attribute.String("address", address))

	loc, err := p.locations.Load(ctx, kvcache.Key("geocode", address), func(ctx context.Context) (baidumap.Location, error) {
		return p.baidu.Geocode(ctx, address)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to geocode")
		return 0, 0, err
	}
	return loc.Lat, loc.Lng, nil
}

// ResolveGeoHash fills in c.GeoHash, retrying while the platform withholds
// it. When the retry policy is exhausted the geohash stays empty and
// the failure is only reported. Cancellation is returned as
// scrapeerr.ErrCancelled.
func (p *Pipeline) ResolveGeoHash(ctx context.Context, c *Candidate) (string, error) {
	ctx, span := tracer.Start(ctx, "ResolveGeoHash")
	defer span.End()
	span.SetAttributes(attribute.String("address", c.Address))

	policy := p.opts.Retry
	err := policy.Do(ctx, func(attempt int) error {
		hash, err := p.meituan.GeoHash(ctx, c.Lat, c.Lng, c.Address)
		if errors.Is(err, scrapeerr.ErrCancelled) {
			return retry.ErrStop{Err: err}
		}
		if err != nil {
			p.tel.ReportDebug(report_resolve_geohash, "attempt failed", attempt, c.Address, err)
			return err
		}
		c.GeoHash = hash
		return nil
	})
	if err != nil && ctx.Err() != nil {
		if !errors.Is(err, scrapeerr.ErrCancelled) {
			err = fmt.Errorf("geohash: %w: %w", scrapeerr.ErrCancelled, err)
		}
		span.SetStatus(codes.Error, "cancelled")
		return "", err
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "retries exhausted")
		p.tel.ReportWarning(
			report_resolve_geohash,
			fmt.Errorf("gave up after %d attempts: %w", policy.MaxAttempts, err),
			c.Address,
		)
		c.GeoHash = ""
		return "", nil
	}
	return c.GeoHash, nil
}

// MatchStorefront searches the platform around the candidate's geohash
// and appends the url of every result whose name contains the brand.
// Candidates without a geohash are left untouched.
func (p *Pipeline) MatchStorefront(ctx context.Context, c *Candidate) error {
	if c.GeoHash == "" {
		return nil
	}

	ctx, span := tracer.Start(ctx, "MatchStorefront")
	defer span.End()
	span.SetAttributes(
		attribute.String("address", c.Address),
		attribute.String("geohash", c.GeoHash),
	)

	entries, err := p.meituan.Search(ctx, c.GeoHash, c.Name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to search")
		return err
	}

	accepted := 0
	var rejected []string
	for _, entry := range entries {
		if !textutil.Contains(entry.Name, c.Name) {
			rejected = append(rejected, entry.Name)
			continue
		}
		accepted++
		if entry.Path == "" {
			continue
		}

		storefrontUrl, err := p.meituan.StorefrontUrl(entry.Path)
		if err != nil {
			p.tel.ReportWarning(report_match_storefront, err, c.Address)
			continue
		}
		c.Urls = append(c.Urls, storefrontUrl)
		c.Stats = Stats{
			SaleCount:    optional(entry.SaleCount),
			StartPrice:   optional(entry.StartPrice),
			DeliveryFee:  optional(entry.DeliveryFee),
			DeliveryTime: optional(entry.DeliveryTime),
		}
	}

	if accepted == 0 {
		closest, similarity := textutil.Closest(c.Name, rejected)
		p.tel.ReportWarning(
			report_match_storefront,
			fmt.Errorf("no search result contains %q", c.Name),
			c.Address,
			"results", len(entries),
			"closest", closest,
			"similarity", similarity,
		)
	}
	span.SetAttributes(attribute.Int("urls", len(c.Urls)))
	return nil
}
