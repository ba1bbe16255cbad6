// Package resolver turns a (city, brand) pair into the brand's storefronts
// on the delivery platform and scrapes their menus.
//
// The stages run in order: address suggestions, geocoding, platform
// geohash, storefront search, dedup/filter and menu extraction. Every
// stage except the first works per candidate, so a failure there only
// drops that candidate.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"waimai-crawler/lib/chrono"
	"waimai-crawler/lib/citycode"
	"waimai-crawler/lib/kvcache"
	"waimai-crawler/lib/platforms/baidumap"
	"waimai-crawler/lib/platforms/meituan"
	"waimai-crawler/lib/retry"
	"waimai-crawler/lib/scrapeerr"
	"waimai-crawler/lib/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("waimai.services.resolver")

const (
	report_pipeline_candidates  = "pipeline.candidates"
	report_pipeline_storefronts = "pipeline.storefronts"
	report_pipeline_items       = "pipeline.items"
)

// Baidu is the address and coordinate lookup service.
type Baidu interface {
	Suggest(ctx context.Context, cityId, keyword string, count int) ([]string, error)
	Geocode(ctx context.Context, address string) (baidumap.Location, error)
}

// Platform is the delivery platform the storefronts live on.
type Platform interface {
	GeoHash(ctx context.Context, lat, lng float64, address string) (string, error)
	Search(ctx context.Context, geohash, keyword string) ([]meituan.SearchEntry, error)
	Menu(ctx context.Context, storefrontUrl string) ([]meituan.MenuItem, error)
	StorefrontUrl(path string) (string, error)
	RestaurantUrl(id string) string
}

type Options struct {
	// MaxSuggestions is the number of address suggestions requested.
	MaxSuggestions int
	// Workers bounds the candidates and storefront pages processed at
	// once, 1 processes them one after another.
	Workers int
	Retry   retry.Policy
	// Cache stores address suggestions and geocoder answers.
	Cache kvcache.Cache
	Clock chrono.Clock
}

const (
	DefaultMaxSuggestions = 65
	DefaultWorkers        = 4
)

type Pipeline struct {
	cities  citycode.Table
	baidu   Baidu
	meituan Platform
	opts    Options
	tel     telemetry.API

	suggestions *kvcache.Memo[[]string]
	locations   *kvcache.Memo[baidumap.Location]
}

func NewPipeline(cities citycode.Table, baidu Baidu, platform Platform, opts Options, tel telemetry.API) *Pipeline {
	if opts.MaxSuggestions <= 0 {
		opts.MaxSuggestions = DefaultMaxSuggestions
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = retry.Default()
	}
	if opts.Cache == nil {
		opts.Cache = kvcache.Nop{}
	}
	if opts.Clock == nil {
		opts.Clock = chrono.RealClock{}
	}

	return &Pipeline{
		cities:      cities,
		baidu:       baidu,
		meituan:     platform,
		opts:        opts,
		tel:         telemetry.NewScopedAPI("resolver", tel),
		suggestions: kvcache.NewMemo[[]string](opts.Cache),
		locations:   kvcache.NewMemo[baidumap.Location](opts.Cache),
	}
}

// Run resolves the storefronts of `brand` in the city matching `cityName`
// and scrapes their menus. A city missing from the table is
// citycode.ErrCityNotFound, finding no storefront is an empty Result.
func (p *Pipeline) Run(ctx context.Context, cityName, brand string) (Result, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("city", cityName),
		attribute.String("brand", brand),
	)

	run, err := p.resolve(ctx, cityName, brand)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to resolve candidates")
		return Result{}, err
	}
	err = p.scrapeMenus(ctx, run)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to scrape menus")
		return Result{}, err
	}
	// the filename keeps the city as typed, not the table name
	return p.result(run, cityName), nil
}

// Resolve is Run without menu extraction.
func (p *Pipeline) Resolve(ctx context.Context, cityName, brand string) (Result, error) {
	ctx, span := tracer.Start(ctx, "Resolve")
	defer span.End()

	run, err := p.resolve(ctx, cityName, brand)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to resolve candidates")
		return Result{}, err
	}
	return p.result(run, cityName), nil
}

func (p *Pipeline) resolve(ctx context.Context, cityName, brand string) (*RunContext, error) {
	city, err := p.cities.Lookup(cityName)
	if err != nil {
		return nil, err
	}
	run := &RunContext{City: city, Brand: brand, StartedAt: p.opts.Clock.Now()}
	err = p.resolveCandidates(ctx, run)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// RunStorefronts skips resolution and scrapes the storefronts with the
// given platform ids directly.
func (p *Pipeline) RunStorefronts(ctx context.Context, brand string, ids []string) (Result, error) {
	ctx, span := tracer.Start(ctx, "RunStorefronts")
	defer span.End()
	span.SetAttributes(attribute.StringSlice("ids", ids))

	run := &RunContext{Brand: brand, StartedAt: p.opts.Clock.Now()}
	seen := map[string]struct{}{}
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		run.Candidates = append(run.Candidates, &Candidate{
			Name:    brand,
			Address: id,
			Urls:    []string{p.meituan.RestaurantUrl(id)},
		})
	}

	err := p.scrapeMenus(ctx, run)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to scrape menus")
		return Result{}, err
	}
	return p.result(run, ""), nil
}

func (p *Pipeline) result(run *RunContext, cityLabel string) Result {
	return Result{
		City:        run.City,
		Brand:       run.Brand,
		StartedAt:   run.StartedAt,
		Storefronts: run.Candidates,
		Menus:       run.Menus,
		Filename:    Filename(run.StartedAt, cityLabel, run.Brand),
	}
}

// resolveCandidates runs every per-candidate stage and leaves the
// filtered candidates in run.Candidates.
func (p *Pipeline) resolveCandidates(ctx context.Context, run *RunContext) error {
	addresses, err := p.ResolveAddresses(ctx, run.City, run.Brand)
	if err != nil {
		return err
	}
	p.tel.ReportCount(report_pipeline_candidates, int64(len(addresses)))

	resolved := make([]*Candidate, len(addresses))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, address := range addresses {
		g.Go(func() error {
			c, err := p.resolveCandidate(gctx, run.Brand, address)
			if err != nil {
				return err
			}
			resolved[i] = c
			return nil
		})
	}
	err = g.Wait()
	if err != nil {
		return err
	}

	run.Candidates = Filter(resolved)
	p.tel.ReportCount(report_pipeline_storefronts, int64(len(run.Candidates)))
	return nil
}

// resolveCandidate returns nil when the candidate has to be skipped, the
// only error it returns is cancellation.
func (p *Pipeline) resolveCandidate(ctx context.Context, brand, address string) (*Candidate, error) {
	c := &Candidate{Name: brand, Address: address}

	lat, lng, err := p.ResolveCoordinates(ctx, address)
	if err != nil {
		return nil, p.skip(report_resolve_coordinates, err, address)
	}
	c.Lat = lat
	c.Lng = lng

	_, err = p.ResolveGeoHash(ctx, c)
	if err != nil {
		return nil, p.skip(report_resolve_geohash, err, address)
	}

	err = p.MatchStorefront(ctx, c)
	if err != nil {
		return nil, p.skip(report_match_storefront, err, address)
	}
	return c, nil
}

// skip reports a candidate-local failure and swallows it, only
// cancellation is passed through. Failures of an unknown kind are
// reported as broken.
func (p *Pipeline) skip(id string, err error, params ...any) error {
	if errors.Is(err, scrapeerr.ErrCancelled) {
		return err
	}
	if !scrapeerr.Recoverable(err) {
		p.tel.ReportBroken(id, append([]any{err}, params...)...)
		return nil
	}
	p.tel.ReportWarning(id, append([]any{err}, params...)...)
	return nil
}

type menuTask struct {
	candidate *Candidate
	index     int
	url       string
}

func (p *Pipeline) scrapeMenus(ctx context.Context, run *RunContext) error {
	var tasks []menuTask
	for _, c := range run.Candidates {
		for idx, u := range c.Urls {
			tasks = append(tasks, menuTask{candidate: c, index: idx, url: u})
		}
	}

	menus := make([]StorefrontMenu, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, task := range tasks {
		g.Go(func() error {
			menus[i] = StorefrontMenu{
				Key:       menuKey(task.candidate, task.index),
				Index:     task.index,
				Url:       task.url,
				Candidate: task.candidate,
			}
			items, err := p.meituan.Menu(gctx, task.url)
			if err != nil {
				return p.skip(report_scrape_menu, fmt.Errorf("menu %s: %w", task.url, err), task.candidate.Address)
			}
			menus[i].Items = items
			return nil
		})
	}
	err := g.Wait()
	if err != nil {
		return err
	}

	total := 0
	for _, m := range menus {
		total += len(m.Items)
	}
	p.tel.ReportCount(report_pipeline_items, int64(total))
	run.Menus = menus
	return nil
}
