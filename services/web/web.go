// Package web is the browser front end: a search form and an endpoint
// that runs the pipeline and downloads the workbook.
package web

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"
	"waimai-crawler/lib/citycode"
	"waimai-crawler/lib/kvcache"
	"waimai-crawler/lib/serviceutil"
	"waimai-crawler/lib/telemetry"
	"waimai-crawler/services/archive"
	"waimai-crawler/services/export"
	"waimai-crawler/services/resolver"

	"github.com/mozillazg/go-pinyin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("waimai.services.web")

//go:embed index.html
var indexPage []byte

const (
	report_search_run     = "search.run"
	report_search_archive = "search.archive"
)

var errNoStorefronts = errors.New("no storefronts found")

type Runner interface {
	Run(ctx context.Context, cityName, brand string) (resolver.Result, error)
	RunStorefronts(ctx context.Context, brand string, ids []string) (resolver.Result, error)
}

type Archive interface {
	Record(ctx context.Context, result resolver.Result) (int64, error)
	Runs(ctx context.Context, limit int) ([]archive.RunSummary, error)
}

type Options struct {
	// CacheTTL is how long a downloaded workbook is served again for the
	// same query.
	CacheTTL  time.Duration
	CacheSize int
	// Archive records every fresh run when set.
	Archive Archive
	// AccessToken, when set, is required as a bearer token.
	AccessToken string
}

type Server struct {
	runner    Runner
	opts      Options
	downloads *kvcache.Memo[download]
	tel       telemetry.API
}

type download struct {
	Filename string `json:"filename"`
	Body     []byte `json:"body"`
}

func NewServer(runner Runner, opts Options, tel telemetry.API) *Server {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 15 * time.Minute
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 128
	}
	return &Server{
		runner:    runner,
		opts:      opts,
		downloads: kvcache.NewMemo[download](kvcache.NewMemory(opts.CacheSize, opts.CacheTTL)),
		tel:       telemetry.NewScopedAPI("web", tel),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.index)
	mux.HandleFunc("GET /search", s.search)
	mux.HandleFunc("GET /runs", s.runs)
	return serviceutil.VerifyAccessToken(s.opts.AccessToken, mux)
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("content-type", "text/html; charset=utf-8")
	w.Write(indexPage)
}

type searchQuery struct {
	City  string
	Brand string
	Ids   []string
}

func parseSearchQuery(r *http.Request) (searchQuery, error) {
	q := searchQuery{
		City:  strings.TrimSpace(r.URL.Query().Get("city")),
		Brand: strings.TrimSpace(r.URL.Query().Get("name")),
	}
	for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
		id = strings.TrimSpace(id)
		if id != "" {
			q.Ids = append(q.Ids, id)
		}
	}
	if q.Brand == "" {
		return q, fmt.Errorf("name is required")
	}
	if q.City == "" && len(q.Ids) == 0 {
		return q, fmt.Errorf("city is required")
	}
	return q, nil
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "search")
	defer span.End()

	q, err := parseSearchQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	span.SetAttributes(
		attribute.String("city", q.City),
		attribute.String("brand", q.Brand),
	)

	key := kvcache.Key("search", q.City, q.Brand, strings.Join(q.Ids, ","))
	file, err := s.downloads.Load(ctx, key, func(ctx context.Context) (download, error) {
		return s.build(ctx, q)
	})
	switch {
	case errors.Is(err, errNoStorefronts):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, citycode.ErrCityNotFound):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to run")
		s.tel.ReportBroken(report_search_run, err, q.City, q.Brand)
		http.Error(w, "failed to collect storefronts", http.StatusInternalServerError)
		return
	}

	w.Header().Set("content-type", export.ContentType)
	w.Header().Set("content-disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": AsciiFilename(file.Filename),
	}))
	w.Write(file.Body)
}

func (s *Server) build(ctx context.Context, q searchQuery) (download, error) {
	var result resolver.Result
	var err error
	if len(q.Ids) > 0 {
		result, err = s.runner.RunStorefronts(ctx, q.Brand, q.Ids)
	} else {
		result, err = s.runner.Run(ctx, q.City, q.Brand)
	}
	if err != nil {
		return download{}, err
	}
	if result.Empty() {
		return download{}, errNoStorefronts
	}

	if s.opts.Archive != nil {
		_, err := s.opts.Archive.Record(ctx, result)
		if err != nil {
			s.tel.ReportWarning(report_search_archive, err)
		}
	}

	var buf bytes.Buffer
	err = export.WriteWorkbook(&buf, result)
	if err != nil {
		return download{}, err
	}
	return download{Filename: result.Filename, Body: buf.Bytes()}, nil
}

func (s *Server) runs(w http.ResponseWriter, r *http.Request) {
	if s.opts.Archive == nil {
		http.Error(w, "archive is disabled", http.StatusNotFound)
		return
	}
	runs, err := s.opts.Archive.Runs(r.Context(), 50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("content-type", "application/json")
	json.NewEncoder(w).Encode(runs)
}

var pinyinArgs = func() pinyin.Args {
	args := pinyin.NewArgs()
	args.Fallback = func(r rune, a pinyin.Args) []string {
		return []string{string(r)}
	}
	return args
}()

// AsciiFilename transliterates the Han characters of `name` to pinyin,
// everything else is kept.
func AsciiFilename(name string) string {
	return strings.Join(pinyin.LazyPinyin(name, pinyinArgs), "")
}
