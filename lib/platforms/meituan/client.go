// client.go contains the logic for talking to the waimai.meituan.com web
// frontend, it knows nothing about how storefronts are resolved.

package meituan

import (
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
	"waimai-crawler/lib/restyutil"
	"waimai-crawler/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/purell"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("waimai.lib.platforms.meituan")

const (
	report_client_geohash = "client.geohash"
	report_client_search  = "client.search"
	report_client_menu    = "client.menu"
)

const (
	DefaultBaseUrl   = "http://waimai.meituan.com"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
)

type Options struct {
	BaseUrl   string
	Timeout   time.Duration
	UserAgent string
	// CloudflareBypass wraps the transport with browser-like TLS and
	// header fingerprints.
	CloudflareBypass bool
	// RequestsPerSecond limits every request of this client, 0 disables
	// the limit.
	RequestsPerSecond float64
	// GeoHashLimiter, when set, additionally gates every geohash request.
	// Sharing one limiter between clients makes the limit IP-wide.
	GeoHashLimiter *rate.Limiter
	Output         restyutil.InstrumentOutput
}

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	geohashLimiter *rate.Limiter
	tel            telemetry.API
}

func NewClient(opts Options, tel telemetry.API) (*Client, error) {
	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	tel = telemetry.NewScopedAPI("meituan", tel)

	baseUrl, err := url.Parse(strings.TrimSuffix(opts.BaseUrl, "/"))
	if err != nil {
		return nil, err
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(baseUrl.String())
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}

	httpClient.SetHeader("user-agent", opts.UserAgent)
	httpClient.SetHeader("accept", "*/*")
	httpClient.SetHeader("accept-language", "en,zh-CN;q=0.8,zh;q=0.6")
	httpClient.SetHeader("referer", baseUrl.String()+"/?stay=1")
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	httpClient.SetTimeout(opts.Timeout)

	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	restyutil.InstrumentClient(httpClient, tracer, tel, opts.Output)

	return &Client{
		BaseUrl:        baseUrl,
		Http:           httpClient,
		geohashLimiter: opts.GeoHashLimiter,
		tel:            tel,
	}, nil
}

// StorefrontUrl joins a storefront path from the search page onto the
// platform host. Absolute urls are only normalized.
func (c *Client) StorefrontUrl(path string) (string, error) {
	raw := path
	lower := strings.ToLower(path)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		raw = c.BaseUrl.String() + path
	}
	normalized, err := purell.NormalizeURLString(raw, purell.FlagsSafe|purell.FlagRemoveDotSegments)
	if err != nil {
		return "", fmt.Errorf("normalize storefront url %q: %w", raw, err)
	}
	return normalized, nil
}

// RestaurantUrl is the storefront page of a known platform id.
func (c *Client) RestaurantUrl(id string) string {
	return c.BaseUrl.String() + "/restaurant/" + url.PathEscape(id)
}
