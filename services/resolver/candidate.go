package resolver

import (
	"fmt"
	"strings"
	"time"
	"waimai-crawler/lib/citycode"
	"waimai-crawler/lib/platforms/meituan"
)

// Stats are the storefront figures shown on the search page, each is nil
// when the page omits it.
type Stats struct {
	SaleCount    *string `json:"sale_count"`
	StartPrice   *string `json:"start_price"`
	DeliveryFee  *string `json:"delivery_fee"`
	DeliveryTime *string `json:"delivery_time"`
}

// Candidate is one possible storefront of the brand, created per address
// suggestion and filled in by the resolver stages.
type Candidate struct {
	// Name is the brand the candidate was searched for.
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	// GeoHash is empty until resolved.
	GeoHash string   `json:"geo_hash"`
	Urls    []string `json:"urls"`
	Stats   Stats    `json:"stats"`
}

func (c *Candidate) Clone() *Candidate {
	clone := *c
	clone.Urls = append([]string(nil), c.Urls...)
	return &clone
}

// DisplayName is the address without the suggestion field separators.
func (c *Candidate) DisplayName() string {
	return strings.ReplaceAll(c.Address, "$", "")
}

func (c *Candidate) String() string {
	return fmt.Sprintf(
		"name: %s, address: %s, lat: %v, lng: %v, geo_hash: %s, urls: %v",
		c.Name, c.Address, c.Lat, c.Lng, c.GeoHash, c.Urls,
	)
}

// StorefrontMenu holds the items scraped from one storefront page. A
// candidate with several urls has one StorefrontMenu per url.
type StorefrontMenu struct {
	// Key is the candidate display name, suffixed with _<index> for every
	// url after the first.
	Key       string
	Index     int
	Url       string
	Candidate *Candidate
	Items     []meituan.MenuItem
}

// RunContext is the state of one pipeline invocation.
type RunContext struct {
	City       citycode.CityRef
	Brand      string
	StartedAt  time.Time
	Candidates []*Candidate
	Menus      []StorefrontMenu
}

type Result struct {
	City        citycode.CityRef
	Brand       string
	StartedAt   time.Time
	Storefronts []*Candidate
	Menus       []StorefrontMenu
	// Filename is the suggested name of the exported workbook.
	Filename string
}

func (r Result) Empty() bool {
	return len(r.Storefronts) == 0
}

func menuKey(c *Candidate, idx int) string {
	key := c.DisplayName()
	if idx > 0 {
		key += fmt.Sprintf("_%d", idx)
	}
	return key
}

const filenameTimeFormat = "2006-01-02_15-04-05"

// Filename is `<time>_<city>_<brand>.xlsx`, empty parts are left out.
func Filename(t time.Time, city, brand string) string {
	parts := []string{t.Format(filenameTimeFormat)}
	for _, p := range []string{city, brand} {
		p = strings.TrimSpace(p)
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "_") + ".xlsx"
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
