package meituan

import (
	"bytes"
	"context"
	"fmt"
	"waimai-crawler/lib/htmlutil"
	"waimai-crawler/lib/scrapeerr"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// SearchEntry is one `li.rest-list` of the search result page. Stats are
// kept as displayed, empty when the page omits them.
type SearchEntry struct {
	Name         string
	Path         string
	SaleCount    string
	StartPrice   string
	DeliveryFee  string
	DeliveryTime string
}

// Search lists the storefronts the platform shows for `keyword` around
// `geohash`.
func (c *Client) Search(ctx context.Context, geohash, keyword string) ([]SearchEntry, error) {
	ctx, span := tracer.Start(ctx, "client:Search")
	defer span.End()
	span.SetAttributes(
		attribute.String("geohash", geohash),
		attribute.String("keyword", keyword),
	)

	res, err := c.Http.R().
		SetContext(ctx).
		SetPathParam("geohash", geohash).
		SetQueryParam("keyword", keyword).
		Get("/search/{geohash}/rt")
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch")
		return nil, scrapeerr.Transport(ctx, "search", err)
	}
	if res.IsError() {
		span.SetStatus(codes.Error, res.Status())
		return nil, fmt.Errorf("search %s: %w: status %s", geohash, scrapeerr.ErrTransport, res.Status())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse")
		c.tel.ReportBroken(report_client_search, fmt.Errorf("parse search page: %w", err), geohash)
		return nil, fmt.Errorf("search: %w: %w", scrapeerr.ErrParse, err)
	}
	return ParseSearch(doc), nil
}

func ParseSearch(doc *goquery.Document) []SearchEntry {
	var entries []SearchEntry
	doc.Find("li.rest-list").Each(func(_ int, li *goquery.Selection) {
		entries = append(entries, SearchEntry{
			Name:         htmlutil.TrimmedString(li.Find("p.name").First()),
			Path:         li.Find("a[href]").First().AttrOr("href", ""),
			SaleCount:    htmlutil.TrimmedString(li.Find("span.total").First()),
			StartPrice:   htmlutil.TrimmedString(li.Find("span.start-price").First()),
			DeliveryFee:  htmlutil.TrimmedString(li.Find("span.send-price").First()),
			DeliveryTime: htmlutil.TrimmedString(li.Find("p.sned-time").First()),
		})
	})
	return entries
}
