package meituan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"waimai-crawler/lib/htmlutil"
	"waimai-crawler/lib/scrapeerr"
	"waimai-crawler/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_parse_menu_item  = "parse.menu-item"
	report_parse_sold_count = "parse.sold-count"
	report_parse_like_count = "parse.like-count"
)

type MenuItem struct {
	Id            string  `json:"id"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	OriginPrice   float64 `json:"origin_price"`
	IsSoldOut     bool    `json:"is_sold_out"`
	MinOrderCount int     `json:"min_order_count"`
	// MonthlySoldCount, Description and LikeCount are nil when the page
	// omits them or shows something unparseable.
	MonthlySoldCount *int    `json:"monthly_sold_count"`
	Description      *string `json:"description"`
	LikeCount        *int    `json:"like_count"`
}

type foodPayload struct {
	Id          lenientNumber `json:"id"`
	Name        string        `json:"name"`
	Price       lenientNumber `json:"price"`
	OriginPrice lenientNumber `json:"origin_price"`
	MinCount    lenientNumber `json:"minCount"`
	Sku         []struct {
		IsSellOut json.RawMessage `json:"isSellOut"`
	} `json:"sku"`
}

// lenientNumber holds the text of a number the page sends either bare or
// quoted. null and "" decode to the zero value.
type lenientNumber string

func (n *lenientNumber) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if text == "null" {
		*n = ""
		return nil
	}
	if strings.HasPrefix(text, `"`) {
		var quoted string
		err := json.Unmarshal(data, &quoted)
		if err != nil {
			return err
		}
		text = strings.TrimSpace(quoted)
	}
	*n = lenientNumber(text)
	return nil
}

func (n lenientNumber) Float() (float64, error) {
	if n == "" {
		return 0, nil
	}
	return strconv.ParseFloat(string(n), 64)
}

func (n lenientNumber) Int() (int, error) {
	if n == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(string(n))
	if err == nil {
		return value, nil
	}
	f, ferr := strconv.ParseFloat(string(n), 64)
	if ferr != nil {
		return 0, err
	}
	return int(f), nil
}

// Menu fetches a storefront page and extracts its items.
func (c *Client) Menu(ctx context.Context, storefrontUrl string) ([]MenuItem, error) {
	ctx, span := tracer.Start(ctx, "client:Menu")
	defer span.End()
	span.SetAttributes(attribute.String("url", storefrontUrl))

	res, err := c.Http.R().
		SetContext(ctx).
		Get(storefrontUrl)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch")
		return nil, scrapeerr.Transport(ctx, "menu", err)
	}
	if res.IsError() {
		span.SetStatus(codes.Error, res.Status())
		return nil, fmt.Errorf("menu %s: %w: status %s", storefrontUrl, scrapeerr.ErrTransport, res.Status())
	}

	items, err := ParseMenu(bytes.NewBuffer(res.Body()), c.tel)
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse")
		c.tel.ReportBroken(report_client_menu, err, storefrontUrl)
		return nil, err
	}
	span.SetAttributes(attribute.Int("items", len(items)))
	return items, nil
}

var foodContextIdRegex = regexp.MustCompile(`foodcontext-\d+`)

// ParseMenu extracts every item block of a storefront page. A block with
// a malformed payload is reported as a warning to `tel` and skipped.
func ParseMenu(page io.Reader, tel telemetry.API) ([]MenuItem, error) {
	doc, err := goquery.NewDocumentFromReader(page)
	if err != nil {
		return nil, fmt.Errorf("menu page: %w: %w", scrapeerr.ErrParse, err)
	}

	var items []MenuItem
	doc.Find(`script[type="text/template"][id^="foodcontext-"]`).Each(func(_ int, script *goquery.Selection) {
		id := script.AttrOr("id", "")
		if !foodContextIdRegex.MatchString(id) {
			return
		}
		item, err := parseMenuItem(script, tel)
		if err != nil {
			tel.ReportWarning(report_parse_menu_item, err, id)
			return
		}
		items = append(items, item)
	})
	return items, nil
}

func parseMenuItem(script *goquery.Selection, tel telemetry.API) (MenuItem, error) {
	var food foodPayload
	err := json.Unmarshal([]byte(script.Text()), &food)
	if err != nil {
		return MenuItem{}, fmt.Errorf("%w: unmarshal food payload: %w", scrapeerr.ErrParse, err)
	}
	if len(food.Sku) == 0 {
		return MenuItem{}, fmt.Errorf("%w: food payload %q has no sku", scrapeerr.ErrParse, food.Name)
	}

	price, err := food.Price.Float()
	if err != nil {
		return MenuItem{}, fmt.Errorf("%w: price of %q: %w", scrapeerr.ErrParse, food.Name, err)
	}
	originPrice, err := food.OriginPrice.Float()
	if err != nil {
		return MenuItem{}, fmt.Errorf("%w: origin price of %q: %w", scrapeerr.ErrParse, food.Name, err)
	}
	minCount, err := food.MinCount.Int()
	if err != nil {
		return MenuItem{}, fmt.Errorf("%w: min count of %q: %w", scrapeerr.ErrParse, food.Name, err)
	}

	item := MenuItem{
		Id:            string(food.Id),
		Name:          food.Name,
		Price:         price,
		OriginPrice:   originPrice,
		MinOrderCount: minCount,
		IsSoldOut:     isTruthy(food.Sku[0].IsSellOut),
	}

	container := script.Parent()

	description := htmlutil.TrimmedString(container.Find("div.description").First())
	if description != "" {
		item.Description = &description
	}

	likeText, ok := htmlutil.OwnString(container.Find("div.zan-count span").First())
	if ok {
		likes, err := ParseLikeCount(likeText)
		if err != nil {
			tel.ReportDebug(report_parse_like_count, item.Name, likeText)
		} else {
			item.LikeCount = &likes
		}
	}

	soldText, ok := htmlutil.OwnString(container.Find("div.sold-count span").First())
	if ok {
		sold, err := ParseSoldCount(soldText)
		if err != nil {
			tel.ReportWarning(report_parse_sold_count, err, item.Name)
		} else {
			item.MonthlySoldCount = &sold
		}
	}

	return item, nil
}

// isSellOut has been seen as a bool and as 0/1.
func isTruthy(raw json.RawMessage) bool {
	switch strings.TrimSpace(string(raw)) {
	case "true", "1", `"1"`, `"true"`:
		return true
	}
	return false
}

var soldCountRegex = regexp.MustCompile(`月售(\d+)份`)

// ParseSoldCount reads the monthly sales counter, "月售12份" is 12.
func ParseSoldCount(text string) (int, error) {
	groups := soldCountRegex.FindStringSubmatch(strings.TrimSpace(text))
	if len(groups) < 2 {
		return 0, fmt.Errorf("sold count %q: %w", text, scrapeerr.ErrParse)
	}
	count, err := strconv.Atoi(groups[1])
	if err != nil {
		return 0, fmt.Errorf("sold count %q: %w: %w", text, scrapeerr.ErrParse, err)
	}
	return count, nil
}

// ParseLikeCount reads the like counter, the number is shown wrapped in
// one enclosing character on each side, "(15)" is 15.
func ParseLikeCount(text string) (int, error) {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) < 2 {
		return 0, fmt.Errorf("like count %q: %w", text, scrapeerr.ErrParse)
	}
	count, err := strconv.Atoi(strings.TrimSpace(string(runes[1 : len(runes)-1])))
	if err != nil {
		return 0, fmt.Errorf("like count %q: %w: %w", text, scrapeerr.ErrParse, err)
	}
	return count, nil
}
