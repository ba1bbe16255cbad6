package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"waimai-crawler/services/resolver"

	md "github.com/nao1215/markdown"
)

// WriteReport writes a human readable summary of a run.
func WriteReport(out io.Writer, result resolver.Result) error {
	doc := md.NewMarkdown(out)

	title := result.Brand
	if result.City.Name != "" {
		title = fmt.Sprintf("%s, %s", result.Brand, result.City.Name)
	}
	doc.H1(title)
	doc.PlainText("")
	doc.Table(md.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Started", result.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"City id", result.City.Id},
			{"Storefronts", strconv.Itoa(len(result.Storefronts))},
			{"Pages", strconv.Itoa(len(result.Menus))},
			{"Items", strconv.Itoa(itemCount(result))},
			{"Workbook", "`" + result.Filename + "`"},
		},
	})
	doc.PlainText("")

	doc.H2("Storefronts")
	doc.PlainText("")
	if result.Empty() {
		doc.PlainText("no storefronts found")
		doc.PlainText("")
		return doc.Build()
	}

	rows := make([][]string, len(result.Storefronts))
	for i, s := range result.Storefronts {
		rows[i] = []string{
			s.DisplayName(),
			s.GeoHash,
			deref(s.Stats.SaleCount),
			strings.Join(s.Urls, "<br>"),
		}
	}
	doc.Table(md.TableSet{
		Header: []string{"Address", "Geohash", "Monthly sales", "Urls"},
		Rows:   rows,
	})
	doc.PlainText("")

	var empty []string
	for _, m := range result.Menus {
		if len(m.Items) == 0 {
			empty = append(empty, fmt.Sprintf("%s (%s)", m.Key, m.Url))
		}
	}
	if len(empty) > 0 {
		doc.H2("Pages without items")
		doc.PlainText("")
		doc.BulletList(empty...)
		doc.PlainText("")
	}

	return doc.Build()
}

func itemCount(result resolver.Result) int {
	n := 0
	for _, m := range result.Menus {
		n += len(m.Items)
	}
	return n
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
