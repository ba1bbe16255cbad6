// Package export writes a resolver.Result as an xlsx workbook and as a
// markdown run report.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"waimai-crawler/lib/platforms/meituan"
	"waimai-crawler/services/resolver"

	"github.com/xuri/excelize/v2"
)

const (
	ContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxSheetName = 31
	shopNameCol  = "shop_name"
)

var itemHeading = []any{
	"origin_price",
	"price",
	"id",
	"name",
	"isSellOut",
	"month_sold_count",
	"description",
	"zan",
	"minCount",
}

var storefrontHeading = []any{
	"name",
	"address",
	"lat",
	"lng",
	"month_sale_count",
	"start_price",
	"send_price",
	"send_time",
	"urls",
}

var invalidSheetChars = regexp.MustCompile(`[\[\]:\\?/*\x00]`)

// SheetName strips the characters a sheet name may not contain and
// truncates it to 31 runes.
func SheetName(name string) string {
	name = invalidSheetChars.ReplaceAllString(name, "")
	runes := []rune(name)
	if len(runes) > maxSheetName {
		runes = runes[:maxSheetName]
	}
	return string(runes)
}

type workbook struct {
	file *excelize.File
	used map[string]bool
}

// addSheet creates a sheet named after `name`, names that collide with an
// existing sheet get a numeric suffix.
func (w *workbook) addSheet(name string) (string, error) {
	name = SheetName(name)
	if name == "" {
		name = "sheet"
	}
	unique := name
	for i := 2; w.used[strings.ToLower(unique)]; i++ {
		suffix := fmt.Sprintf("(%d)", i)
		runes := []rune(name)
		if len(runes)+len([]rune(suffix)) > maxSheetName {
			runes = runes[:maxSheetName-len([]rune(suffix))]
		}
		unique = string(runes) + suffix
	}
	w.used[strings.ToLower(unique)] = true

	if len(w.used) == 1 {
		// every new file starts with one default sheet
		err := w.file.SetSheetName(w.file.GetSheetName(0), unique)
		return unique, err
	}
	_, err := w.file.NewSheet(unique)
	return unique, err
}

func (w *workbook) writeRows(sheet string, heading []any, rows [][]any) error {
	err := w.file.SetSheetRow(sheet, "A1", &heading)
	if err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		err = w.file.SetSheetRow(sheet, cell, &row)
		if err != nil {
			return err
		}
	}
	return nil
}

// Workbook lays out `result` as a spreadsheet: one storefront-info sheet,
// one sheet per storefront page with items and a summary sheet of every
// item.
func Workbook(result resolver.Result) (*excelize.File, error) {
	w := &workbook{file: excelize.NewFile(), used: map[string]bool{}}

	infoName := result.Brand
	if result.City.Name != "" {
		infoName = result.City.Name + "_" + result.Brand
	}
	sheet, err := w.addSheet(infoName)
	if err != nil {
		return nil, err
	}
	infoRows := make([][]any, len(result.Storefronts))
	for i, s := range result.Storefronts {
		infoRows[i] = storefrontRow(s)
	}
	err = w.writeRows(sheet, storefrontHeading, infoRows)
	if err != nil {
		return nil, fmt.Errorf("write storefront sheet: %w", err)
	}

	var summary [][]any
	for _, menu := range result.Menus {
		if len(menu.Items) == 0 {
			continue
		}
		sheet, err := w.addSheet(menu.Key + "_商品信息")
		if err != nil {
			return nil, err
		}
		rows := make([][]any, len(menu.Items))
		for i, item := range menu.Items {
			rows[i] = itemRow(item)
			summary = append(summary, append([]any{menu.Key}, rows[i]...))
		}
		err = w.writeRows(sheet, itemHeading, rows)
		if err != nil {
			return nil, fmt.Errorf("write menu sheet %s: %w", sheet, err)
		}
	}

	if len(summary) > 0 {
		sheet, err := w.addSheet(result.Brand + "_商品信息_汇总")
		if err != nil {
			return nil, err
		}
		err = w.writeRows(sheet, append([]any{shopNameCol}, itemHeading...), summary)
		if err != nil {
			return nil, fmt.Errorf("write summary sheet: %w", err)
		}
	}

	w.file.SetActiveSheet(0)
	return w.file, nil
}

// WriteWorkbook writes the xlsx encoding of `result` to `out`.
func WriteWorkbook(out io.Writer, result resolver.Result) error {
	f, err := Workbook(result)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(out)
}

// SaveWorkbook writes the workbook to `dir`/result.Filename and returns
// the path.
func SaveWorkbook(dir string, result resolver.Result) (string, error) {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, result.Filename)
	f, err := Workbook(result)
	if err != nil {
		return "", err
	}
	defer f.Close()
	err = f.SaveAs(path)
	if err != nil {
		return "", err
	}
	return path, nil
}

func itemRow(item meituan.MenuItem) []any {
	return []any{
		item.OriginPrice,
		item.Price,
		item.Id,
		item.Name,
		item.IsSoldOut,
		intCell(item.MonthlySoldCount),
		stringCell(item.Description),
		intCell(item.LikeCount),
		item.MinOrderCount,
	}
}

func storefrontRow(c *resolver.Candidate) []any {
	return []any{
		c.Name,
		c.Address,
		strconv.FormatFloat(c.Lat, 'f', -1, 64),
		strconv.FormatFloat(c.Lng, 'f', -1, 64),
		stringCell(c.Stats.SaleCount),
		stringCell(c.Stats.StartPrice),
		stringCell(c.Stats.DeliveryFee),
		stringCell(c.Stats.DeliveryTime),
		strings.Join(c.Urls, "\n"),
	}
}

func intCell(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}

func stringCell(v *string) any {
	if v == nil {
		return ""
	}
	return *v
}
