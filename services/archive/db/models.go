package db

import (
	"database/sql"
)

type Run struct {
	ID        int64
	City      string
	CityID    string
	Brand     string
	StartedAt int64
	Filename  string
}

type Storefront struct {
	ID           int64
	RunID        int64
	Name         string
	Address      string
	Lat          float64
	Lng          float64
	GeoHash      string
	SaleCount    sql.NullString
	StartPrice   sql.NullString
	DeliveryFee  sql.NullString
	DeliveryTime sql.NullString
}

type StorefrontPage struct {
	ID           int64
	StorefrontID int64
	Idx          int64
	Url          string
}

type MenuItem struct {
	PageID           int64
	ItemID           string
	Name             string
	Price            float64
	OriginPrice      float64
	IsSoldOut        bool
	MinOrderCount    int64
	MonthlySoldCount sql.NullInt64
	Description      sql.NullString
	LikeCount        sql.NullInt64
}
