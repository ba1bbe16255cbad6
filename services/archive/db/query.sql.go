package db

import (
	"context"
	"database/sql"
)

const createRun = `-- name: CreateRun :one
insert into run(city, city_id, brand, started_at, filename)
values (?, ?, ?, ?, ?)
returning id
`

type CreateRunParams struct {
	City      string
	CityID    string
	Brand     string
	StartedAt int64
	Filename  string
}

func (q *Queries) CreateRun(ctx context.Context, arg CreateRunParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createRun,
		arg.City,
		arg.CityID,
		arg.Brand,
		arg.StartedAt,
		arg.Filename,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const createStorefront = `-- name: CreateStorefront :one
insert into storefront(
    run_id, name, address, lat, lng, geo_hash,
    sale_count, start_price, delivery_fee, delivery_time
)
values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
returning id
`

type CreateStorefrontParams struct {
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

func (q *Queries) CreateStorefront(ctx context.Context, arg CreateStorefrontParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createStorefront,
		arg.RunID,
		arg.Name,
		arg.Address,
		arg.Lat,
		arg.Lng,
		arg.GeoHash,
		arg.SaleCount,
		arg.StartPrice,
		arg.DeliveryFee,
		arg.DeliveryTime,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const createStorefrontPage = `-- name: CreateStorefrontPage :one
insert into storefront_page(storefront_id, idx, url)
values (?, ?, ?)
returning id
`

type CreateStorefrontPageParams struct {
	StorefrontID int64
	Idx          int64
	Url          string
}

func (q *Queries) CreateStorefrontPage(ctx context.Context, arg CreateStorefrontPageParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createStorefrontPage, arg.StorefrontID, arg.Idx, arg.Url)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const createMenuItem = `-- name: CreateMenuItem :exec
insert into menu_item(
    page_id, item_id, name, price, origin_price, is_sold_out,
    min_order_count, monthly_sold_count, description, like_count
)
values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
on conflict do nothing
`

type CreateMenuItemParams struct {
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

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) error {
	_, err := q.db.ExecContext(ctx, createMenuItem,
		arg.PageID,
		arg.ItemID,
		arg.Name,
		arg.Price,
		arg.OriginPrice,
		arg.IsSoldOut,
		arg.MinOrderCount,
		arg.MonthlySoldCount,
		arg.Description,
		arg.LikeCount,
	)
	return err
}

const listRuns = `-- name: ListRuns :many
select id, city, city_id, brand, started_at, filename from run
order by started_at desc, id desc
limit ?
`

func (q *Queries) ListRuns(ctx context.Context, limit int64) ([]Run, error) {
	rows, err := q.db.QueryContext(ctx, listRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Run
	for rows.Next() {
		var i Run
		if err := rows.Scan(
			&i.ID,
			&i.City,
			&i.CityID,
			&i.Brand,
			&i.StartedAt,
			&i.Filename,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getRunStorefronts = `-- name: GetRunStorefronts :many
select id, run_id, name, address, lat, lng, geo_hash,
    sale_count, start_price, delivery_fee, delivery_time
from storefront
where run_id = ?
order by id
`

func (q *Queries) GetRunStorefronts(ctx context.Context, runID int64) ([]Storefront, error) {
	rows, err := q.db.QueryContext(ctx, getRunStorefronts, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Storefront
	for rows.Next() {
		var i Storefront
		if err := rows.Scan(
			&i.ID,
			&i.RunID,
			&i.Name,
			&i.Address,
			&i.Lat,
			&i.Lng,
			&i.GeoHash,
			&i.SaleCount,
			&i.StartPrice,
			&i.DeliveryFee,
			&i.DeliveryTime,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getRunItemCount = `-- name: GetRunItemCount :one
select count(*) from menu_item
inner join storefront_page on storefront_page.id = menu_item.page_id
inner join storefront on storefront.id = storefront_page.storefront_id
where storefront.run_id = ?
`

func (q *Queries) GetRunItemCount(ctx context.Context, runID int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, getRunItemCount, runID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const getItemHistory = `-- name: GetItemHistory :many
select run.started_at, menu_item.price, menu_item.monthly_sold_count
from menu_item
inner join storefront_page on storefront_page.id = menu_item.page_id
inner join storefront on storefront.id = storefront_page.storefront_id
inner join run on run.id = storefront.run_id
where storefront_page.url = ? and menu_item.item_id = ?
order by run.started_at
`

type GetItemHistoryRow struct {
	StartedAt        int64
	Price            float64
	MonthlySoldCount sql.NullInt64
}

func (q *Queries) GetItemHistory(ctx context.Context, url string, itemID string) ([]GetItemHistoryRow, error) {
	rows, err := q.db.QueryContext(ctx, getItemHistory, url, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetItemHistoryRow
	for rows.Next() {
		var i GetItemHistoryRow
		if err := rows.Scan(&i.StartedAt, &i.Price, &i.MonthlySoldCount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
