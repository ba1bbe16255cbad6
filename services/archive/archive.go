// Package archive keeps a history of pipeline runs: the storefronts each
// run resolved and every menu item it scraped.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"
	"waimai-crawler/services/archive/db"
	"waimai-crawler/services/resolver"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("waimai.services.archive")

type Store struct {
	db  *sql.DB
	qry *db.Queries
}

func NewStore(database *sql.DB) Store {
	return Store{
		db:  database,
		qry: db.New(database),
	}
}

// Record saves one run in a single transaction and returns its id.
func (s Store) Record(ctx context.Context, result resolver.Result) (int64, error) {
	ctx, span := tracer.Start(ctx, "Record")
	defer span.End()
	span.SetAttributes(
		attribute.String("city", result.City.Name),
		attribute.String("brand", result.Brand),
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	runId, err := txqry.CreateRun(ctx, db.CreateRunParams{
		City:      result.City.Name,
		CityID:    result.City.Id,
		Brand:     result.Brand,
		StartedAt: result.StartedAt.Unix(),
		Filename:  result.Filename,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("create run: %w", err)
	}

	storefrontIds := map[*resolver.Candidate]int64{}
	for _, c := range result.Storefronts {
		id, err := txqry.CreateStorefront(ctx, db.CreateStorefrontParams{
			RunID:        runId,
			Name:         c.Name,
			Address:      c.Address,
			Lat:          c.Lat,
			Lng:          c.Lng,
			GeoHash:      c.GeoHash,
			SaleCount:    nullString(c.Stats.SaleCount),
			StartPrice:   nullString(c.Stats.StartPrice),
			DeliveryFee:  nullString(c.Stats.DeliveryFee),
			DeliveryTime: nullString(c.Stats.DeliveryTime),
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return 0, fmt.Errorf("create storefront %s: %w", c.Address, err)
		}
		storefrontIds[c] = id
	}

	for _, menu := range result.Menus {
		storefrontId, ok := storefrontIds[menu.Candidate]
		if !ok {
			continue
		}
		pageId, err := txqry.CreateStorefrontPage(ctx, db.CreateStorefrontPageParams{
			StorefrontID: storefrontId,
			Idx:          int64(menu.Index),
			Url:          menu.Url,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return 0, fmt.Errorf("create page %s: %w", menu.Url, err)
		}

		for _, item := range menu.Items {
			err := txqry.CreateMenuItem(ctx, db.CreateMenuItemParams{
				PageID:           pageId,
				ItemID:           item.Id,
				Name:             item.Name,
				Price:            item.Price,
				OriginPrice:      item.OriginPrice,
				IsSoldOut:        item.IsSoldOut,
				MinOrderCount:    int64(item.MinOrderCount),
				MonthlySoldCount: nullInt(item.MonthlySoldCount),
				Description:      nullString(item.Description),
				LikeCount:        nullInt(item.LikeCount),
			})
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return 0, fmt.Errorf("create item %s: %w", item.Id, err)
			}
		}
	}

	err = tx.Commit()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	return runId, nil
}

type RunSummary struct {
	Id          int64
	City        string
	Brand       string
	StartedAt   time.Time
	Filename    string
	Storefronts int
	Items       int64
}

// Runs lists the latest `limit` runs, newest first.
func (s Store) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	ctx, span := tracer.Start(ctx, "Runs")
	defer span.End()

	runs, err := s.qry.ListRuns(ctx, int64(limit))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	out := make([]RunSummary, len(runs))
	for i, r := range runs {
		storefronts, err := s.qry.GetRunStorefronts(ctx, r.ID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		items, err := s.qry.GetRunItemCount(ctx, r.ID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		out[i] = RunSummary{
			Id:          r.ID,
			City:        r.City,
			Brand:       r.Brand,
			StartedAt:   time.Unix(r.StartedAt, 0),
			Filename:    r.Filename,
			Storefronts: len(storefronts),
			Items:       items,
		}
	}
	return out, nil
}

type PricePoint struct {
	Time             time.Time
	Price            float64
	MonthlySoldCount *int
}

// ItemHistory returns how one item of a storefront page changed across
// runs, oldest first.
func (s Store) ItemHistory(ctx context.Context, pageUrl, itemId string) ([]PricePoint, error) {
	ctx, span := tracer.Start(ctx, "ItemHistory")
	defer span.End()

	rows, err := s.qry.GetItemHistory(ctx, pageUrl, itemId)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	out := make([]PricePoint, len(rows))
	for i, r := range rows {
		out[i] = PricePoint{
			Time:  time.Unix(r.StartedAt, 0),
			Price: r.Price,
		}
		if r.MonthlySoldCount.Valid {
			sold := int(r.MonthlySoldCount.Int64)
			out[i].MonthlySoldCount = &sold
		}
	}
	return out, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
