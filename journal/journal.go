// Package journal persists the latest known state of every order so a
// restarted process can reconcile against what it had in flight. It is a
// state journal keyed by client order id, not a trade history.
package journal

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kanekoshoyu/guilder/adapter"
	ierr "github.com/kanekoshoyu/guilder/internal/errors"
)

// OrderRecord is the journal row. Decimals travel as strings so the
// database never rounds them.
type OrderRecord struct {
	Cloid        int64  `gorm:"primaryKey"`
	Symbol       string `gorm:"index"`
	Price        string
	Volume       string
	Filled       string
	State        uint16
	VenueOrderID string
	Reason       string
	UpdatedAt    time.Time
}

// TableName keeps the table name stable across gorm naming strategies.
func (OrderRecord) TableName() string {
	return "order_records"
}

// Journal writes order snapshots to the database.
type Journal struct {
	db *gorm.DB
}

func New(db *gorm.DB) (*Journal, error) {
	if err := db.AutoMigrate(&OrderRecord{}); err != nil {
		return nil, ierr.Wrap(err, "migrate order journal")
	}

	return &Journal{db: db}, nil
}

// Record upserts the order's latest snapshot.
func (j *Journal) Record(ctx context.Context, order adapter.Order) error {
	record := toRecord(order)
	err := j.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cloid"}},
			UpdateAll: true,
		}).
		Create(&record).Error
	if err != nil {
		return ierr.Wrapf(err, "journal order, cloid: %d", order.Cloid)
	}

	return nil
}

// Load returns every journaled order, open ones first.
func (j *Journal) Load(ctx context.Context) ([]adapter.Order, error) {
	var records []OrderRecord
	if err := j.db.WithContext(ctx).Order("updated_at desc").Find(&records).Error; err != nil {
		return nil, ierr.Wrap(err, "load order journal")
	}

	orders := make([]adapter.Order, 0, len(records))
	for _, record := range records {
		order, err := fromRecord(record)
		if err != nil {
			logs.Warnf("skip corrupt journal row, cloid: %d, err: %+v", record.Cloid, err)
			continue
		}
		orders = append(orders, order)
	}

	return orders, nil
}

// Run drains an order update subscription into the journal until the
// channel closes or the context ends. Write failures are logged and the
// stream keeps going; the journal is best effort by design of the venue
// being the source of truth.
func (j *Journal) Run(ctx context.Context, updates <-chan adapter.Order) {
	for {
		select {
		case <-ctx.Done():
			return
		case order, ok := <-updates:
			if !ok {
				return
			}
			if err := j.Record(ctx, order); err != nil {
				logs.Errorf("journal write failed, cloid: %d, err: %+v", order.Cloid, err)
			}
		}
	}
}

func toRecord(order adapter.Order) OrderRecord {
	return OrderRecord{
		Cloid:        int64(order.Cloid),
		Symbol:       string(order.Symbol),
		Price:        order.Price.String(),
		Volume:       order.Volume.String(),
		Filled:       order.Filled.String(),
		State:        uint16(order.State),
		VenueOrderID: order.VenueOrderID,
		Reason:       order.Reason,
		UpdatedAt:    order.UpdatedAt,
	}
}

func fromRecord(record OrderRecord) (adapter.Order, error) {
	price, err := decimal.NewFromString(record.Price)
	if err != nil {
		return adapter.Order{}, ierr.Wrap(err, "parse price")
	}
	volume, err := decimal.NewFromString(record.Volume)
	if err != nil {
		return adapter.Order{}, ierr.Wrap(err, "parse volume")
	}
	filled, err := decimal.NewFromString(record.Filled)
	if err != nil {
		return adapter.Order{}, ierr.Wrap(err, "parse filled")
	}

	return adapter.Order{
		Cloid:        adapter.Cloid(record.Cloid),
		Symbol:       adapter.Symbol(record.Symbol),
		Price:        price,
		Volume:       volume,
		Filled:       filled,
		State:        adapter.OrderState(record.State),
		VenueOrderID: record.VenueOrderID,
		Reason:       record.Reason,
		UpdatedAt:    record.UpdatedAt,
	}, nil
}
