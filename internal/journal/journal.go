package journal

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pdvlabs/balcao/pkg/config"
	"github.com/pdvlabs/balcao/pkg/enums"
	pkgerrors "github.com/pdvlabs/balcao/pkg/errors"
	"github.com/pdvlabs/balcao/pkg/logger"
	"github.com/pdvlabs/balcao/pkg/money"
)

// Journal is the terminal-local sale log backed by a SQLite file.
type Journal struct {
	db         *gorm.DB
	terminalID string
	operator   string
}

// Entry is what a settlement hands the journal for recording.
type Entry struct {
	SaleID      *int64
	OrderID     *int64
	Total       decimal.Decimal
	ChangeGiven decimal.Decimal
	Payments    []PaymentLine
}

// PaymentLine is one tender of an Entry.
type PaymentLine struct {
	Method enums.PaymentMethod
	Amount decimal.Decimal
}

// MethodTotal is one row of the per-method shift summary.
type MethodTotal struct {
	Method enums.PaymentMethod
	Total  decimal.Decimal
}

// New opens (or creates) the journal file and migrates its schema.
func New(ctx context.Context, cfg config.JournalConfig, terminalID, operator string, logg *logger.Logger) (*Journal, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("journal path is required")
	}
	if terminalID == "" {
		return nil, fmt.Errorf("terminal id is required")
	}

	gormLogger := gormlogger.New(
		log.New(io.Discard, "", log.LstdFlags),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)

	conn, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening journal db: %w", err)
	}

	if err := conn.AutoMigrate(&SaleRecord{}, &SalePayment{}); err != nil {
		return nil, fmt.Errorf("migrating journal schema: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "sale journal opened")
	}

	return &Journal{db: conn, terminalID: terminalID, operator: operator}, nil
}

// Record appends one settled sale and its tender lines atomically.
func (j *Journal) Record(ctx context.Context, entry Entry) (*SaleRecord, error) {
	if len(entry.Payments) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a journaled sale needs at least one payment")
	}
	if entry.Total.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a journaled sale needs a positive total")
	}

	record := &SaleRecord{
		ID:               uuid.New(),
		SaleID:           entry.SaleID,
		OrderID:          entry.OrderID,
		TerminalID:       j.terminalID,
		Operator:         j.operator,
		TotalCents:       money.Cents(entry.Total),
		ChangeGivenCents: money.Cents(entry.ChangeGiven),
	}
	for _, p := range entry.Payments {
		record.Payments = append(record.Payments, SalePayment{
			RecordID:    record.ID,
			Method:      p.Method,
			AmountCents: money.Cents(p.Amount),
		})
	}

	err := j.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(record).Error
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording sale in journal")
	}
	return record, nil
}

// Recent returns the latest journaled sales for this terminal, newest
// first, with their tender lines loaded.
func (j *Journal) Recent(ctx context.Context, limit int) ([]SaleRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []SaleRecord
	err := j.db.WithContext(ctx).
		Preload("Payments").
		Where("terminal_id = ?", j.terminalID).
		Order("recorded_at DESC, id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reading journal")
	}
	return records, nil
}

// TotalsByMethod sums the terminal's tender lines per payment method for
// the given day. A zero day means the whole journal.
func (j *Journal) TotalsByMethod(ctx context.Context, day time.Time) ([]MethodTotal, error) {
	type row struct {
		Method enums.PaymentMethod
		Cents  int64
	}
	query := j.db.WithContext(ctx).
		Model(&SalePayment{}).
		Select("sale_payments.method AS method, SUM(sale_payments.amount_cents) AS cents").
		Joins("JOIN sale_records ON sale_records.id = sale_payments.record_id").
		Where("sale_records.terminal_id = ?", j.terminalID)
	if !day.IsZero() {
		start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
		query = query.Where("sale_records.recorded_at >= ? AND sale_records.recorded_at < ?", start, start.AddDate(0, 0, 1))
	}

	var rows []row
	err := query.
		Group("sale_payments.method").
		Order("cents DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "summing journal totals")
	}

	totals := make([]MethodTotal, 0, len(rows))
	for _, r := range rows {
		totals = append(totals, MethodTotal{Method: r.Method, Total: money.FromCents(r.Cents)})
	}
	return totals, nil
}

// Close releases the underlying SQLite handle.
func (j *Journal) Close() error {
	var errs error
	sqlDB, err := j.db.DB()
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("getting sql db handle: %w", err))
		return errs
	}
	if err := sqlDB.Close(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("closing journal db: %w", err))
	}
	return errs
}
