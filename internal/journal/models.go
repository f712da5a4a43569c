package journal

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pdvlabs/balcao/pkg/enums"
	"github.com/pdvlabs/balcao/pkg/money"
)

// SaleRecord is the terminal-local copy of a settled sale. The backend
// remains the source of truth; the journal exists so the operator can
// review the shift and reconcile the till when the network is gone.
type SaleRecord struct {
	ID               uuid.UUID     `gorm:"column:id;type:text;primaryKey"`
	SaleID           *int64        `gorm:"column:sale_id"`
	OrderID          *int64        `gorm:"column:order_id"`
	TerminalID       string        `gorm:"column:terminal_id;not null"`
	Operator         string        `gorm:"column:operator"`
	TotalCents       int64         `gorm:"column:total_cents;not null"`
	ChangeGivenCents int64         `gorm:"column:change_given_cents;not null"`
	Payments         []SalePayment `gorm:"foreignKey:RecordID"`
	RecordedAt       time.Time     `gorm:"column:recorded_at;autoCreateTime"`
}

func (SaleRecord) TableName() string { return "sale_records" }

// SalePayment is one tender line of a journaled sale.
type SalePayment struct {
	ID          int64               `gorm:"column:id;primaryKey;autoIncrement"`
	RecordID    uuid.UUID           `gorm:"column:record_id;type:text;not null;index"`
	Method      enums.PaymentMethod `gorm:"column:method;type:text;not null"`
	AmountCents int64               `gorm:"column:amount_cents;not null"`
}

func (SalePayment) TableName() string { return "sale_payments" }

// Total reconstitutes the stored cents as a display amount.
func (r SaleRecord) Total() decimal.Decimal { return money.FromCents(r.TotalCents) }

// ChangeGiven reconstitutes the stored change as a display amount.
func (r SaleRecord) ChangeGiven() decimal.Decimal { return money.FromCents(r.ChangeGivenCents) }

// Amount reconstitutes the stored cents as a display amount.
func (p SalePayment) Amount() decimal.Decimal { return money.FromCents(p.AmountCents) }
