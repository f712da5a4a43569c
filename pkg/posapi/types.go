package posapi

import (
	"github.com/pdvlabs/balcao/pkg/enums"
)

// Wire DTOs for the POS backend. Monetary fields are plain JSON numbers
// with two-decimal semantics; the client rounds before sending and never
// relies on the server to round.

// Product is the backend's product projection used by lookup and search.
type Product struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Barcode  string  `json:"barcode,omitempty"`
	Price    float64 `json:"price"`
	Stock    int     `json:"stock"`
	ImageURL string  `json:"image_url,omitempty"`
}

// OrderItem is one line of a server-side order.
type OrderItem struct {
	ID              int64    `json:"id"`
	ProductID       int64    `json:"product_id"`
	Quantity        int      `json:"quantity"`
	PaidQuantity    int      `json:"paid_quantity"`
	PriceAtOrder    float64  `json:"price_at_order"`
	PriceAtAddition *float64 `json:"price_at_addition,omitempty"`
	Product         *Product `json:"product,omitempty"`
}

// UnitPrice resolves the price captured when the line was added. Older
// backend revisions name the field price_at_addition.
func (i OrderItem) UnitPrice() float64 {
	if i.PriceAtOrder != 0 {
		return i.PriceAtOrder
	}
	if i.PriceAtAddition != nil {
		return *i.PriceAtAddition
	}
	if i.Product != nil {
		return i.Product.Price
	}
	return 0
}

// Order is the authoritative server-side aggregate. Version carries the
// optimistic concurrency token echoed back on every mutation.
type Order struct {
	ID         int64             `json:"id"`
	Status     enums.OrderStatus `json:"status"`
	OrderType  enums.OrderType   `json:"order_type"`
	CustomerID *int64            `json:"customer_id,omitempty"`
	Customer   *Customer         `json:"customer,omitempty"`
	Items      []OrderItem       `json:"items"`
	Version    int64             `json:"version,omitempty"`
}

// Customer is the minimal customer projection the terminal needs.
type Customer struct {
	ID            int64  `json:"id"`
	FullName      string `json:"full_name"`
	Email         string `json:"email,omitempty"`
	PhoneNumber   string `json:"phone_number,omitempty"`
	LoyaltyPoints int    `json:"loyalty_points,omitempty"`
}

// CashRegisterStatus reports whether a till session is open.
type CashRegisterStatus struct {
	IsOpen         bool    `json:"is_open"`
	OpenedBy       string  `json:"opened_by,omitempty"`
	OpeningBalance float64 `json:"opening_balance,omitempty"`
}

// NewOrderItem is the create/add-item payload line.
type NewOrderItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// CreateOrderRequest creates the order lazily on the first add-to-cart.
type CreateOrderRequest struct {
	OrderType  enums.OrderType `json:"order_type"`
	CustomerID *int64          `json:"customer_id,omitempty"`
	Items      []NewOrderItem  `json:"items"`
}

// PaymentEntry is one tuple of the settlement payload.
type PaymentEntry struct {
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Amount        float64             `json:"amount"`
}

// SaleItem is one settled line of a sale record.
type SaleItem struct {
	ProductID   int64   `json:"product_id"`
	Quantity    int     `json:"quantity"`
	PriceAtSale float64 `json:"price_at_sale"`
}

// CreateSaleRequest is the full-settlement payload for POST /sales.
type CreateSaleRequest struct {
	Items       []SaleItem     `json:"items"`
	Payments    []PaymentEntry `json:"payments"`
	CustomerID  *int64         `json:"customer_id,omitempty"`
	TotalAmount float64        `json:"total_amount"`
	OrderID     *int64         `json:"order_id,omitempty"`
}

// Sale is the persisted sale record returned on settlement.
type Sale struct {
	ID          int64          `json:"id"`
	TotalAmount float64        `json:"total_amount"`
	CustomerID  *int64         `json:"customer_id,omitempty"`
	Payments    []PaymentEntry `json:"payments"`
}

// PartialPaymentItem names an order line and the quantity being settled.
type PartialPaymentItem struct {
	OrderItemID int64 `json:"order_item_id"`
	Quantity    int   `json:"quantity"`
}

// PartialPaymentRequest settles a subset of an open order's items.
type PartialPaymentRequest struct {
	ItemsToPay []PartialPaymentItem `json:"items_to_pay"`
	Payments   []PaymentEntry       `json:"payments"`
	CustomerID *int64               `json:"customer_id,omitempty"`
}

// CreateCustomerRequest registers a walk-in customer from the terminal.
type CreateCustomerRequest struct {
	FullName    string `json:"full_name" validate:"required"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

type errorPayload struct {
	Detail string `json:"detail"`
}
