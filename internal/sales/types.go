package sales

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pos-backend/pkg/db/models"
	"github.com/angelmondragon/pos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/types"
)

// Sale is a completed checkout as stored in the Sale Store.
type Sale struct {
	ID             string               `json:"id"`
	OrderID        string               `json:"orderId"`
	Items          types.SaleItems      `json:"items"`
	Total          float64              `json:"total"`
	PaymentMethod  enums.PaymentMethod  `json:"paymentMethod"`
	Salesman       string               `json:"salesman"`
	DeliveryStatus enums.DeliveryStatus `json:"deliveryStatus"`
	SalesStatus    enums.SalesStatus    `json:"salesStatus"`
	Timestamp      time.Time            `json:"timestamp"`
}

// ItemCount returns the number of units sold in the sale.
func (s Sale) ItemCount() int {
	return s.Items.Quantity()
}

func (s Sale) clone() Sale {
	s.Items = s.Items.Clone()
	return s
}

func cloneSales(in []Sale) []Sale {
	if in == nil {
		return []Sale{}
	}
	out := make([]Sale, len(in))
	for i, s := range in {
		out[i] = s.clone()
	}
	return out
}

// NewSale is the input accepted by Repository.AddSale.
type NewSale struct {
	Items         types.SaleItems     `json:"items"`
	Total         float64             `json:"total"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod"`
	Salesman      string              `json:"salesman"`
}

func (n NewSale) validate() error {
	if len(n.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale has no items")
	}
	if !n.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method").
			WithDetails(map[string]any{"paymentMethod": n.PaymentMethod})
	}
	if strings.TrimSpace(n.Salesman) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "salesman is required")
	}
	if n.Total < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "total must not be negative")
	}
	return nil
}

// Patch is a partial update of the mutable status fields of a sale.
type Patch struct {
	DeliveryStatus *enums.DeliveryStatus `json:"deliveryStatus,omitempty"`
	SalesStatus    *enums.SalesStatus    `json:"salesStatus,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.DeliveryStatus == nil && p.SalesStatus == nil
}

// Validate checks that the patch carries at least one known status.
func (p Patch) Validate() error {
	if p.IsEmpty() {
		return pkgerrors.New(pkgerrors.CodeValidation, "patch must set deliveryStatus or salesStatus")
	}
	if p.DeliveryStatus != nil && !p.DeliveryStatus.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery status").
			WithDetails(map[string]any{"deliveryStatus": *p.DeliveryStatus})
	}
	if p.SalesStatus != nil && !p.SalesStatus.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid sales status").
			WithDetails(map[string]any{"salesStatus": *p.SalesStatus})
	}
	return nil
}

// Apply returns s with the patched fields replaced.
func (p Patch) Apply(s Sale) Sale {
	if p.DeliveryStatus != nil {
		s.DeliveryStatus = *p.DeliveryStatus
	}
	if p.SalesStatus != nil {
		s.SalesStatus = *p.SalesStatus
	}
	return s
}

func (p Patch) columns() map[string]any {
	cols := map[string]any{}
	if p.DeliveryStatus != nil {
		cols["delivery_status"] = *p.DeliveryStatus
	}
	if p.SalesStatus != nil {
		cols["sales_status"] = *p.SalesStatus
	}
	return cols
}

func toModel(s Sale) models.Sale {
	return models.Sale{
		ID:             s.ID,
		OrderID:        s.OrderID,
		Items:          s.Items,
		Total:          decimal.NewFromFloat(s.Total).Round(2),
		PaymentMethod:  s.PaymentMethod,
		Salesman:       s.Salesman,
		DeliveryStatus: s.DeliveryStatus,
		SalesStatus:    s.SalesStatus,
		Timestamp:      s.Timestamp,
	}
}

func fromModel(m models.Sale) Sale {
	items := m.Items
	if items == nil {
		items = types.SaleItems{}
	}
	return Sale{
		ID:             m.ID,
		OrderID:        m.OrderID,
		Items:          items,
		Total:          m.Total.InexactFloat64(),
		PaymentMethod:  m.PaymentMethod,
		Salesman:       m.Salesman,
		DeliveryStatus: m.DeliveryStatus,
		SalesStatus:    m.SalesStatus,
		Timestamp:      m.Timestamp.UTC(),
	}
}
