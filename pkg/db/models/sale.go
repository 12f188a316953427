package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pos-backend/pkg/enums"
	"github.com/angelmondragon/pos-backend/pkg/types"
)

// Sale is one persisted sale document. Timestamp is assigned by the store at
// write time and kept in UTC.
type Sale struct {
	ID             string               `gorm:"column:id;primaryKey"`
	OrderID        string               `gorm:"column:order_id;not null"`
	Items          types.SaleItems      `gorm:"column:items;type:jsonb;not null"`
	Total          decimal.Decimal      `gorm:"column:total;type:numeric(12,2);not null"`
	PaymentMethod  enums.PaymentMethod  `gorm:"column:payment_method;not null"`
	Salesman       string               `gorm:"column:salesman;not null"`
	DeliveryStatus enums.DeliveryStatus `gorm:"column:delivery_status;not null"`
	SalesStatus    enums.SalesStatus    `gorm:"column:sales_status;not null"`
	Timestamp      time.Time            `gorm:"column:sold_at;not null"`
}

func (Sale) TableName() string { return "sales" }
