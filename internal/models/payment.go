package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentCategory classifies money movements; roles see only some categories.
type PaymentCategory string

const (
	PaymentReceivable PaymentCategory = "RECEIVABLE"
	PaymentPayable    PaymentCategory = "PAYABLE"
	PaymentRefund     PaymentCategory = "REFUND"
	PaymentFreight    PaymentCategory = "FREIGHT"
)

// PaymentCategories lists every category.
func PaymentCategories() []PaymentCategory {
	return []PaymentCategory{PaymentReceivable, PaymentPayable, PaymentRefund, PaymentFreight}
}

// ParsePaymentCategory normalises input into a known category.
func ParsePaymentCategory(value string) (PaymentCategory, bool) {
	category := PaymentCategory(strings.ToUpper(strings.TrimSpace(value)))
	for _, known := range PaymentCategories() {
		if category == known {
			return category, true
		}
	}
	return "", false
}

// Payment records an incoming or outgoing amount.
type Payment struct {
	TenantModel

	Category        PaymentCategory `gorm:"size:32;not null;index" json:"category"`
	Amount          decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	Currency        string          `gorm:"size:3;not null;default:USD" json:"currency"`
	Reference       string          `gorm:"size:128" json:"reference"`
	SalesOrderID    *string         `gorm:"type:uuid;index" json:"sales_order_id"`
	PurchaseOrderID *string         `gorm:"type:uuid;index" json:"purchase_order_id"`
	PaidAt          *time.Time      `gorm:"index" json:"paid_at"`
	Status          Status          `gorm:"size:32;not null;index" json:"status"`
}
