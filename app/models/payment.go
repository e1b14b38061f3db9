package models

import "time"

// Payment is one accepted PAYMENT.SALE.COMPLETED notification. Rows are
// written exactly once on ingestion and removed only by the retention sweep;
// nothing updates them in place.
type Payment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PaymentID   string    `gorm:"type:varchar(64);not null;index" json:"payment_id"`
	Amount      float64   `gorm:"not null" json:"amount"`
	Currency    string    `gorm:"type:varchar(8);not null" json:"currency"`
	Status      string    `gorm:"type:varchar(32);not null" json:"status"`
	CreateTime  string    `gorm:"type:varchar(64);not null" json:"create_time"`
	ProcessedAt time.Time `gorm:"type:timestamp;not null;index" json:"processed_at"`

	// Legacy denormalized window columns carried over from the previous
	// schema. They only ever hold their defaults and must not be read as a
	// data source; rolling statistics are derived from the rows themselves.
	Payments24h int     `gorm:"not null;default:0" json:"-"`
	Amount24h   float64 `gorm:"not null;default:0" json:"-"`
	Payments7d  int     `gorm:"not null;default:0" json:"-"`
	Amount7d    float64 `gorm:"not null;default:0" json:"-"`
}
