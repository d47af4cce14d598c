package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Customer is a registered shopper with loyalty statistics
type Customer struct {
	ID               uint            `json:"id" gorm:"primaryKey"`
	Name             string          `json:"name" gorm:"not null"`
	Phone            *string         `json:"phone,omitempty" gorm:"uniqueIndex"`
	TotalPurchases   decimal.Decimal `json:"total_purchases" gorm:"type:numeric(14,2);not null;default:0"`
	LoyaltyPoints    int             `json:"loyalty_points" gorm:"not null;default:0"`
	AvgTicketSize    decimal.Decimal `json:"avg_ticket_size" gorm:"type:numeric(12,2);not null;default:0"`
	VisitCount       int             `json:"visit_count" gorm:"not null;default:0"`
	FavoriteCategory string          `json:"favorite_category,omitempty"`
	LastVisitAt      *time.Time      `json:"last_visit_at,omitempty" gorm:"index"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// TableName specifies the table name
func (Customer) TableName() string {
	return "customers"
}

// IsStagnant reports a regular (minVisits or more) who has not been seen since cutoff
func (c *Customer) IsStagnant(cutoff time.Time, minVisits int) bool {
	return c.VisitCount >= minVisits && c.LastVisitAt != nil && c.LastVisitAt.Before(cutoff)
}

// CustomerRepository defines the contract for customer data access
type CustomerRepository interface {
	Create(ctx context.Context, customer *Customer) error
	FindByID(ctx context.Context, id uint) (*Customer, error)
	// FindByIDForUpdate locks the row for the rest of the unit of work.
	FindByIDForUpdate(ctx context.Context, id uint) (*Customer, error)
	FindByPhone(ctx context.Context, phone string) (*Customer, error)
	FindStagnant(ctx context.Context, lastVisitBefore time.Time, minVisits int) ([]Customer, error)
	Update(ctx context.Context, customer *Customer) error
}
