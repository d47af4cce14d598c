package domain

import "context"

// Staff is the ledger's view of an employee owned by the user service
type Staff struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	Username string `json:"username" gorm:"uniqueIndex;not null"`
	FullName string `json:"full_name"`
	Role     string `json:"role" gorm:"type:varchar(32)"`
}

// TableName specifies the table name
func (Staff) TableName() string {
	return "staff"
}

// DisplayName prefers the full name
func (s *Staff) DisplayName() string {
	if s.FullName != "" {
		return s.FullName
	}
	return s.Username
}

// StaffRepository defines the contract for staff lookups
type StaffRepository interface {
	Create(ctx context.Context, staff *Staff) error
	FindByID(ctx context.Context, id uint) (*Staff, error)
	FindAll(ctx context.Context) ([]Staff, error)
}
