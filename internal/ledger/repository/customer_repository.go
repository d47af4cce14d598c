package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tair/retail-ledger/internal/ledger/domain"
)

type GormCustomerRepository struct {
	db *gorm.DB
}

func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

func (r *GormCustomerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	if customer.Phone != nil {
		if _, err := r.FindByPhone(ctx, *customer.Phone); err == nil {
			return fmt.Errorf("%w: phone %s is already registered", domain.ErrInvalidInput, *customer.Phone)
		}
	}
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *GormCustomerRepository) FindByID(ctx context.Context, id uint) (*domain.Customer, error) {
	var customer domain.Customer
	err := r.db.WithContext(ctx).First(&customer, id).Error
	if err != nil {
		return nil, notFound(err, domain.ErrCustomerNotFound)
	}
	return &customer, nil
}

func (r *GormCustomerRepository) FindByIDForUpdate(ctx context.Context, id uint) (*domain.Customer, error) {
	var customer domain.Customer
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&customer, id).Error
	if err != nil {
		return nil, notFound(err, domain.ErrCustomerNotFound)
	}
	return &customer, nil
}

func (r *GormCustomerRepository) FindByPhone(ctx context.Context, phone string) (*domain.Customer, error) {
	var customer domain.Customer
	err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&customer).Error
	if err != nil {
		return nil, notFound(err, domain.ErrCustomerNotFound)
	}
	return &customer, nil
}

func (r *GormCustomerRepository) FindStagnant(ctx context.Context, lastVisitBefore time.Time, minVisits int) ([]domain.Customer, error) {
	var customers []domain.Customer
	err := r.db.WithContext(ctx).
		Where("visit_count >= ? AND last_visit_at IS NOT NULL AND last_visit_at < ?", minVisits, lastVisitBefore.UTC()).
		Find(&customers).Error
	return customers, err
}

func (r *GormCustomerRepository) Update(ctx context.Context, customer *domain.Customer) error {
	return r.db.WithContext(ctx).Save(customer).Error
}
