package infrastructure

import (
	"context"
	"errors"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront/internal/pkg/apperr"
	"storefront/internal/pkg/database"
	"storefront/internal/service/order/domain"
)

// mysqlDuplicateEntry 是 MySQL 唯一索引冲突的错误码
const mysqlDuplicateEntry = 1062

// GormOrderRepository 是 OrderRepository 的 GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	model, err := FromDomainOrder(order)
	if err != nil {
		return err
	}
	if err := database.Conn(ctx, r.db).Create(model).Error; err != nil {
		var myErr *mysqldriver.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
			return domain.ErrDuplicateSubmission
		}
		return apperr.Store("orders.insert", err)
	}
	return nil
}

func (r *GormOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	model, err := FromDomainOrder(order)
	if err != nil {
		return err
	}
	err = database.Conn(ctx, r.db).
		Model(&OrderModel{ID: order.ID}).
		Select(mutableOrderColumns).
		Updates(model).Error
	if err != nil {
		return apperr.Store("orders.update", err)
	}
	return nil
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.find(database.Conn(ctx, r.db), id)
}

func (r *GormOrderRepository) FindByIDForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	return r.find(database.Conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormOrderRepository) find(db *gorm.DB, id string) (*domain.Order, error) {
	var model OrderModel
	if err := db.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, apperr.Store("orders.find", err)
	}
	o, err := ToDomainOrder(&model)
	if err != nil {
		return nil, apperr.Store("orders.decode", err)
	}
	return o, nil
}

func (r *GormOrderRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	var models []OrderModel
	err := database.Conn(ctx, r.db).
		Where("user_id = ?", userID).
		Order("order_date DESC").
		Find(&models).Error
	if err != nil {
		return nil, apperr.Store("orders.list", err)
	}

	orders := make([]*domain.Order, 0, len(models))
	for i := range models {
		o, err := ToDomainOrder(&models[i])
		if err != nil {
			return nil, apperr.Store("orders.decode", err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// GormProductRepository 只负责库存相关列
type GormProductRepository struct {
	db *gorm.DB
}

func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	return r.find(database.Conn(ctx, r.db), id)
}

func (r *GormProductRepository) FindByIDForUpdate(ctx context.Context, id string) (*domain.Product, error) {
	return r.find(database.Conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormProductRepository) find(db *gorm.DB, id string) (*domain.Product, error) {
	var model ProductModel
	if err := db.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, apperr.Store("products.find", err)
	}
	return ToDomainProduct(&model), nil
}

func (r *GormProductRepository) SaveStock(ctx context.Context, p *domain.Product) error {
	err := database.Conn(ctx, r.db).
		Model(&ProductModel{ID: p.ID}).
		Updates(map[string]interface{}{
			"stock":      p.Stock,
			"sales":      p.Sales,
			"status":     string(p.Status),
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		return apperr.Store("products.save_stock", err)
	}
	return nil
}
