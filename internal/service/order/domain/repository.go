// internal/service/order/domain/repository.go
package domain

import "context"

// OrderRepository 定义了订单聚合的持久化接口。
// 它位于领域层，但由基础设施层实现。
type OrderRepository interface {
	// Create 插入新订单；payment key 重复时返回 ErrDuplicateSubmission。
	Create(ctx context.Context, order *Order) error

	// Update 保存状态及物流、取消、退货等元数据。金额和商品快照不会被更新。
	Update(ctx context.Context, order *Order) error

	FindByID(ctx context.Context, id string) (*Order, error)

	// FindByIDForUpdate 在当前事务中锁定订单行
	FindByIDForUpdate(ctx context.Context, id string) (*Order, error)

	// ListByUser 按下单时间倒序返回用户的全部订单
	ListByUser(ctx context.Context, userID string) ([]*Order, error)
}

// ProductRepository 只暴露库存对账需要的操作
type ProductRepository interface {
	FindByID(ctx context.Context, id string) (*Product, error)
	FindByIDForUpdate(ctx context.Context, id string) (*Product, error)
	// SaveStock 写回 stock、sales、status
	SaveStock(ctx context.Context, product *Product) error
}
