package domain

import "time"

// ProductStatus 商品的销售状态
type ProductStatus string

const (
	ProductForSale ProductStatus = "forsale"
	ProductSoldOut ProductStatus = "soldout"
)

// Product 是外部商品记录中与库存对账相关的部分
type Product struct {
	ID        string
	Name      string
	Price     int64
	Stock     int
	Sales     int
	Status    ProductStatus
	Brand     string
	UpdatedAt time.Time
}

// Decrement 下单时扣减库存。库存最低为 0，归零后标记为售罄。
func (p *Product) Decrement(qty int) {
	p.Stock = max(0, p.Stock-qty)
	p.Sales += qty
	if p.Stock == 0 {
		p.Status = ProductSoldOut
	}
}

// Restock 取消或退货完成时回补库存，销量最低为 0
func (p *Product) Restock(qty int) {
	p.Stock += qty
	p.Sales = max(0, p.Sales-qty)
	if p.Stock > 0 {
		p.Status = ProductForSale
	}
}
