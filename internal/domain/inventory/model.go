package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// Part — запчасть из каталога с текущим остатком на складе.
type Part struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	CreatedAt time.Time       `json:"createdAt"`
}

// TotalPrice считается на лету и нигде не хранится.
func (p Part) TotalPrice() decimal.Decimal {
	return p.UnitPrice.Mul(decimal.NewFromInt(p.Quantity))
}

type NewPart struct {
	Name      string          `validate:"required,max=100"`
	Category  string          `validate:"required,max=50"`
	Quantity  int64           `validate:"gte=0"`
	UnitPrice decimal.Decimal `validate:"-"`
}

// StockIn — приход. После создания не меняется.
type StockIn struct {
	ID        int64     `json:"id"`
	PartID    int64     `json:"partId"`
	Quantity  int64     `json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
}

// StockOut — расход по цене на момент продажи (не зависит от Part.UnitPrice).
type StockOut struct {
	ID        int64           `json:"id"`
	PartID    int64           `json:"partId"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	CreatedAt time.Time       `json:"createdAt"`
}

func (e StockOut) TotalPrice() decimal.Decimal {
	return e.UnitPrice.Mul(decimal.NewFromInt(e.Quantity))
}

type StockInView struct {
	StockIn
	PartName string `json:"partName"`
	Category string `json:"category"`
}

type StockOutView struct {
	StockOut
	PartName string `json:"partName"`
	Category string `json:"category"`
}

// Totals — суммарные приход/расход по одной запчасти за всё время.
type Totals struct {
	In  int64
	Out int64
}

// StockOutFilter ограничивает выборку полуинтервалом [From, To). Нулевое время — без границы.
type StockOutFilter struct {
	From time.Time
	To   time.Time
}
