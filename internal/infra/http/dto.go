package http

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Spok95/spare-stock/internal/domain/inventory"
	"github.com/Spok95/spare-stock/internal/domain/reports"
)

// Деньги уходят клиенту строкой с двумя знаками: "25.00".

type partRequest struct {
	Name      string           `json:"name" binding:"required"`
	Category  string           `json:"category" binding:"required"`
	Quantity  *int64           `json:"quantity" binding:"required"`
	UnitPrice *decimal.Decimal `json:"unitPrice" binding:"required"`
}

type stockInRequest struct {
	PartID   int64 `json:"partId" binding:"required"`
	Quantity int64 `json:"quantity" binding:"required"`
}

type stockOutRequest struct {
	PartID    int64            `json:"partId" binding:"required"`
	Quantity  int64            `json:"quantity" binding:"required"`
	UnitPrice *decimal.Decimal `json:"unitPrice" binding:"required"`
}

type stockOutUpdateRequest struct {
	Quantity  int64            `json:"quantity" binding:"required"`
	UnitPrice *decimal.Decimal `json:"unitPrice" binding:"required"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

type partDTO struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	Quantity   int64     `json:"quantity"`
	UnitPrice  string    `json:"unitPrice"`
	TotalPrice string    `json:"totalPrice"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toPartDTO(p inventory.Part) partDTO {
	return partDTO{
		ID:         p.ID,
		Name:       p.Name,
		Category:   p.Category,
		Quantity:   p.Quantity,
		UnitPrice:  p.UnitPrice.StringFixed(2),
		TotalPrice: p.TotalPrice().StringFixed(2),
		CreatedAt:  p.CreatedAt,
	}
}

type stockInDTO struct {
	ID        int64     `json:"id"`
	PartID    int64     `json:"partId"`
	PartName  string    `json:"partName,omitempty"`
	Category  string    `json:"category,omitempty"`
	Quantity  int64     `json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
}

func toStockInDTO(v inventory.StockInView) stockInDTO {
	return stockInDTO{
		ID:        v.ID,
		PartID:    v.PartID,
		PartName:  v.PartName,
		Category:  v.Category,
		Quantity:  v.Quantity,
		CreatedAt: v.CreatedAt,
	}
}

type stockOutDTO struct {
	ID         int64     `json:"id"`
	PartID     int64     `json:"partId"`
	PartName   string    `json:"partName,omitempty"`
	Category   string    `json:"category,omitempty"`
	Quantity   int64     `json:"quantity"`
	UnitPrice  string    `json:"unitPrice"`
	TotalPrice string    `json:"totalPrice"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toStockOutDTO(v inventory.StockOutView) stockOutDTO {
	return stockOutDTO{
		ID:         v.ID,
		PartID:     v.PartID,
		PartName:   v.PartName,
		Category:   v.Category,
		Quantity:   v.Quantity,
		UnitPrice:  v.UnitPrice.StringFixed(2),
		TotalPrice: v.TotalPrice().StringFixed(2),
		CreatedAt:  v.CreatedAt,
	}
}

func toStockOutDTOs(vs []inventory.StockOutView) []stockOutDTO {
	out := make([]stockOutDTO, 0, len(vs))
	for _, v := range vs {
		out = append(out, toStockOutDTO(v))
	}
	return out
}

type stockStatusDTO struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Category        string `json:"category"`
	CurrentQuantity int64  `json:"currentQuantity"`
	TotalStockIn    int64  `json:"totalStockIn"`
	TotalStockOut   int64  `json:"totalStockOut"`
}

func toStockStatusDTO(r reports.StockStatusRow) stockStatusDTO {
	return stockStatusDTO{
		ID:              r.Part.ID,
		Name:            r.Part.Name,
		Category:        r.Part.Category,
		CurrentQuantity: r.CurrentQuantity,
		TotalStockIn:    r.TotalStockIn,
		TotalStockOut:   r.TotalStockOut,
	}
}
