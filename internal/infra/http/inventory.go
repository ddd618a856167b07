package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/spare-stock/internal/domain/inventory"
)

const (
	partNotFound     = "Spare part not found"
	stockOutNotFound = "Stock out record not found"
)

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *handler) createPart(c *gin.Context) {
	var in partRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "All fields are required")
		return
	}
	p, err := h.d.Registry.Create(c.Request.Context(), inventory.NewPart{
		Name:      in.Name,
		Category:  in.Category,
		Quantity:  *in.Quantity,
		UnitPrice: *in.UnitPrice,
	})
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Spare part added successfully", "id": p.ID})
}

func (h *handler) listParts(c *gin.Context) {
	parts, err := h.d.Registry.List(c.Request.Context())
	if err != nil {
		h.fail(c, err, "")
		return
	}
	out := make([]partDTO, 0, len(parts))
	for _, p := range parts {
		out = append(out, toPartDTO(p))
	}
	c.JSON(http.StatusOK, out)
}

func (h *handler) getPart(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := h.d.Registry.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, partNotFound)
		return
	}
	c.JSON(http.StatusOK, toPartDTO(p))
}

func (h *handler) deletePart(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.d.Registry.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err, partNotFound)
		return
	}
	c.JSON(http.StatusOK, message("Spare part deleted successfully"))
}

func (h *handler) createStockIn(c *gin.Context) {
	var in stockInRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Valid spare part ID and quantity are required")
		return
	}
	e, err := h.d.Ledger.RecordStockIn(c.Request.Context(), in.PartID, in.Quantity)
	if err != nil {
		h.fail(c, err, partNotFound)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Stock in recorded successfully",
		"entry":   toStockInDTO(inventory.StockInView{StockIn: e}),
	})
}

func (h *handler) listStockIns(c *gin.Context) {
	rows, err := h.d.Ledger.ListStockIns(c.Request.Context())
	if err != nil {
		h.fail(c, err, "")
		return
	}
	out := make([]stockInDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, toStockInDTO(r))
	}
	c.JSON(http.StatusOK, out)
}

func (h *handler) createStockOut(c *gin.Context) {
	var in stockOutRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "All fields are required and must be valid")
		return
	}
	e, err := h.d.Ledger.RecordStockOut(c.Request.Context(), in.PartID, in.Quantity, *in.UnitPrice)
	if err != nil {
		h.fail(c, err, partNotFound)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Stock out recorded successfully",
		"entry":   toStockOutDTO(inventory.StockOutView{StockOut: e}),
	})
}

func (h *handler) listStockOuts(c *gin.Context) {
	rows, err := h.d.Ledger.ListStockOuts(c.Request.Context())
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, toStockOutDTOs(rows))
}

func (h *handler) getStockOut(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	v, err := h.d.Ledger.GetStockOut(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, stockOutNotFound)
		return
	}
	c.JSON(http.StatusOK, toStockOutDTO(v))
}

func (h *handler) updateStockOut(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in stockOutUpdateRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Valid quantity and unit price are required")
		return
	}
	e, err := h.d.Ledger.UpdateStockOut(c.Request.Context(), id, in.Quantity, *in.UnitPrice)
	if err != nil {
		h.fail(c, err, stockOutNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Stock out record updated successfully",
		"entry":   toStockOutDTO(inventory.StockOutView{StockOut: e}),
	})
}

func (h *handler) deleteStockOut(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.d.Ledger.DeleteStockOut(c.Request.Context(), id); err != nil {
		h.fail(c, err, stockOutNotFound)
		return
	}
	c.JSON(http.StatusOK, message("Stock out record deleted successfully"))
}
