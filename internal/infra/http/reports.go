package http

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/spare-stock/internal/domain/reports"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// reportDate: ?date=YYYY-MM-DD, по умолчанию сегодня в часовом поясе отчётов.
func (h *handler) reportDate(c *gin.Context) (time.Time, bool) {
	s := c.Query("date")
	if s == "" {
		return h.d.Reports.Today(), true
	}
	d, err := h.d.Reports.ParseDate(s)
	if err != nil {
		h.fail(c, err, "")
		return time.Time{}, false
	}
	return d, true
}

func (h *handler) dailyStockOut(c *gin.Context) {
	date, ok := h.reportDate(c)
	if !ok {
		return
	}
	rows, err := h.d.Reports.DailyStockOut(c.Request.Context(), date)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, toStockOutDTOs(rows))
}

func (h *handler) dailyStockOutXLSX(c *gin.Context) {
	date, ok := h.reportDate(c)
	if !ok {
		return
	}
	rows, err := h.d.Reports.DailyStockOut(c.Request.Context(), date)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	var buf bytes.Buffer
	if err := reports.WriteDailyStockOutXLSX(&buf, rows, h.d.Reports.Location()); err != nil {
		h.fail(c, err, "")
		return
	}
	sendXLSX(c, fmt.Sprintf("stock_out_%s.xlsx", date.Format("20060102")), buf.Bytes())
}

func (h *handler) stockStatus(c *gin.Context) {
	rows, err := h.d.Reports.StockStatus(c.Request.Context())
	if err != nil {
		h.fail(c, err, "")
		return
	}
	out := make([]stockStatusDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, toStockStatusDTO(r))
	}
	c.JSON(http.StatusOK, out)
}

func (h *handler) stockStatusXLSX(c *gin.Context) {
	rows, err := h.d.Reports.StockStatus(c.Request.Context())
	if err != nil {
		h.fail(c, err, "")
		return
	}
	var buf bytes.Buffer
	if err := reports.WriteStockStatusXLSX(&buf, rows); err != nil {
		h.fail(c, err, "")
		return
	}
	sendXLSX(c, "stock_status.xlsx", buf.Bytes())
}

func (h *handler) reconcile(c *gin.Context) {
	ms, err := h.d.Reports.Reconcile(c.Request.Context())
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, ms)
}

func sendXLSX(c *gin.Context, name string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, xlsxMIME, data)
}
