package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Spok95/spare-stock/internal/domain/inventory"
)

// Snapshotter — источник согласованного среза (inventory.Store подходит).
type Snapshotter interface {
	Snapshot(ctx context.Context, fn func(r inventory.Reader) error) error
}

// Projector строит отчёты только на чтение.
type Projector struct {
	src Snapshotter
	loc *time.Location
	now func() time.Time
}

func New(src Snapshotter, loc *time.Location) *Projector {
	if loc == nil {
		loc = time.Local
	}
	return &Projector{src: src, loc: loc, now: time.Now}
}

// WithClock подменяет часы (для тестов и «сегодня» по умолчанию).
func (p *Projector) WithClock(now func() time.Time) *Projector {
	p.now = now
	return p
}

func (p *Projector) Location() *time.Location { return p.loc }

// Today — текущая дата в часовом поясе отчётов.
func (p *Projector) Today() time.Time {
	return p.now().In(p.loc)
}

// ParseDate разбирает YYYY-MM-DD в часовом поясе отчётов.
func (p *Projector) ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(time.DateOnly, s, p.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", inventory.ErrValidation)
	}
	return d, nil
}

// DayBounds — [начало дня, начало следующего дня) для календарной даты date в loc.
func DayBounds(date time.Time, loc *time.Location) (time.Time, time.Time) {
	d := date.In(loc)
	from := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	return from, from.AddDate(0, 0, 1)
}

// DailyStockOut — расходы за календарный день, новые первыми.
func (p *Projector) DailyStockOut(ctx context.Context, date time.Time) ([]inventory.StockOutView, error) {
	from, to := DayBounds(date, p.loc)
	var rows []inventory.StockOutView
	err := p.src.Snapshot(ctx, func(r inventory.Reader) error {
		var err error
		rows, err = r.ListStockOuts(ctx, inventory.StockOutFilter{From: from, To: to})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("daily stock out: %w", err)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].ID > rows[j].ID
	})
	return rows, nil
}

type StockStatusRow struct {
	Part            inventory.Part
	TotalStockIn    int64
	TotalStockOut   int64
	CurrentQuantity int64
}

// Balanced — остаток сходится с движениями.
func (r StockStatusRow) Balanced() bool {
	return r.CurrentQuantity == r.TotalStockIn-r.TotalStockOut && r.CurrentQuantity >= 0
}

// StockStatus — все запчасти с суммарным приходом/расходом (0/0 без движений).
// CurrentQuantity берётся из самой запчасти, а не из сумм.
func (p *Projector) StockStatus(ctx context.Context) ([]StockStatusRow, error) {
	var (
		parts  []inventory.Part
		totals map[int64]inventory.Totals
	)
	err := p.src.Snapshot(ctx, func(r inventory.Reader) error {
		var err error
		if parts, err = r.ListParts(ctx); err != nil {
			return err
		}
		totals, err = r.Totals(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("stock status: %w", err)
	}

	rows := make([]StockStatusRow, 0, len(parts))
	for _, part := range parts {
		t := totals[part.ID]
		rows = append(rows, StockStatusRow{
			Part:            part,
			TotalStockIn:    t.In,
			TotalStockOut:   t.Out,
			CurrentQuantity: part.Quantity,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Part.Name != rows[j].Part.Name {
			return rows[i].Part.Name < rows[j].Part.Name
		}
		return rows[i].Part.ID < rows[j].Part.ID
	})
	return rows, nil
}

type Mismatch struct {
	PartID          int64  `json:"partId"`
	Name            string `json:"name"`
	CurrentQuantity int64  `json:"currentQuantity"`
	Expected        int64  `json:"expected"`
}

// Reconcile возвращает запчасти, у которых остаток разошёлся с журналом. Пусто — всё сходится.
func (p *Projector) Reconcile(ctx context.Context) ([]Mismatch, error) {
	rows, err := p.StockStatus(ctx)
	if err != nil {
		return nil, err
	}
	out := []Mismatch{}
	for _, r := range rows {
		if r.Balanced() {
			continue
		}
		out = append(out, Mismatch{
			PartID:          r.Part.ID,
			Name:            r.Part.Name,
			CurrentQuantity: r.CurrentQuantity,
			Expected:        r.TotalStockIn - r.TotalStockOut,
		})
	}
	return out, nil
}

type CategoryTotal struct {
	Category string
	Units    int64
	Revenue  decimal.Decimal
}

// DailySummary — итоги дня для рассылки.
type DailySummary struct {
	Date       time.Time
	Entries    int
	Units      int64
	Revenue    decimal.Decimal
	Categories []CategoryTotal
}

func (p *Projector) DailySummary(ctx context.Context, date time.Time) (DailySummary, error) {
	rows, err := p.DailyStockOut(ctx, date)
	if err != nil {
		return DailySummary{}, err
	}
	from, _ := DayBounds(date, p.loc)
	s := DailySummary{Date: from, Entries: len(rows), Revenue: decimal.Zero}

	byCat := map[string]*CategoryTotal{}
	for _, r := range rows {
		s.Units += r.Quantity
		s.Revenue = s.Revenue.Add(r.TotalPrice())
		ct, ok := byCat[r.Category]
		if !ok {
			ct = &CategoryTotal{Category: r.Category, Revenue: decimal.Zero}
			byCat[r.Category] = ct
		}
		ct.Units += r.Quantity
		ct.Revenue = ct.Revenue.Add(r.TotalPrice())
	}
	for _, ct := range byCat {
		s.Categories = append(s.Categories, *ct)
	}
	sort.Slice(s.Categories, func(i, j int) bool {
		return s.Categories[i].Category < s.Categories[j].Category
	})
	return s, nil
}
