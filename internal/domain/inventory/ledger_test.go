package inventory

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func fixedClock(t time.Time) func() time.Time {
	var mu sync.Mutex
	cur := t
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur = cur.Add(time.Second)
		return cur
	}
}

func newTestLedger(t *testing.T, opts ...Option) (*Registry, *Ledger, *MemRepo) {
	t.Helper()
	store := NewMemRepo()
	opts = append([]Option{WithClock(fixedClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)))}, opts...)
	return NewRegistry(store, opts...), NewLedger(store, opts...), store
}

func mustPart(t *testing.T, reg *Registry, qty int64) Part {
	t.Helper()
	p, err := reg.Create(context.Background(), NewPart{
		Name:      "Brake Pad",
		Category:  "Brakes",
		Quantity:  qty,
		UnitPrice: decimal.RequireFromString("25.00"),
	})
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	return p
}

func quantityOf(t *testing.T, store Store, id int64) int64 {
	t.Helper()
	p, err := store.GetPart(context.Background(), id)
	if err != nil {
		t.Fatalf("get part %d: %v", id, err)
	}
	return p.Quantity
}

// assertLedgerInvariant: quantity == Σin − Σout и quantity >= 0 для каждой запчасти.
func assertLedgerInvariant(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	err := store.Snapshot(ctx, func(r Reader) error {
		parts, err := r.ListParts(ctx)
		if err != nil {
			return err
		}
		totals, err := r.Totals(ctx)
		if err != nil {
			return err
		}
		for _, p := range parts {
			tt := totals[p.ID]
			if p.Quantity != tt.In-tt.Out {
				t.Errorf("part %d: quantity %d, in-out %d", p.ID, p.Quantity, tt.In-tt.Out)
			}
			if p.Quantity < 0 {
				t.Errorf("part %d: negative quantity %d", p.ID, p.Quantity)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
}

func TestLedger_BrakePadScenario(t *testing.T) {
	ctx := context.Background()
	reg, led, store := newTestLedger(t)

	p := mustPart(t, reg, 0)
	if p.Quantity != 0 {
		t.Fatalf("expected quantity 0, got %d", p.Quantity)
	}
	ins, _ := store.ListStockIns(ctx)
	if len(ins) != 0 {
		t.Fatalf("expected no stock-in entries, got %d", len(ins))
	}

	in, err := led.RecordStockIn(ctx, p.ID, 20)
	if err != nil {
		t.Fatalf("stock in: %v", err)
	}
	if in.Quantity != 20 || in.PartID != p.ID {
		t.Errorf("unexpected stock-in entry %+v", in)
	}
	if got := quantityOf(t, store, p.ID); got != 20 {
		t.Fatalf("expected quantity 20, got %d", got)
	}
	ins, _ = store.ListStockIns(ctx)
	if len(ins) != 1 {
		t.Fatalf("expected 1 stock-in entry, got %d", len(ins))
	}

	out, err := led.RecordStockOut(ctx, p.ID, 5, decimal.RequireFromString("30.00"))
	if err != nil {
		t.Fatalf("stock out: %v", err)
	}
	if got := quantityOf(t, store, p.ID); got != 15 {
		t.Fatalf("expected quantity 15, got %d", got)
	}
	if out.Quantity != 5 || !out.UnitPrice.Equal(decimal.RequireFromString("30")) {
		t.Errorf("unexpected stock-out entry %+v", out)
	}
	if !out.TotalPrice().Equal(decimal.RequireFromString("150.00")) {
		t.Errorf("expected total 150.00, got %s", out.TotalPrice())
	}

	// цена расхода не трогает цену запчасти
	part, _ := store.GetPart(ctx, p.ID)
	if !part.UnitPrice.Equal(decimal.RequireFromString("25")) {
		t.Errorf("part unit price changed to %s", part.UnitPrice)
	}
	assertLedgerInvariant(t, store)
}

func TestLedger_StockOutInsufficient(t *testing.T) {
	ctx := context.Background()
	reg, led, store := newTestLedger(t)
	p := mustPart(t, reg, 15)

	_, err := led.RecordStockOut(ctx, p.ID, 999, decimal.RequireFromString("30"))
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if got := quantityOf(t, store, p.ID); got != 15 {
		t.Fatalf("quantity changed to %d", got)
	}
	outs, _ := store.ListStockOuts(ctx, StockOutFilter{})
	if len(outs) != 0 {
		t.Fatalf("expected no stock-out entries, got %d", len(outs))
	}
	assertLedgerInvariant(t, store)
}

func TestLedger_ValidationAndNotFound(t *testing.T) {
	ctx := context.Background()
	reg, led, _ := newTestLedger(t)
	p := mustPart(t, reg, 10)
	price := decimal.RequireFromString("10")

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"stock in zero qty", func() error { _, err := led.RecordStockIn(ctx, p.ID, 0); return err }, ErrValidation},
		{"stock in negative qty", func() error { _, err := led.RecordStockIn(ctx, p.ID, -3); return err }, ErrValidation},
		{"stock in missing part", func() error { _, err := led.RecordStockIn(ctx, 404, 1); return err }, ErrNotFound},
		{"stock in no part id", func() error { _, err := led.RecordStockIn(ctx, 0, 1); return err }, ErrValidation},
		{"stock out zero qty", func() error { _, err := led.RecordStockOut(ctx, p.ID, 0, price); return err }, ErrValidation},
		{"stock out zero price", func() error { _, err := led.RecordStockOut(ctx, p.ID, 1, decimal.Zero); return err }, ErrValidation},
		{"stock out negative price", func() error {
			_, err := led.RecordStockOut(ctx, p.ID, 1, decimal.RequireFromString("-1"))
			return err
		}, ErrValidation},
		{"stock out missing part", func() error { _, err := led.RecordStockOut(ctx, 404, 1, price); return err }, ErrNotFound},
		{"update missing entry", func() error { _, err := led.UpdateStockOut(ctx, 404, 1, price); return err }, ErrNotFound},
		{"update zero qty", func() error { _, err := led.UpdateStockOut(ctx, 1, 0, price); return err }, ErrValidation},
		{"delete missing entry", func() error { return led.DeleteStockOut(ctx, 404) }, ErrNotFound},
		{"get missing entry", func() error { _, err := led.GetStockOut(ctx, 404); return err }, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLedger_StockOutRoundsPrice(t *testing.T) {
	ctx := context.Background()
	reg, led, _ := newTestLedger(t)
	p := mustPart(t, reg, 10)

	out, err := led.RecordStockOut(ctx, p.ID, 1, decimal.RequireFromString("19.999"))
	if err != nil {
		t.Fatalf("stock out: %v", err)
	}
	if out.UnitPrice.StringFixed(2) != "20.00" {
		t.Errorf("expected 20.00, got %s", out.UnitPrice.StringFixed(2))
	}
}

func TestLedger_StockOutThenDeleteRestores(t *testing.T) {
	ctx := context.Background()
	reg, led, store := newTestLedger(t)
	p := mustPart(t, reg, 12)

	out, err := led.RecordStockOut(ctx, p.ID, 7, decimal.RequireFromString("3.50"))
	if err != nil {
		t.Fatalf("stock out: %v", err)
	}
	if got := quantityOf(t, store, p.ID); got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}
	if err := led.DeleteStockOut(ctx, out.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := quantityOf(t, store, p.ID); got != 12 {
		t.Fatalf("expected quantity restored to 12, got %d", got)
	}
	if _, err := led.GetStockOut(ctx, out.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected deleted entry to be gone, got %v", err)
	}
	assertLedgerInvariant(t, store)
}

func TestLedger_UpdateStockOut(t *testing.T) {
	tests := []struct {
		name     string
		initial  int64
		q1, q2   int64
		wantQty  int64
		wantErr  error
		wantKept int64 // количество в записи после операции
	}{
		{name: "increase within stock", initial: 15, q1: 5, q2: 8, wantQty: 7, wantKept: 8},
		{name: "decrease returns stock", initial: 15, q1: 5, q2: 2, wantQty: 13, wantKept: 2},
		{name: "same quantity", initial: 15, q1: 5, q2: 5, wantQty: 10, wantKept: 5},
		{name: "increase uses all stock", initial: 15, q1: 5, q2: 15, wantQty: 0, wantKept: 15},
		{name: "increase beyond stock", initial: 15, q1: 5, q2: 16, wantQty: 10, wantErr: ErrInsufficientStock, wantKept: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			reg, led, store := newTestLedger(t)
			p := mustPart(t, reg, tt.initial)
			out, err := led.RecordStockOut(ctx, p.ID, tt.q1, decimal.RequireFromString("30"))
			if err != nil {
				t.Fatalf("stock out: %v", err)
			}
			before := quantityOf(t, store, p.ID)

			_, err = led.UpdateStockOut(ctx, out.ID, tt.q2, decimal.RequireFromString("31.50"))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			after := quantityOf(t, store, p.ID)
			if after != tt.wantQty {
				t.Errorf("expected quantity %d, got %d", tt.wantQty, after)
			}
			if tt.wantErr == nil && before-after != tt.q2-tt.q1 {
				t.Errorf("quantity moved by %d, expected q1-q2 = %d", after-before, tt.q1-tt.q2)
			}
			v, err := led.GetStockOut(ctx, out.ID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if v.Quantity != tt.wantKept {
				t.Errorf("expected entry quantity %d, got %d", tt.wantKept, v.Quantity)
			}
			if tt.wantErr == nil && v.UnitPrice.StringFixed(2) != "31.50" {
				t.Errorf("expected unit price 31.50, got %s", v.UnitPrice)
			}
			assertLedgerInvariant(t, store)
		})
	}
}

// Сценарий: остаток 10, запись на 5 -> 8, diff = +3, итог 7.
func TestLedger_UpdateStockOutDiffAgainstTen(t *testing.T) {
	ctx := context.Background()
	reg, led, store := newTestLedger(t)
	p := mustPart(t, reg, 15)
	out, err := led.RecordStockOut(ctx, p.ID, 5, decimal.RequireFromString("30"))
	if err != nil {
		t.Fatal(err)
	}
	if got := quantityOf(t, store, p.ID); got != 10 {
		t.Fatalf("expected 10, got %d", got)
	}
	if _, err := led.UpdateStockOut(ctx, out.ID, 8, decimal.RequireFromString("30.00")); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := quantityOf(t, store, p.ID); got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
}

func TestLedger_ConcurrentStockOut(t *testing.T) {
	ctx := context.Background()
	reg, led, store := newTestLedger(t)
	p := mustPart(t, reg, 15)

	var (
		wg   sync.WaitGroup
		errs = make(chan error, 2)
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := led.RecordStockOut(ctx, p.ID, 10, decimal.RequireFromString("30"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, insufficient int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInsufficientStock):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || insufficient != 1 {
		t.Fatalf("expected exactly one success and one rejection, got ok=%d insufficient=%d", ok, insufficient)
	}
	if got := quantityOf(t, store, p.ID); got != 5 {
		t.Fatalf("expected quantity 5, got %d", got)
	}
	assertLedgerInvariant(t, store)
}

func TestLedger_ConcurrentMixedOperations(t *testing.T) {
	ctx := context.Background()
	reg, led, store := newTestLedger(t)
	a := mustPart(t, reg, 50)
	b := mustPart(t, reg, 5)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pid := a.ID
			if i%2 == 1 {
				pid = b.ID
			}
			switch i % 4 {
			case 0, 1:
				out, err := led.RecordStockOut(ctx, pid, 3, decimal.RequireFromString("2"))
				if err == nil && i%8 == 0 {
					_, _ = led.UpdateStockOut(ctx, out.ID, 6, decimal.RequireFromString("2"))
				}
				if err == nil && i%8 == 1 {
					_ = led.DeleteStockOut(ctx, out.ID)
				}
			default:
				_, _ = led.RecordStockIn(ctx, pid, 2)
			}
		}(i)
	}
	wg.Wait()
	assertLedgerInvariant(t, store)
}

// failingStore ломает указанную операцию внутри транзакции, чтобы проверить откат.
type failingStore struct {
	*MemRepo
	failOn string
}

var errBoom = errors.New("boom")

func (s failingStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.MemRepo.WithTx(ctx, func(tx Tx) error {
		return fn(failingTx{Tx: tx, failOn: s.failOn})
	})
}

type failingTx struct {
	Tx
	failOn string
}

func (t failingTx) InsertStockOut(ctx context.Context, e StockOut) (StockOut, error) {
	if t.failOn == "insert_stock_out" {
		return StockOut{}, errBoom
	}
	return t.Tx.InsertStockOut(ctx, e)
}

func (t failingTx) InsertStockIn(ctx context.Context, e StockIn) (StockIn, error) {
	if t.failOn == "insert_stock_in" {
		return StockIn{}, errBoom
	}
	return t.Tx.InsertStockIn(ctx, e)
}

func (t failingTx) UpdateStockOut(ctx context.Context, e StockOut) error {
	if t.failOn == "update_stock_out" {
		return errBoom
	}
	return t.Tx.UpdateStockOut(ctx, e)
}

func TestLedger_RollbackOnFailure(t *testing.T) {
	for _, failOn := range []string{"insert_stock_out", "insert_stock_in", "update_stock_out"} {
		t.Run(failOn, func(t *testing.T) {
			ctx := context.Background()
			mem := NewMemRepo()
			good := NewLedger(mem)
			reg := NewRegistry(mem)
			p := mustPart(t, reg, 10)
			out, err := good.RecordStockOut(ctx, p.ID, 2, decimal.RequireFromString("1"))
			if err != nil {
				t.Fatal(err)
			}

			bad := NewLedger(failingStore{MemRepo: mem, failOn: failOn})
			switch failOn {
			case "insert_stock_out":
				_, err = bad.RecordStockOut(ctx, p.ID, 3, decimal.RequireFromString("1"))
			case "insert_stock_in":
				_, err = bad.RecordStockIn(ctx, p.ID, 3)
			case "update_stock_out":
				_, err = bad.UpdateStockOut(ctx, out.ID, 5, decimal.RequireFromString("1"))
			}
			if !errors.Is(err, errBoom) {
				t.Fatalf("expected injected failure, got %v", err)
			}
			if got := quantityOf(t, mem, p.ID); got != 8 {
				t.Errorf("expected quantity 8 after rollback, got %d", got)
			}
			v, _ := good.GetStockOut(ctx, out.ID)
			if v.Quantity != 2 {
				t.Errorf("expected entry quantity 2 after rollback, got %d", v.Quantity)
			}
			assertLedgerInvariant(t, mem)
		})
	}
}

type recordedAlert struct {
	partID    int64
	qty       int64
	threshold int64
}

type fakeAlerter struct {
	mu     sync.Mutex
	alerts []recordedAlert
	err    error
}

func (f *fakeAlerter) LowStock(_ context.Context, p Part, threshold int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, recordedAlert{partID: p.ID, qty: p.Quantity, threshold: threshold})
	return f.err
}

func TestLedger_LowStockAlert(t *testing.T) {
	ctx := context.Background()
	alerter := &fakeAlerter{}
	reg, led, _ := newTestLedger(t, WithLowStockAlert(alerter, 3))
	p := mustPart(t, reg, 10)

	if _, err := led.RecordStockOut(ctx, p.ID, 5, decimal.RequireFromString("1")); err != nil {
		t.Fatal(err)
	}
	if len(alerter.alerts) != 0 {
		t.Fatalf("expected no alert above threshold, got %v", alerter.alerts)
	}
	out, err := led.RecordStockOut(ctx, p.ID, 2, decimal.RequireFromString("1"))
	if err != nil {
		t.Fatal(err)
	}
	if len(alerter.alerts) != 1 || alerter.alerts[0].qty != 3 {
		t.Fatalf("expected one alert at quantity 3, got %v", alerter.alerts)
	}

	// уменьшение расхода возвращает товар и не алертит
	if _, err := led.UpdateStockOut(ctx, out.ID, 1, decimal.RequireFromString("1")); err != nil {
		t.Fatal(err)
	}
	if len(alerter.alerts) != 1 {
		t.Fatalf("expected no alert on decrease, got %v", alerter.alerts)
	}

	// ошибка уведомления не отменяет операцию
	alerter.err = errors.New("telegram down")
	if _, err := led.RecordStockOut(ctx, p.ID, 2, decimal.RequireFromString("1")); err != nil {
		t.Fatalf("alert failure must not fail stock out: %v", err)
	}
	if len(alerter.alerts) != 2 {
		t.Fatalf("expected second alert, got %v", alerter.alerts)
	}
}

type fakeRecorder struct {
	mu  sync.Mutex
	ops map[string][]string
}

func (f *fakeRecorder) ObserveOp(op, result string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ops == nil {
		f.ops = map[string][]string{}
	}
	f.ops[op] = append(f.ops[op], result)
}

func TestLedger_RecordsOperationResults(t *testing.T) {
	ctx := context.Background()
	rec := &fakeRecorder{}
	reg, led, _ := newTestLedger(t, WithRecorder(rec))
	p := mustPart(t, reg, 1)

	_, _ = led.RecordStockOut(ctx, p.ID, 1, decimal.RequireFromString("1"))
	_, _ = led.RecordStockOut(ctx, p.ID, 1, decimal.RequireFromString("1"))
	_, _ = led.RecordStockOut(ctx, p.ID, 0, decimal.RequireFromString("1"))

	got := rec.ops["stock_out"]
	want := []string{"ok", "insufficient", "validation"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("result %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	if r := rec.ops["create_part"]; len(r) != 1 || r[0] != "ok" {
		t.Errorf("expected create_part ok, got %v", r)
	}
}

func TestLedger_StockInOverflow(t *testing.T) {
	reg, led, store := newTestLedger(t)
	p := mustPart(t, reg, 10)

	_, err := led.RecordStockIn(context.Background(), p.ID, math.MaxInt64)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation on overflow, got %v", err)
	}
	if got := quantityOf(t, store, p.ID); got != 10 {
		t.Errorf("quantity changed on failed stock in: %d", got)
	}
	assertLedgerInvariant(t, store)
}
