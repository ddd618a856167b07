package inventory

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemRepo — хранилище в памяти. Писатель держит эксклюзивную блокировку на всю
// транзакцию и откатывает изменения по журналу undo; читатели берут RLock и
// промежуточного состояния не видят.
type MemRepo struct {
	mu sync.RWMutex

	seqPart, seqIn, seqOut int64

	parts map[int64]Part
	ins   map[int64]StockIn
	outs  map[int64]StockOut
}

func NewMemRepo() *MemRepo {
	return &MemRepo{
		parts: map[int64]Part{},
		ins:   map[int64]StockIn{},
		outs:  map[int64]StockOut{},
	}
}

var (
	_ Store = (*MemRepo)(nil)
	_ Store = (*Repo)(nil)
)

func (r *MemRepo) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &memTx{r: r}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (r *MemRepo) Snapshot(ctx context.Context, fn func(rd Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fn(memView{r})
}

func (r *MemRepo) GetPart(ctx context.Context, id int64) (Part, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return memView{r}.GetPart(ctx, id)
}

func (r *MemRepo) ListParts(ctx context.Context) ([]Part, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return memView{r}.ListParts(ctx)
}

func (r *MemRepo) ListStockIns(ctx context.Context) ([]StockInView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return memView{r}.ListStockIns(ctx)
}

func (r *MemRepo) GetStockOut(ctx context.Context, id int64) (StockOutView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return memView{r}.GetStockOut(ctx, id)
}

func (r *MemRepo) ListStockOuts(ctx context.Context, f StockOutFilter) ([]StockOutView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return memView{r}.ListStockOuts(ctx, f)
}

func (r *MemRepo) Totals(ctx context.Context) (map[int64]Totals, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return memView{r}.Totals(ctx)
}

/* чтения без блокировок: вызываются под mu */

type memView struct{ r *MemRepo }

func (v memView) GetPart(_ context.Context, id int64) (Part, error) {
	p, ok := v.r.parts[id]
	if !ok {
		return Part{}, fmt.Errorf("part %d: %w", id, ErrNotFound)
	}
	return p, nil
}

func (v memView) ListParts(_ context.Context) ([]Part, error) {
	out := make([]Part, 0, len(v.r.parts))
	for _, p := range v.r.parts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (v memView) ListStockIns(_ context.Context) ([]StockInView, error) {
	out := make([]StockInView, 0, len(v.r.ins))
	for _, e := range v.r.ins {
		p := v.r.parts[e.PartID]
		out = append(out, StockInView{StockIn: e, PartName: p.Name, Category: p.Category})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (v memView) GetStockOut(_ context.Context, id int64) (StockOutView, error) {
	e, ok := v.r.outs[id]
	if !ok {
		return StockOutView{}, fmt.Errorf("stock out %d: %w", id, ErrNotFound)
	}
	p := v.r.parts[e.PartID]
	return StockOutView{StockOut: e, PartName: p.Name, Category: p.Category}, nil
}

func (v memView) ListStockOuts(_ context.Context, f StockOutFilter) ([]StockOutView, error) {
	out := make([]StockOutView, 0, len(v.r.outs))
	for _, e := range v.r.outs {
		if !f.From.IsZero() && e.CreatedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !e.CreatedAt.Before(f.To) {
			continue
		}
		p := v.r.parts[e.PartID]
		out = append(out, StockOutView{StockOut: e, PartName: p.Name, Category: p.Category})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (v memView) Totals(_ context.Context) (map[int64]Totals, error) {
	out := map[int64]Totals{}
	for _, e := range v.r.ins {
		t := out[e.PartID]
		t.In += e.Quantity
		out[e.PartID] = t
	}
	for _, e := range v.r.outs {
		t := out[e.PartID]
		t.Out += e.Quantity
		out[e.PartID] = t
	}
	return out, nil
}

/* транзакция */

type memTx struct {
	r    *MemRepo
	undo []func()
}

func (t *memTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *memTx) LockPart(ctx context.Context, id int64) (Part, error) {
	return memView{t.r}.GetPart(ctx, id)
}

func (t *memTx) InsertPart(_ context.Context, p Part) (Part, error) {
	t.r.seqPart++
	p.ID = t.r.seqPart
	t.r.parts[p.ID] = p
	t.undo = append(t.undo, func() { delete(t.r.parts, p.ID) })
	return p, nil
}

func (t *memTx) SetQuantity(_ context.Context, partID, qty int64) error {
	p, ok := t.r.parts[partID]
	if !ok {
		return fmt.Errorf("part %d: %w", partID, ErrNotFound)
	}
	if qty < 0 {
		return fmt.Errorf("%w: part %d quantity %d", ErrInsufficientStock, partID, qty)
	}
	prev := p
	p.Quantity = qty
	t.r.parts[partID] = p
	t.undo = append(t.undo, func() { t.r.parts[partID] = prev })
	return nil
}

// DeletePart удаляет и все движения по запчасти, как ON DELETE CASCADE.
func (t *memTx) DeletePart(_ context.Context, id int64) error {
	p, ok := t.r.parts[id]
	if !ok {
		return fmt.Errorf("part %d: %w", id, ErrNotFound)
	}
	delete(t.r.parts, id)
	t.undo = append(t.undo, func() { t.r.parts[id] = p })

	for eid, e := range t.r.ins {
		if e.PartID == id {
			delete(t.r.ins, eid)
			t.undo = append(t.undo, func() { t.r.ins[eid] = e })
		}
	}
	for eid, e := range t.r.outs {
		if e.PartID == id {
			delete(t.r.outs, eid)
			t.undo = append(t.undo, func() { t.r.outs[eid] = e })
		}
	}
	return nil
}

func (t *memTx) InsertStockIn(_ context.Context, e StockIn) (StockIn, error) {
	if _, ok := t.r.parts[e.PartID]; !ok {
		return StockIn{}, fmt.Errorf("part %d: %w", e.PartID, ErrNotFound)
	}
	t.r.seqIn++
	e.ID = t.r.seqIn
	t.r.ins[e.ID] = e
	t.undo = append(t.undo, func() { delete(t.r.ins, e.ID) })
	return e, nil
}

func (t *memTx) LockStockOut(ctx context.Context, id int64) (StockOut, error) {
	v, err := memView{t.r}.GetStockOut(ctx, id)
	if err != nil {
		return StockOut{}, err
	}
	return v.StockOut, nil
}

func (t *memTx) InsertStockOut(_ context.Context, e StockOut) (StockOut, error) {
	if _, ok := t.r.parts[e.PartID]; !ok {
		return StockOut{}, fmt.Errorf("part %d: %w", e.PartID, ErrNotFound)
	}
	t.r.seqOut++
	e.ID = t.r.seqOut
	t.r.outs[e.ID] = e
	t.undo = append(t.undo, func() { delete(t.r.outs, e.ID) })
	return e, nil
}

func (t *memTx) UpdateStockOut(_ context.Context, e StockOut) error {
	prev, ok := t.r.outs[e.ID]
	if !ok {
		return fmt.Errorf("stock out %d: %w", e.ID, ErrNotFound)
	}
	e.PartID = prev.PartID
	e.CreatedAt = prev.CreatedAt
	t.r.outs[e.ID] = e
	t.undo = append(t.undo, func() { t.r.outs[e.ID] = prev })
	return nil
}

func (t *memTx) DeleteStockOut(_ context.Context, id int64) error {
	prev, ok := t.r.outs[id]
	if !ok {
		return fmt.Errorf("stock out %d: %w", id, ErrNotFound)
	}
	delete(t.r.outs, id)
	t.undo = append(t.undo, func() { t.r.outs[id] = prev })
	return nil
}
