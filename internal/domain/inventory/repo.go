package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repo — хранилище на Postgres. Остаток защищён SELECT ... FOR UPDATE по строке parts,
// поэтому разные запчасти обновляются параллельно.
type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// dbtx — общее у *pgxpool.Pool и pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *Repo) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(pgTx{q: queries{db: tx}}); err != nil {
		return mapPgErr(err)
	}
	return mapPgErr(tx.Commit(ctx))
}

func (r *Repo) Snapshot(ctx context.Context, fn func(rd Reader) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(queries{db: tx}); err != nil {
		return mapPgErr(err)
	}
	return tx.Commit(ctx)
}

func (r *Repo) GetPart(ctx context.Context, id int64) (Part, error) {
	return queries{db: r.pool}.GetPart(ctx, id)
}

func (r *Repo) ListParts(ctx context.Context) ([]Part, error) {
	return queries{db: r.pool}.ListParts(ctx)
}

func (r *Repo) ListStockIns(ctx context.Context) ([]StockInView, error) {
	return queries{db: r.pool}.ListStockIns(ctx)
}

func (r *Repo) GetStockOut(ctx context.Context, id int64) (StockOutView, error) {
	return queries{db: r.pool}.GetStockOut(ctx, id)
}

func (r *Repo) ListStockOuts(ctx context.Context, f StockOutFilter) ([]StockOutView, error) {
	return queries{db: r.pool}.ListStockOuts(ctx, f)
}

func (r *Repo) Totals(ctx context.Context) (map[int64]Totals, error) {
	return queries{db: r.pool}.Totals(ctx)
}

// mapPgErr переводит коды Postgres в ошибки домена.
func mapPgErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "40001", "40P01": // serialization_failure, deadlock_detected
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.Message)
	case "23503": // foreign_key_violation
		return fmt.Errorf("%w: %s", ErrNotFound, pgErr.Message)
	case "23514": // check_violation (parts_quantity_check)
		return fmt.Errorf("%w: %s", ErrInsufficientStock, pgErr.Message)
	}
	return err
}

/* queries */

type queries struct{ db dbtx }

const partCols = `p.id, p.name, p.category, p.quantity, p.unit_price::text, p.created_at`

func scanPart(row pgx.Row) (Part, error) {
	var (
		p     Part
		price string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Quantity, &price, &p.CreatedAt); err != nil {
		return Part{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return Part{}, err
	}
	p.UnitPrice = d
	return p, nil
}

func (q queries) GetPart(ctx context.Context, id int64) (Part, error) {
	p, err := scanPart(q.db.QueryRow(ctx, `SELECT `+partCols+` FROM parts p WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Part{}, fmt.Errorf("part %d: %w", id, ErrNotFound)
	}
	return p, err
}

func (q queries) ListParts(ctx context.Context) ([]Part, error) {
	rows, err := q.db.Query(ctx, `SELECT `+partCols+` FROM parts p ORDER BY p.created_at DESC, p.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Part{}
	for rows.Next() {
		p, err := scanPart(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (q queries) ListStockIns(ctx context.Context) ([]StockInView, error) {
	rows, err := q.db.Query(ctx, `
		SELECT si.id, si.part_id, si.quantity, si.created_at, p.name, p.category
		FROM stock_in si
		JOIN parts p ON p.id = si.part_id
		ORDER BY si.created_at DESC, si.id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []StockInView{}
	for rows.Next() {
		var v StockInView
		if err := rows.Scan(&v.ID, &v.PartID, &v.Quantity, &v.CreatedAt, &v.PartName, &v.Category); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

const stockOutViewSQL = `
	SELECT so.id, so.part_id, so.quantity, so.unit_price::text, so.created_at, p.name, p.category
	FROM stock_out so
	JOIN parts p ON p.id = so.part_id
`

func scanStockOutView(row pgx.Row) (StockOutView, error) {
	var (
		v     StockOutView
		price string
	)
	if err := row.Scan(&v.ID, &v.PartID, &v.Quantity, &price, &v.CreatedAt, &v.PartName, &v.Category); err != nil {
		return StockOutView{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return StockOutView{}, err
	}
	v.UnitPrice = d
	return v, nil
}

func (q queries) GetStockOut(ctx context.Context, id int64) (StockOutView, error) {
	v, err := scanStockOutView(q.db.QueryRow(ctx, stockOutViewSQL+` WHERE so.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return StockOutView{}, fmt.Errorf("stock out %d: %w", id, ErrNotFound)
	}
	return v, err
}

func (q queries) ListStockOuts(ctx context.Context, f StockOutFilter) ([]StockOutView, error) {
	rows, err := q.db.Query(ctx, stockOutViewSQL+`
		WHERE ($1::timestamptz IS NULL OR so.created_at >= $1)
		  AND ($2::timestamptz IS NULL OR so.created_at < $2)
		ORDER BY so.created_at DESC, so.id DESC
	`, nullTime(f.From), nullTime(f.To))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []StockOutView{}
	for rows.Next() {
		v, err := scanStockOutView(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Totals считает приход и расход отдельными подзапросами: двойной LEFT JOIN
// размножил бы строки и завысил суммы.
func (q queries) Totals(ctx context.Context) (map[int64]Totals, error) {
	rows, err := q.db.Query(ctx, `
		SELECT p.id,
			COALESCE((SELECT SUM(si.quantity) FROM stock_in si WHERE si.part_id = p.id), 0)::bigint,
			COALESCE((SELECT SUM(so.quantity) FROM stock_out so WHERE so.part_id = p.id), 0)::bigint
		FROM parts p
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64]Totals{}
	for rows.Next() {
		var (
			id int64
			t  Totals
		)
		if err := rows.Scan(&id, &t.In, &t.Out); err != nil {
			return nil, err
		}
		if t.In != 0 || t.Out != 0 {
			out[id] = t
		}
	}
	return out, rows.Err()
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

/* tx */

type pgTx struct{ q queries }

func (t pgTx) LockPart(ctx context.Context, id int64) (Part, error) {
	p, err := scanPart(t.q.db.QueryRow(ctx, `SELECT `+partCols+` FROM parts p WHERE p.id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Part{}, fmt.Errorf("part %d: %w", id, ErrNotFound)
	}
	return p, err
}

func (t pgTx) InsertPart(ctx context.Context, p Part) (Part, error) {
	err := t.q.db.QueryRow(ctx, `
		INSERT INTO parts (name, category, quantity, unit_price, created_at)
		VALUES ($1, $2, $3, $4::numeric, $5)
		RETURNING id
	`, p.Name, p.Category, p.Quantity, p.UnitPrice.StringFixed(2), p.CreatedAt).Scan(&p.ID)
	if err != nil {
		return Part{}, err
	}
	return p, nil
}

func (t pgTx) SetQuantity(ctx context.Context, partID, qty int64) error {
	tag, err := t.q.db.Exec(ctx, `UPDATE parts SET quantity = $2 WHERE id = $1`, partID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("part %d: %w", partID, ErrNotFound)
	}
	return nil
}

// DeletePart — stock_in/stock_out удаляются каскадом (ON DELETE CASCADE).
func (t pgTx) DeletePart(ctx context.Context, id int64) error {
	tag, err := t.q.db.Exec(ctx, `DELETE FROM parts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("part %d: %w", id, ErrNotFound)
	}
	return nil
}

func (t pgTx) InsertStockIn(ctx context.Context, e StockIn) (StockIn, error) {
	err := t.q.db.QueryRow(ctx, `
		INSERT INTO stock_in (part_id, quantity, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`, e.PartID, e.Quantity, e.CreatedAt).Scan(&e.ID)
	if err != nil {
		return StockIn{}, err
	}
	return e, nil
}

func (t pgTx) LockStockOut(ctx context.Context, id int64) (StockOut, error) {
	var (
		e     StockOut
		price string
	)
	err := t.q.db.QueryRow(ctx, `
		SELECT id, part_id, quantity, unit_price::text, created_at
		FROM stock_out WHERE id = $1
		FOR UPDATE
	`, id).Scan(&e.ID, &e.PartID, &e.Quantity, &price, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return StockOut{}, fmt.Errorf("stock out %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return StockOut{}, err
	}
	if e.UnitPrice, err = decimal.NewFromString(price); err != nil {
		return StockOut{}, err
	}
	return e, nil
}

func (t pgTx) InsertStockOut(ctx context.Context, e StockOut) (StockOut, error) {
	err := t.q.db.QueryRow(ctx, `
		INSERT INTO stock_out (part_id, quantity, unit_price, created_at)
		VALUES ($1, $2, $3::numeric, $4)
		RETURNING id
	`, e.PartID, e.Quantity, e.UnitPrice.StringFixed(2), e.CreatedAt).Scan(&e.ID)
	if err != nil {
		return StockOut{}, err
	}
	return e, nil
}

func (t pgTx) UpdateStockOut(ctx context.Context, e StockOut) error {
	tag, err := t.q.db.Exec(ctx, `
		UPDATE stock_out SET quantity = $2, unit_price = $3::numeric WHERE id = $1
	`, e.ID, e.Quantity, e.UnitPrice.StringFixed(2))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("stock out %d: %w", e.ID, ErrNotFound)
	}
	return nil
}

func (t pgTx) DeleteStockOut(ctx context.Context, id int64) error {
	tag, err := t.q.db.Exec(ctx, `DELETE FROM stock_out WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("stock out %d: %w", id, ErrNotFound)
	}
	return nil
}
