package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Mucahit2020/order-management-go/internal/contracts"
)

var ErrNotFound = errors.New("not found")

// DBPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Shortfall reports one line that could not be fulfilled, with the actual
// remaining quantity at the time of the check.
type Shortfall struct {
	ProductID uuid.UUID
	Requested int
	Available int
}

// ReduceResult is the outcome of an all-or-nothing stock reduction.
type ReduceResult struct {
	// AlreadyProcessed is set when a movement for the order exists; the
	// delivery is a redelivery and no stock was touched.
	AlreadyProcessed bool
	// Insufficient lists lines that lost the race between the availability
	// check and the conditional decrement. Non-empty means nothing was
	// applied.
	Insufficient []Shortfall
}

type Repository interface {
	GetProduct(ctx context.Context, productID uuid.UUID) (Product, error)
	GetProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
	SetStock(ctx context.Context, productID uuid.UUID, name string, quantity int) error
	OrderProcessed(ctx context.Context, orderID uuid.UUID) (bool, error)
	ReduceStock(ctx context.Context, orderID uuid.UUID, lines []Line) (ReduceResult, error)
	ListMovementsByOrder(ctx context.Context, orderID uuid.UUID) ([]StockMovement, error)
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) GetProduct(ctx context.Context, productID uuid.UUID) (Product, error) {
	var p Product
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, stock_quantity, is_active, created_at, updated_at
		FROM products WHERE id = $1`, productID)
	if err := row.Scan(&p.ID, &p.Name, &p.StockQuantity, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("select product: %w", err)
	}
	return p, nil
}

// GetProducts batch-fetches the active products among productIDs. Missing or
// inactive products are simply absent from the returned map.
func (r *PostgresRepository) GetProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]Product, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, stock_quantity, is_active, created_at, updated_at
		FROM products WHERE id = ANY($1) AND is_active`, productIDs)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	products := make(map[uuid.UUID]Product, len(productIDs))
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.StockQuantity, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products[p.ID] = p
	}
	return products, rows.Err()
}

func (r *PostgresRepository) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, stock_quantity, is_active, created_at, updated_at
		FROM products WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.StockQuantity, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *PostgresRepository) SetStock(ctx context.Context, productID uuid.UUID, name string, quantity int) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO products (id, name, stock_quantity, is_active)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			stock_quantity = EXCLUDED.stock_quantity,
			updated_at = now()`,
		productID, name, quantity)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}

func (r *PostgresRepository) OrderProcessed(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM stock_movements WHERE order_id = $1)`, orderID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check movements: %w", err)
	}
	return exists, nil
}

// ReduceStock decrements stock for every line of the order inside one
// transaction. Each decrement is conditional at the storage layer, so a check
// that passed in handler memory can still lose the race here; in that case
// the transaction rolls back, reversing every decrement already applied, and
// the shortfalls are reported with the quantity actually remaining.
func (r *PostgresRepository) ReduceStock(ctx context.Context, orderID uuid.UUID, lines []Line) (ReduceResult, error) {
	var res ReduceResult

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return res, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Witness check rides in the same transaction as the decrements so a
	// redelivered order can never double-decrement.
	var processed bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM stock_movements WHERE order_id = $1)`, orderID,
	).Scan(&processed); err != nil {
		return res, fmt.Errorf("check movements: %w", err)
	}
	if processed {
		res.AlreadyProcessed = true
		return res, nil
	}

	for _, line := range lines {
		if len(res.Insufficient) > 0 {
			// The transaction is already doomed; only collect the remaining
			// shortfalls for the failure report. Lines with ample stock are
			// not shortfalls and stay off the report.
			available, err := readAvailable(ctx, tx, line.ProductID)
			if err != nil {
				return res, err
			}
			if available < line.Quantity {
				res.Insufficient = append(res.Insufficient, Shortfall{
					ProductID: line.ProductID,
					Requested: line.Quantity,
					Available: available,
				})
			}
			continue
		}

		var newQty int
		err := tx.QueryRow(ctx, `
			UPDATE products
			SET stock_quantity = stock_quantity - $2, updated_at = now()
			WHERE id = $1 AND stock_quantity >= $2 AND is_active
			RETURNING stock_quantity`,
			line.ProductID, line.Quantity,
		).Scan(&newQty)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				available, rerr := readAvailable(ctx, tx, line.ProductID)
				if rerr != nil {
					return res, rerr
				}
				res.Insufficient = append(res.Insufficient, Shortfall{
					ProductID: line.ProductID,
					Requested: line.Quantity,
					Available: available,
				})
				continue
			}
			return res, fmt.Errorf("decrement product %s: %w", line.ProductID, err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO stock_movements (id, product_id, order_id, movement_type, quantity, previous_quantity, new_quantity, reason)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			uuid.New(), line.ProductID, orderID, contracts.MovementConsumed,
			line.Quantity, newQty+line.Quantity, newQty,
			fmt.Sprintf("order %s processed", orderID),
		)
		if err != nil {
			return res, fmt.Errorf("insert movement for %s: %w", line.ProductID, err)
		}
	}

	if len(res.Insufficient) > 0 {
		return res, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return res, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}

// readAvailable reads the remaining quantity of a product within the
// transaction. A missing or inactive product counts as zero available; any
// other failure is surfaced so a broken read never fabricates a shortfall.
func readAvailable(ctx context.Context, tx pgx.Tx, productID uuid.UUID) (int, error) {
	var available int
	err := tx.QueryRow(ctx,
		`SELECT stock_quantity FROM products WHERE id = $1 AND is_active`, productID,
	).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("read availability of %s: %w", productID, err)
	}
	return available, nil
}

func (r *PostgresRepository) ListMovementsByOrder(ctx context.Context, orderID uuid.UUID) ([]StockMovement, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, product_id, order_id, movement_type, quantity, previous_quantity, new_quantity, COALESCE(reason, ''), created_at
		FROM stock_movements WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}
	defer rows.Close()

	var movements []StockMovement
	for rows.Next() {
		var m StockMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.OrderID, &m.MovementType, &m.Quantity,
			&m.PreviousQuantity, &m.NewQuantity, &m.Reason, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}
