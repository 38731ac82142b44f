// AngelaMos | 2026
// repository.go

package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carterperez-dev/gigmarket/internal/core"
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	Lock(ctx context.Context, id string) (*Order, error)
	SetStatus(ctx context.Context, id string, status Status, paidAt *time.Time) (*Order, error)
	List(ctx context.Context, params ListParams) ([]Order, int, error)

	CreateTransaction(ctx context.Context, t *Transaction) error
	GetTransactionBySession(ctx context.Context, sessionID string) (*Transaction, error)
	LockTransactionBySession(ctx context.Context, sessionID string) (*Transaction, error)
	SetTransactionStatus(ctx context.Context, id string, status TxStatus) error
	RefundTransactions(ctx context.Context, orderID string) error
	ListTransactions(ctx context.Context, userID string, limit int) ([]Transaction, error)
	Totals(ctx context.Context, userID string) (*Totals, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const orderColumns = `
	id, gig_id, buyer_id, seller_id, amount_cents, currency, requirements,
	status, paid_at, created_at, updated_at`

const transactionColumns = `
	id, order_id, user_id, amount_cents, currency, provider,
	provider_session_id, status, created_at, updated_at`

func (r *repository) Create(ctx context.Context, o *Order) error {
	query := `
		INSERT INTO orders (id, gig_id, buyer_id, seller_id, amount_cents, currency, requirements, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		o.ID, o.GigID, o.BuyerID, o.SellerID, o.AmountCents, o.Currency, o.Requirements, o.Status,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create order: %w", core.MapPgError(err))
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Order, error) {
	return r.get(ctx, "get order", `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *repository) Lock(ctx context.Context, id string) (*Order, error) {
	return r.get(ctx, "lock order", `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

// SetStatus keeps an existing paid_at when paidAt is nil.
func (r *repository) SetStatus(ctx context.Context, id string, status Status, paidAt *time.Time) (*Order, error) {
	query := `
		UPDATE orders
		SET status = $2, paid_at = COALESCE($3, paid_at), updated_at = NOW()
		WHERE id = $1
		RETURNING ` + orderColumns

	return r.get(ctx, "set order status", query, id, status, paidAt)
}

func (r *repository) get(ctx context.Context, op, query string, args ...any) (*Order, error) {
	var o Order
	err := r.db.GetContext(ctx, &o, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, core.MapPgError(err))
	}
	return &o, nil
}

func (r *repository) List(ctx context.Context, params ListParams) ([]Order, int, error) {
	params.Normalize()

	var conditions []string
	var args []any
	argIdx := 1

	if params.UserID != "" {
		switch params.Role {
		case "buyer":
			conditions = append(conditions, fmt.Sprintf("buyer_id = $%d", argIdx))
		case "seller":
			conditions = append(conditions, fmt.Sprintf("seller_id = $%d", argIdx))
		default:
			conditions = append(conditions, fmt.Sprintf("(buyer_id = $%d OR seller_id = $%d)", argIdx, argIdx))
		}
		args = append(args, params.UserID)
		argIdx++
	}
	if params.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, params.Status)
		argIdx++
	}

	whereClause := "TRUE"
	if len(conditions) > 0 {
		whereClause = strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM orders WHERE "+whereClause, args...); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", core.MapPgError(err))
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM orders
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		orderColumns, whereClause, argIdx, argIdx+1)
	args = append(args, params.PageSize, params.Offset())

	var out []Order
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", core.MapPgError(err))
	}
	return out, total, nil
}

func (r *repository) CreateTransaction(ctx context.Context, t *Transaction) error {
	query := `
		INSERT INTO transactions (id, order_id, user_id, amount_cents, currency, provider, provider_session_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		t.ID, t.OrderID, t.UserID, t.AmountCents, t.Currency, t.Provider, t.ProviderSessionID, t.Status,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create transaction: %w", core.MapPgError(err))
	}
	return nil
}

func (r *repository) GetTransactionBySession(ctx context.Context, sessionID string) (*Transaction, error) {
	return r.getTransaction(ctx, "get transaction",
		`SELECT `+transactionColumns+` FROM transactions WHERE provider_session_id = $1`, sessionID)
}

func (r *repository) LockTransactionBySession(ctx context.Context, sessionID string) (*Transaction, error) {
	return r.getTransaction(ctx, "lock transaction",
		`SELECT `+transactionColumns+` FROM transactions WHERE provider_session_id = $1 FOR UPDATE`, sessionID)
}

func (r *repository) getTransaction(ctx context.Context, op, query string, args ...any) (*Transaction, error) {
	var t Transaction
	err := r.db.GetContext(ctx, &t, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, core.MapPgError(err))
	}
	return &t, nil
}

func (r *repository) SetTransactionStatus(ctx context.Context, id string, status TxStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("set transaction status: %w", core.MapPgError(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set transaction status: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("set transaction status: %w", core.ErrNotFound)
	}
	return nil
}

func (r *repository) RefundTransactions(ctx context.Context, orderID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET status = 'refunded', updated_at = NOW()
		WHERE order_id = $1 AND status = 'completed'`, orderID)
	if err != nil {
		return fmt.Errorf("refund transactions: %w", core.MapPgError(err))
	}
	return nil
}

func (r *repository) ListTransactions(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	var out []Transaction
	if err := r.db.SelectContext(ctx, &out, query, userID, limit); err != nil {
		return nil, fmt.Errorf("list transactions: %w", core.MapPgError(err))
	}
	return out, nil
}

// Totals counts buyer spend from completed transactions and seller earnings
// from orders. Paid orders that are not yet completed count as pending.
func (r *repository) Totals(ctx context.Context, userID string) (*Totals, error) {
	query := `
		SELECT
			COALESCE((
				SELECT SUM(amount_cents) FROM transactions
				WHERE user_id = $1 AND status = 'completed'
			), 0) AS spent_cents,
			COALESCE((
				SELECT SUM(amount_cents) FROM orders
				WHERE seller_id = $1 AND status = 'completed'
			), 0) AS earned_cents,
			COALESCE((
				SELECT SUM(amount_cents) FROM orders
				WHERE seller_id = $1 AND status IN ('paid', 'in_progress', 'delivered', 'disputed')
			), 0) AS pending_earnings_cents`

	var t Totals
	if err := r.db.GetContext(ctx, &t, query, userID); err != nil {
		return nil, fmt.Errorf("wallet totals: %w", core.MapPgError(err))
	}
	return &t, nil
}
