package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/distributor-portal/internal/model"
	"github.com/iliyamo/distributor-portal/internal/utils"
)

// UserRepo persists portal accounts: administrators and distributors.
// Distributor self-registration is transactional so the account row and
// the consumed registration token commit together.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a portal user with an already-decided role and status
// (used by admins provisioning distributors directly) and returns its ID.
func (r *UserRepo) Create(ctx context.Context, email, password, role string, status model.AccountStatus, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, role, status, link_type) VALUES (?,?,?,?,?)`,
		email, hash, role, status, model.IssuanceUnique)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// RegisterDistributor performs the distributor half of the account
// writer: in one transaction it inserts the DISTRIBUTOR user row,
// authorizes the new distributor for the token's app, consumes the unique
// registration token when asked to, and consumes a matching pending order
// when tryOrder names one.  The unique email key converts concurrent
// registrations for the same address into ErrEmailExists.
func (r *UserRepo) RegisterDistributor(ctx context.Context, u model.User, password string, cost int, appID uint64, consumeToken bool, tokenID string, tryOrder string) (model.User, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return model.User{}, err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.User{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Same in-transaction guard as the app-user writer: the email key
	// does not cover order numbers, so without this two concurrent
	// registrations under different emails could both bind one number.
	if u.OrderNumber != nil {
		var one int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM users WHERE order_number=? LIMIT 1 FOR UPDATE`,
			*u.OrderNumber).Scan(&one)
		switch {
		case err == nil:
			return model.User{}, ErrDuplicateOrder
		case !errors.Is(err, sql.ErrNoRows):
			return model.User{}, err
		}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, role, status, link_type, order_number)
		 VALUES (?,?,?,?,?,?)`,
		u.Email, hash, model.RoleDistributor, u.Status, u.LinkType, u.OrderNumber)
	if err != nil {
		if isDuplicateKey(err) {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, err
	}
	u.ID = uint64(id)
	u.Role = model.RoleDistributor

	// Authorize the new distributor to sell the token's app.
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO distributor_apps (distributor_id, app_id) VALUES (?,?)`, u.ID, appID); err != nil {
		return model.User{}, err
	}

	if tryOrder != "" {
		matched, err := findPendingOrderTx(ctx, tx, tryOrder, u.ID)
		if err != nil {
			return model.User{}, err
		}
		if matched {
			if err := markOrderUsedTx(ctx, tx, tryOrder); err != nil {
				return model.User{}, err
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE users SET status=? WHERE id=?`, model.AccountActive, u.ID); err != nil {
				return model.User{}, err
			}
			u.Status = model.AccountActive
		}
	}

	if consumeToken {
		if err := markTokenUsedTx(ctx, tx, tokenID); err != nil {
			return model.User{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return model.User{}, err
	}
	committed = true
	return u, nil
}

// OrderNumberTaken reports whether any distributor account already
// presented the order number.  Distributor registrations bind global
// orders, so the check carries no distributor scope.
func (r *UserRepo) OrderNumberTaken(ctx context.Context, orderNumber string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		`SELECT 1 FROM users WHERE order_number=? LIMIT 1`, orderNumber).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetByEmail fetches a portal user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.getOne(ctx, `WHERE email=?`, email)
}

// GetByID fetches a portal user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.getOne(ctx, `WHERE id=?`, id)
}

func (r *UserRepo) getOne(ctx context.Context, where string, arg interface{}) (model.User, error) {
	var (
		u        model.User
		orderNum sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, email, password_hash, role, status, link_type, order_number, created_at, updated_at
		 FROM users `+where+` LIMIT 1`, arg).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Status, &u.LinkType,
			&orderNum, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	if orderNum.Valid {
		v := orderNum.String
		u.OrderNumber = &v
	}
	return u, nil
}

// ListDistributors returns all distributor accounts, newest first.
func (r *UserRepo) ListDistributors(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, email, password_hash, role, status, link_type, order_number, created_at, updated_at
		 FROM users WHERE role=? ORDER BY created_at DESC`, model.RoleDistributor)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func scanUsers(rows *sql.Rows) ([]model.User, error) {
	users := make([]model.User, 0)
	for rows.Next() {
		var (
			u        model.User
			orderNum sql.NullString
		)
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Status, &u.LinkType,
			&orderNum, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		if orderNum.Valid {
			v := orderNum.String
			u.OrderNumber = &v
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// PendingDistributors returns distributor accounts still awaiting order
// reconciliation.  Only rows that actually carry an order number can
// ever match, so the scan filters on it.
func (r *UserRepo) PendingDistributors(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, email, password_hash, role, status, link_type, order_number, created_at, updated_at
		 FROM users WHERE role=? AND status=? AND order_number IS NOT NULL
		 ORDER BY created_at`, model.RoleDistributor, model.AccountPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

// ApplyDistributorMatches commits one sweep batch for distributor
// accounts: each order flips to used and its paired distributor to
// active, all in a single transaction.  The conditional predicates turn
// lost races into ErrConflict, same as the app-user variant.
func (r *UserRepo) ApplyDistributorMatches(ctx context.Context, matches []model.SweepMatch) error {
	if len(matches) == 0 {
		return nil
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, m := range matches {
		if err := markOrderUsedTx(ctx, tx, m.OrderNumber); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE users SET status=? WHERE id=? AND status=?`,
			model.AccountActive, m.AccountID, model.AccountPending)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrConflict
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// SetStatus changes a portal account's status (admin operation).
func (r *UserRepo) SetStatus(ctx context.Context, userID uint64, status model.AccountStatus) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET status=? WHERE id=?`, status, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
