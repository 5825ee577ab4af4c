package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/distributor-portal/internal/model"
)

// AppUserRepo persists end-user accounts and performs the atomic
// registration and reconciliation writes.  The (app_id, email) unique key
// is the conditional "not exists" guard: two concurrent registrations for
// the same key race on the insert and exactly one wins.
type AppUserRepo struct{ DB *sql.DB }

func NewAppUserRepo(db *sql.DB) *AppUserRepo { return &AppUserRepo{DB: db} }

// CreateAppUser inserts the account together with its token/order side
// effects in a single transaction.  When consumeToken is true the unique
// purchase token is flipped to used.  When tryOrder is non-empty and a
// matching pending order exists in the distributor's scope, the order is
// consumed and the account is activated immediately; otherwise the
// account keeps the status already set on u and awaits the sweeper.
// Either everything commits or nothing does; no partial registration is
// ever observable.
func (r *AppUserRepo) CreateAppUser(ctx context.Context, u model.AppUser, consumeToken bool, tokenID string, tryOrder string) (model.AppUser, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.AppUser{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Re-check the order-number binding inside the transaction: the
	// service-level pre-check races with concurrent registrations, and
	// the (app_id, email) unique key alone would let two accounts with
	// different emails bind the same number.  FOR UPDATE blocks the
	// losing writer until this transaction decides.
	if u.OrderNumber != nil {
		bound, err := orderNumberBoundTx(ctx, tx, u.DistributorID, *u.OrderNumber)
		if err != nil {
			return model.AppUser{}, err
		}
		if bound {
			return model.AppUser{}, ErrDuplicateOrder
		}
	}

	if tryOrder != "" {
		matched, err := findPendingOrderTx(ctx, tx, tryOrder, u.DistributorID)
		if err != nil {
			return model.AppUser{}, err
		}
		if matched {
			if err := markOrderUsedTx(ctx, tx, tryOrder); err != nil {
				return model.AppUser{}, err
			}
			u.Status = model.AccountActive
		}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO app_users
		 (app_id, sub_app_id, email, distributor_id, status, link_type, order_number, purchase_source)
		 VALUES (?,?,?,?,?,?,?,?)`,
		u.AppID, u.SubAppID, u.Email, u.DistributorID, u.Status, u.LinkType, u.OrderNumber, u.Source)
	if err != nil {
		if isDuplicateKey(err) {
			return model.AppUser{}, ErrDuplicateAccount
		}
		return model.AppUser{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.AppUser{}, err
	}
	u.ID = uint64(id)

	if consumeToken {
		if err := markTokenUsedTx(ctx, tx, tokenID); err != nil {
			return model.AppUser{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return model.AppUser{}, err
	}
	committed = true
	return u, nil
}

// OrderNumberTaken reports whether the order number is already bound to
// another app user under the same distributor.  Generic-token
// registrations must present a distinct number per registrant.
func (r *AppUserRepo) OrderNumberTaken(ctx context.Context, distributorID uint64, orderNumber string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		`SELECT 1 FROM app_users WHERE distributor_id=? AND order_number=? LIMIT 1`,
		distributorID, orderNumber).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// orderNumberBoundTx is the transactional variant of OrderNumberTaken.
// The FOR UPDATE takes a lock on the matching index range so a
// concurrent insert of the same number waits on this transaction
// instead of racing past the pre-check.
func orderNumberBoundTx(ctx context.Context, tx *sql.Tx, distributorID uint64, orderNumber string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM app_users WHERE distributor_id=? AND order_number=? LIMIT 1 FOR UPDATE`,
		distributorID, orderNumber).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// PendingByScope returns pending app users for the sweep: every pending
// account for the global scope (nil), or only the distributor's own.
func (r *AppUserRepo) PendingByScope(ctx context.Context, distributorID *uint64) ([]model.AppUser, error) {
	const base = `SELECT id, app_id, sub_app_id, email, distributor_id, status, link_type, order_number, purchase_source, created_at
	              FROM app_users WHERE status=?`
	var (
		rows *sql.Rows
		err  error
	)
	if distributorID == nil {
		rows, err = r.DB.QueryContext(ctx, base+` ORDER BY created_at`, model.AccountPending)
	} else {
		rows, err = r.DB.QueryContext(ctx, base+` AND distributor_id=? ORDER BY created_at`,
			model.AccountPending, *distributorID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAppUsers(rows)
}

// ApplyMatches commits one sweep batch: every order in the batch is
// flipped to used and its paired account to active, all inside a single
// transaction.  Conditional status predicates turn lost races with
// concurrent registrations into ErrConflict instead of silently
// double-activating; the whole batch rolls back and a later sweep
// re-evaluates what is still pending.
func (r *AppUserRepo) ApplyMatches(ctx context.Context, matches []model.SweepMatch) error {
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
			`UPDATE app_users SET status=? WHERE id=? AND status=?`,
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

// ListByDistributor returns all app users registered under a distributor,
// newest first.  A nil distributorID lists every app user (admin view).
func (r *AppUserRepo) ListByDistributor(ctx context.Context, distributorID *uint64) ([]model.AppUser, error) {
	const base = `SELECT id, app_id, sub_app_id, email, distributor_id, status, link_type, order_number, purchase_source, created_at
	              FROM app_users`
	var (
		rows *sql.Rows
		err  error
	)
	if distributorID == nil {
		rows, err = r.DB.QueryContext(ctx, base+` ORDER BY created_at DESC`)
	} else {
		rows, err = r.DB.QueryContext(ctx, base+` WHERE distributor_id=? ORDER BY created_at DESC`,
			*distributorID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAppUsers(rows)
}

// SetStatus changes an app user's status, optionally fencing on the
// owning distributor so one distributor cannot flip another's accounts.
// ErrNotFound is returned when the row does not exist, ErrForbidden when
// it exists but belongs to a different distributor.
func (r *AppUserRepo) SetStatus(ctx context.Context, appUserID uint64, distributorID *uint64, status model.AccountStatus) error {
	var owner uint64
	err := r.DB.QueryRowContext(ctx,
		`SELECT distributor_id FROM app_users WHERE id=? LIMIT 1`, appUserID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if distributorID != nil && owner != *distributorID {
		return ErrForbidden
	}
	_, err = r.DB.ExecContext(ctx, `UPDATE app_users SET status=? WHERE id=?`, status, appUserID)
	return err
}

func scanAppUsers(rows *sql.Rows) ([]model.AppUser, error) {
	users := make([]model.AppUser, 0)
	for rows.Next() {
		var (
			u        model.AppUser
			subAppID sql.NullInt64
			orderNum sql.NullString
		)
		if err := rows.Scan(&u.ID, &u.AppID, &subAppID, &u.Email, &u.DistributorID,
			&u.Status, &u.LinkType, &orderNum, &u.Source, &u.CreatedAt); err != nil {
			return nil, err
		}
		if subAppID.Valid {
			v := uint64(subAppID.Int64)
			u.SubAppID = &v
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
