package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/distributor-portal/internal/model"
)

// TokenRepo persists purchase/registration tokens.  Token rows are never
// deleted; expiry is evaluated by callers at validation time.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Create inserts a freshly issued token.
func (r *TokenRepo) Create(ctx context.Context, t model.PurchaseToken) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO purchase_tokens
		 (id, issuance_type, status, distributor_id, app_id, sub_app_id, expires_at)
		 VALUES (?,?,?,?,?,?,?)`,
		t.ID, t.IssuanceType, t.Status, t.DistributorID, t.AppID, t.SubAppID, t.ExpiresAt)
	if isDuplicateKey(err) {
		// 128-bit random ids make this all but impossible; surface it anyway.
		return ErrConflict
	}
	return err
}

// GetByID fetches a token by its opaque id.  ErrNotFound is returned when
// no such token exists.
func (r *TokenRepo) GetByID(ctx context.Context, id string) (model.PurchaseToken, error) {
	var (
		t        model.PurchaseToken
		subAppID sql.NullInt64
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, issuance_type, status, distributor_id, app_id, sub_app_id, created_at, expires_at
		 FROM purchase_tokens WHERE id=? LIMIT 1`, id).
		Scan(&t.ID, &t.IssuanceType, &t.Status, &t.DistributorID, &t.AppID,
			&subAppID, &t.CreatedAt, &t.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PurchaseToken{}, ErrNotFound
	}
	if err != nil {
		return model.PurchaseToken{}, err
	}
	if subAppID.Valid {
		v := uint64(subAppID.Int64)
		t.SubAppID = &v
	}
	return t, nil
}

// markTokenUsedTx flips a unique token from pending to used inside an
// existing transaction.  The status predicate makes the update
// conditional: when a concurrent registration already consumed the token,
// zero rows are affected and ErrConflict is returned so the caller rolls
// back.
func markTokenUsedTx(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE purchase_tokens SET status=? WHERE id=? AND status=?`,
		model.TokenUsed, id, model.TokenPending)
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
	return nil
}

// ListByDistributor returns tokens issued to a distributor, newest first.
func (r *TokenRepo) ListByDistributor(ctx context.Context, distributorID uint64) ([]model.PurchaseToken, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, issuance_type, status, distributor_id, app_id, sub_app_id, created_at, expires_at
		 FROM purchase_tokens WHERE distributor_id=? ORDER BY created_at DESC`, distributorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tokens := make([]model.PurchaseToken, 0)
	for rows.Next() {
		var (
			t        model.PurchaseToken
			subAppID sql.NullInt64
		)
		if err := rows.Scan(&t.ID, &t.IssuanceType, &t.Status, &t.DistributorID, &t.AppID,
			&subAppID, &t.CreatedAt, &t.ExpiresAt); err != nil {
			return nil, err
		}
		if subAppID.Valid {
			v := uint64(subAppID.Int64)
			t.SubAppID = &v
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tokens, nil
}
