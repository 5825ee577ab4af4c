package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/distributor-portal/internal/model"
)

// AppRepo reads the reference tables consulted before a token may be
// issued: apps, sub_apps and the distributor_apps authorization mapping.
// These tables are maintained by operators; the portal only reads them.
type AppRepo struct{ DB *sql.DB }

func NewAppRepo(db *sql.DB) *AppRepo { return &AppRepo{DB: db} }

// GetByID fetches an app row.  ErrNotFound is returned when the app does
// not exist; callers decide whether an inactive app is acceptable.
func (r *AppRepo) GetByID(ctx context.Context, appID uint64) (model.App, error) {
	var a model.App
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, name, domain, is_active FROM apps WHERE id=? LIMIT 1`, appID).
		Scan(&a.ID, &a.Name, &a.Domain, &a.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return model.App{}, ErrNotFound
	}
	return a, err
}

// SubAppExists reports whether the sub-app id maps to the given app.
func (r *AppRepo) SubAppExists(ctx context.Context, appID, subAppID uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		`SELECT 1 FROM sub_apps WHERE id=? AND app_id=? LIMIT 1`, subAppID, appID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DistributorAuthorized reports whether the distributor is allowed to sell
// the app, i.e. a distributor_apps mapping exists.
func (r *AppRepo) DistributorAuthorized(ctx context.Context, distributorID, appID uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		`SELECT 1 FROM distributor_apps WHERE distributor_id=? AND app_id=? LIMIT 1`,
		distributorID, appID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListActive returns all active apps for the public catalog endpoint.
func (r *AppRepo) ListActive(ctx context.Context) ([]model.App, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, name, domain, is_active FROM apps WHERE is_active=1 ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	apps := make([]model.App, 0)
	for rows.Next() {
		var a model.App
		if err := rows.Scan(&a.ID, &a.Name, &a.Domain, &a.IsActive); err != nil {
			return nil, err
		}
		apps = append(apps, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return apps, nil
}
