package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/secretshare/webserver/types"
)

const userColumns = `id, username, email, name, password_hash, google_id, facebook_id, picture, secret, created_at, updated_at`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE username = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, username))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (username, email, name, password_hash, google_id, facebook_id, picture, secret, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Username,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.GoogleID,
		user.FacebookID,
		user.Picture,
		user.Secret,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		return types.User{}, mapError(err)
	}
	return user, nil
}

func (r *UserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	user.UpdatedAt = time.Now()

	const query = `
		UPDATE users
		SET username = $1,
			email = $2,
			name = $3,
			password_hash = $4,
			google_id = $5,
			facebook_id = $6,
			picture = $7,
			secret = $8,
			updated_at = $9
		WHERE id = $10`
	result, err := r.db.ExecContext(
		ctx,
		query,
		user.Username,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.GoogleID,
		user.FacebookID,
		user.Picture,
		user.Secret,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return types.User{}, mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.User{}, err
	}
	if affected == 0 {
		return types.User{}, ErrNotFound
	}
	return user, nil
}

// SetSecret stores the given secret text on the user's record.
func (r *UserRepository) SetSecret(ctx context.Context, id int, secret string) error {
	const query = `
		UPDATE users
		SET secret = $1,
			updated_at = $2
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, secret, time.Now(), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListWithSecrets returns every user whose secret is set.
func (r *UserRepository) ListWithSecrets(ctx context.Context) ([]types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE secret IS NOT NULL
		ORDER BY updated_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// FindOrCreateByGoogleID returns the user with the given Google id,
// creating one if none exists. The upsert is a single statement so two
// concurrent callbacks for the same id converge on one row.
func (r *UserRepository) FindOrCreateByGoogleID(ctx context.Context, user types.User) (types.User, error) {
	const query = `
		INSERT INTO users (username, email, name, google_id, picture, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (google_id) DO UPDATE SET updated_at = EXCLUDED.updated_at
		RETURNING ` + userColumns
	now := time.Now()
	return r.scanOne(r.db.QueryRowContext(ctx, query,
		user.Username, user.Email, user.Name, user.GoogleID, user.Picture, now))
}

// FindOrCreateByFacebookID returns the user with the given Facebook id,
// creating one if none exists.
func (r *UserRepository) FindOrCreateByFacebookID(ctx context.Context, user types.User) (types.User, error) {
	const query = `
		INSERT INTO users (username, email, name, facebook_id, picture, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (facebook_id) DO UPDATE SET updated_at = EXCLUDED.updated_at
		RETURNING ` + userColumns
	now := time.Now()
	return r.scanOne(r.db.QueryRowContext(ctx, query,
		user.Username, user.Email, user.Name, user.FacebookID, user.Picture, now))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *UserRepository) scanOne(row rowScanner) (types.User, error) {
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, mapError(err)
	}
	return user, nil
}

func scanUser(row rowScanner) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.GoogleID,
		&user.FacebookID,
		&user.Picture,
		&user.Secret,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return types.User{}, err
	}
	return user, nil
}
