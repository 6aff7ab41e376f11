package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/forwardafrica/backend/core/identity"
	"github.com/forwardafrica/backend/core/user"
)

type dbUser struct {
	ID            string    `db:"id"`
	Name          string    `db:"name"`
	Email         string    `db:"email"`
	Role          string    `db:"role"`
	IsActive      bool      `db:"is_active"`
	EmailVerified bool      `db:"email_verified"`
	PasswordHash  []byte    `db:"password_hash"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
	LastLogin     time.Time `db:"last_login"`
}

func (du dbUser) toUser() user.User {
	return user.User{
		ID:            du.ID,
		Name:          du.Name,
		Email:         du.Email,
		Role:          identity.ParseRole(du.Role),
		IsActive:      du.IsActive,
		EmailVerified: du.EmailVerified,
		PasswordHash:  du.PasswordHash,
		CreatedAt:     du.CreatedAt,
		UpdatedAt:     du.UpdatedAt,
		LastLogin:     du.LastLogin,
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	query := `SELECT COUNT(*) FROM "user" WHERE email = $1`
	args := []interface{}{email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, usr := range excludedUsers {
			ids = append(ids, usr.ID)
		}
		var err error
		query, args, err = sqlx.In(`SELECT COUNT(*) FROM "user" WHERE email = ? AND id NOT IN (?)`, email, ids)
		if err != nil {
			return errors.Wrap(err, "building uniqueness query")
		}
		query = repo.db.Rebind(query)
	}

	var count int
	if err := repo.db.GetContext(ctx, &count, query, args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if count > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	const query = `
		INSERT INTO "user" (id, name, email, role, is_active, email_verified, password_hash, created_at, updated_at, last_login)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := repo.db.ExecContext(
		ctx, query,
		usr.ID, usr.Name, usr.Email, string(usr.Role), usr.IsActive, usr.EmailVerified,
		usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt, usr.LastLogin,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	var du dbUser
	err := repo.db.GetContext(ctx, &du, `SELECT * FROM "user" WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user by id")
	}
	return du.toUser(), nil
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var du dbUser
	err := repo.db.GetContext(ctx, &du, `SELECT * FROM "user" WHERE email = $1`, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user by email")
	}
	return du.toUser(), nil
}

func (repo *userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	query := `SELECT * FROM "user"`
	var clauses []string
	var args []interface{}

	if filter.Search != "" {
		search := "%" + strings.ToLower(filter.Search) + "%"
		clauses = append(clauses, "(LOWER(name) LIKE ? OR LOWER(email) LIKE ?)")
		args = append(args, search, search)
	}
	if filter.Role != "" {
		clauses = append(clauses, "role = ?")
		args = append(args, filter.Role)
	}
	if filter.IsActive != nil {
		clauses = append(clauses, "is_active = ?")
		args = append(args, *filter.IsActive)
	}
	if !filter.CreatedFrom.IsZero() {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, filter.CreatedFrom)
	}
	if !filter.CreatedTo.IsZero() {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, filter.CreatedTo)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"
	query = repo.db.Rebind(query)

	var dbUsers []dbUser
	if err := repo.db.SelectContext(ctx, &dbUsers, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering users")
	}
	users := make([]user.User, 0, len(dbUsers))
	for _, du := range dbUsers {
		users = append(users, du.toUser())
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	sets := []string{"updated_at = ?"}
	args := []interface{}{usr.UpdatedAt}

	if usr.Name != "" {
		sets = append(sets, "name = ?")
		args = append(args, usr.Name)
	}
	if usr.Email != "" {
		sets = append(sets, "email = ?")
		args = append(args, usr.Email)
	}
	if usr.Role != "" {
		sets = append(sets, "role = ?")
		args = append(args, string(usr.Role))
	}
	if len(usr.PasswordHash) > 0 {
		sets = append(sets, "password_hash = ?")
		args = append(args, usr.PasswordHash)
	}
	if isActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *isActive)
	}
	args = append(args, usr.ID)

	query := repo.db.Rebind(`UPDATE "user" SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`)
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUserByID(ctx, usr.ID)
}

func (repo *userRepository) SetLastLogin(ctx context.Context, usr user.User) (user.User, error) {
	usr.LastLogin = time.Now().UTC()
	const query = `UPDATE "user" SET last_login = $1 WHERE id = $2`
	if _, err := repo.db.ExecContext(ctx, query, usr.LastLogin, usr.ID); err != nil {
		return user.User{}, errors.Wrap(err, "setting last login")
	}
	return usr, nil
}

func (repo *userRepository) MarkEmailVerified(ctx context.Context, email string) error {
	const query = `UPDATE "user" SET email_verified = TRUE, updated_at = $1 WHERE email = $2`
	if _, err := repo.db.ExecContext(ctx, query, time.Now().UTC(), email); err != nil {
		return errors.Wrap(err, "marking email verified")
	}
	return nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM "user" WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	query = repo.db.Rebind(query)
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
