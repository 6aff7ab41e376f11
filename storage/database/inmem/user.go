package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/forwardafrica/backend/core/user"
)

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db.user}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.rows))
	for _, u := range repo.db.rows {
		users = append(users, *u)
	}
	return users
}

func (repo *userRepository) CheckEmailUniqueness(_ context.Context, email string, excludedUsers ...user.User) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excluded := make(map[string]bool, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded[usr.ID] = true
	}

	for _, usr := range repo.query() {
		if usr.Email == email && !excluded[usr.ID] {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.rows[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if usr, ok := repo.db.rows[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.query() {
		if usr.Email == email {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) FilterUsers(_ context.Context, filter user.QueryFilter) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := repo.query()

	if filter.Search != "" {
		var filtered []user.User
		search := strings.ToLower(filter.Search)
		for _, u := range users {
			if strings.Contains(strings.ToLower(u.Name), search) ||
				strings.Contains(strings.ToLower(u.Email), search) {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}
	if users != nil && filter.Role != "" {
		var filtered []user.User
		for _, u := range users {
			if string(u.Role) == filter.Role {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}
	if users != nil && filter.IsActive != nil {
		var filtered []user.User
		for _, u := range users {
			if u.IsActive == *filter.IsActive {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}
	if users != nil && !filter.CreatedFrom.IsZero() {
		var filtered []user.User
		for _, u := range users {
			if !u.CreatedAt.Before(filter.CreatedFrom) {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}
	if users != nil && !filter.CreatedTo.IsZero() {
		var filtered []user.User
		for _, u := range users {
			if !u.CreatedAt.After(filter.CreatedTo) {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}

	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return users, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, isActive *bool) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.rows[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	if usr.Name != "" {
		orig.Name = usr.Name
	}
	if usr.Email != "" {
		orig.Email = usr.Email
	}
	if usr.Role != "" {
		orig.Role = usr.Role
	}
	if len(usr.PasswordHash) > 0 {
		orig.PasswordHash = usr.PasswordHash
	}
	if isActive != nil {
		orig.IsActive = *isActive
	}
	orig.UpdatedAt = usr.UpdatedAt
	return *orig, nil
}

func (repo *userRepository) SetLastLogin(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.rows[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	orig.LastLogin = time.Now().UTC()
	return *orig, nil
}

func (repo *userRepository) MarkEmailVerified(_ context.Context, email string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, usr := range repo.db.rows {
		if usr.Email == email {
			usr.EmailVerified = true
			return nil
		}
	}
	return user.ErrNotFound
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		delete(repo.db.rows, id)
	}
	return nil
}
