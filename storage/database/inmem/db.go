// Package inmemdb provides map-backed repositories, used as test doubles and
// for local development without a database.
package inmemdb

import (
	"sync"

	"github.com/forwardafrica/backend/core/otp"
	"github.com/forwardafrica/backend/core/user"
)

type (
	userTable struct {
		sync.RWMutex
		rows map[string]*user.User // keyed by ID
	}

	otpTable struct {
		sync.RWMutex
		rows map[string]*otp.PendingVerification // keyed by email
	}

	DB struct {
		user *userTable
		otp  *otpTable
	}
)

func Open() (*DB, error) {
	return &DB{
		user: &userTable{rows: make(map[string]*user.User)},
		otp:  &otpTable{rows: make(map[string]*otp.PendingVerification)},
	}, nil
}
