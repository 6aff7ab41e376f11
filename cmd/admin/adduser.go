package main

import (
	"context"

	"github.com/forwardafrica/backend/core"
	"github.com/forwardafrica/backend/core/identity"
	"github.com/forwardafrica/backend/core/user"
)

// addUser updates or creates a user account, bypassing email verification.
func (cli *commandLine) addUser(email, name, pwd, role string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)
	name = core.CleanString(name)

	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr, err = cli.usrSvc.Create(ctx, user.NewUser{
			Name:            name,
			Email:           email,
			Password:        pwd,
			PasswordConfirm: pwd,
		})
		if err != nil {
			return err
		}
	}

	if role != "" {
		if _, err := cli.usrSvc.SetRole(ctx, usr.ID, identity.ParseRole(role)); err != nil {
			return err
		}
	}
	// operator-created accounts are trusted
	uu := user.UpdateUser{Password: pwd, PasswordConfirm: pwd}
	uu.Name = name
	if _, err := cli.usrSvc.Update(ctx, usr.ID, uu); err != nil {
		return err
	}
	return cli.usrSvc.MarkVerified(ctx, email)
}
