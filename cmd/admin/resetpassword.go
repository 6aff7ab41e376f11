package main

import (
	"context"

	"github.com/forwardafrica/backend/core/user"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	_, err = cli.usrSvc.Update(ctx, usr.ID, user.UpdateUser{Password: pwd, PasswordConfirm: pwd})
	return err
}
