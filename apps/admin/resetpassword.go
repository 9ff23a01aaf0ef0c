package main

import (
	"context"

	"github.com/trezcool/preschool/core/user"
)

func (cli *commandLine) resetPassword(ctx context.Context, email, pwd string) error {
	return cli.usrSvc.ResetPassword(ctx, user.ResetPassword{
		Email:           email,
		Password:        pwd,
		PasswordConfirm: pwd,
	})
}
