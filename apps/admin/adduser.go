package main

import (
	"context"
	"fmt"

	"github.com/trezcool/preschool/core/user"
)

// addUser creates an account; the session opened by the signup is closed right away.
func (cli *commandLine) addUser(ctx context.Context, s user.Signup) error {
	p, id, err := cli.usrSvc.Signup(ctx, s)
	if err != nil {
		return err
	}
	if err = cli.usrSvc.Logout(ctx, id.SessionID); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "created %s %q (%s)\n", p.Role, p.Email, p.UID)
	return nil
}
