package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/preschool/core"
	"github.com/trezcool/preschool/core/calendar"
	"github.com/trezcool/preschool/core/dashboard"
	"github.com/trezcool/preschool/core/user"
	"github.com/trezcool/preschool/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword      // mockable
	gooseRunFunc     = database.RunMigrations // mockable

	errHelp       = errors.New("help provided")
	errNoDB       = errors.New("migrate requires the postgres storage engine")
	errPwdsDiffer = errors.New("passwords do not match")
)

type commandLine struct {
	db      *sql.DB // nil with the memory storage engine
	usrSvc  *user.Service
	fetcher dashboard.Fetcher
	initial calendar.YearMonth
	logger  core.Logger
	out     io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  adduser -name NAME -email EMAIL -role parent|teacher [-student ID] - create an account")
	fmt.Fprintln(cli.out, "  resetpassword -email EMAIL - reset an account's password")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  student -id ID - print the dashboard of a student")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserCmd.SetOutput(cli.out)
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserRole := addUserCmd.String("role", user.RoleParent, "parent or teacher.")
	addUserStudent := addUserCmd.String("student", "", "The ID of a parent's student.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordCmd.SetOutput(cli.out)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	studentCmd := flag.NewFlagSet("student", flag.ContinueOnError)
	studentCmd.SetOutput(cli.out)
	studentID := studentCmd.String("id", "", "The student ID.")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserName == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(ctx, user.Signup{
			Name:      *addUserName,
			Email:     *addUserEmail,
			Password:  pwd,
			Role:      *addUserRole,
			StudentID: *addUserStudent,
		})
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(ctx, *resetPasswordEmail, pwd)
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(ctx, args[2:])
	case "student":
		if err := studentCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *studentID == "" {
			studentCmd.Usage()
			return errHelp
		}
		return cli.student(ctx, *studentID)
	default:
		cli.printUsage()
		return errHelp
	}
}

// promptPassword reads the password twice from the terminal, without echo.
func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil || len(pwd) == 0 {
		return "", err
	}
	fmt.Fprint(cli.out, "Confirm password:")
	confirm, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if string(confirm) != string(pwd) {
		return "", errPwdsDiffer
	}
	return string(pwd), nil
}
