package main

import (
	"log"
	"os"

	"github.com/pkg/errors"

	"github.com/forwardafrica/backend/core"
	"github.com/forwardafrica/backend/core/otp"
	"github.com/forwardafrica/backend/core/user"
	"github.com/forwardafrica/backend/services/email"
	"github.com/forwardafrica/backend/storage/database"
	sqlxrepos "github.com/forwardafrica/backend/storage/database/sqlx"
)

func main() {
	std := log.New(os.Stdout, "ADMIN : ", log.LstdFlags)
	if err := run(std, os.Args); err != nil {
		if err != errHelp {
			std.Fatalf("%+v", err)
		}
		os.Exit(2)
	}
}

func run(std *log.Logger, args []string) error {
	db, err := database.Open(core.Conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	validate, translator := core.NewValidation()
	user.RegisterValidators(validate, translator)

	mailSvc := emailsvc.NewConsoleService()
	otpSvc := otp.NewService(sqlxrepos.NewOTPRepository(db), mailSvc, validate)

	cli := &commandLine{
		db:     db,
		usrSvc: user.NewService(sqlxrepos.NewUserRepository(db), otpSvc, mailSvc),
	}
	return cli.run(args)
}
