package main

import (
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	appfs "github.com/forwardafrica/backend/fs"
)

var gooseRunFunc = goose.Run // mockable

func (cli *commandLine) migrate(args []string) error {
	command := "up"
	if len(args) > 0 {
		command = args[0]
	}

	goose.SetBaseFS(appfs.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "setting goose dialect")
	}
	var arguments []string
	if len(args) > 1 {
		arguments = args[1:]
	}
	if err := gooseRunFunc(command, cli.db.DB, "migrations", arguments...); err != nil {
		return errors.Wrap(err, "running migrations")
	}
	return nil
}
