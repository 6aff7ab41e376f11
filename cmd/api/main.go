package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"

	echoapi "github.com/forwardafrica/backend/api/echo"
	"github.com/forwardafrica/backend/core"
	"github.com/forwardafrica/backend/core/otp"
	"github.com/forwardafrica/backend/core/user"
	"github.com/forwardafrica/backend/services/email"
	"github.com/forwardafrica/backend/services/logger"
	"github.com/forwardafrica/backend/storage/database"
	sqlxrepos "github.com/forwardafrica/backend/storage/database/sqlx"
)

func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	if err := run(std); err != nil {
		std.Fatalf("%+v", err)
	}
}

func run(std *log.Logger) error {
	conf := core.Conf

	appLogger := logsvc.NewRollbarLogger(std, conf)
	appLogger.Enable(conf.Env == "PROD" || conf.Env == "QA")

	// database
	db, err := database.Open(conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.StatusCheck(ctx, db); err != nil {
		return errors.Wrap(err, "database not ready")
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	// services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(appLogger)
	}

	validate, translator := core.NewValidation()
	user.RegisterValidators(validate, translator)

	otpSvc := otp.NewService(sqlxrepos.NewOTPRepository(db), mailSvc, validate)
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), otpSvc, mailSvc)

	app := echoapi.NewServer(&echoapi.Options{
		Address:    fmt.Sprintf("%s:%d", conf.Server.Host, conf.Server.Port),
		UserSvc:    usrSvc,
		Logger:     appLogger,
		Validate:   validate,
		Translator: translator,
	})

	go func() {
		std.Printf("API listening on %s:%d", conf.Server.Host, conf.Server.Port)
		app.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case <-app.ShutdownSignal():
		std.Print("integrity issue: shutting down")
	case sig := <-quit:
		std.Printf("%v: shutting down", sig)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		return errors.Wrap(err, "stopping server")
	}
	return nil
}
