package main

import (
	"context"
	"database/sql"
	"log"
	"os"

	"github.com/trezcool/preschool/core"
	"github.com/trezcool/preschool/core/calendar"
	"github.com/trezcool/preschool/core/identity"
	"github.com/trezcool/preschool/core/sheets"
	"github.com/trezcool/preschool/core/user"
	emailsvc "github.com/trezcool/preschool/services/email"
	logsvc "github.com/trezcool/preschool/services/logger"
	"github.com/trezcool/preschool/storage"
	"github.com/trezcool/preschool/storage/database"
	inmemdb "github.com/trezcool/preschool/storage/database/inmem"
	pgdb "github.com/trezcool/preschool/storage/database/postgres"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)

	// set up storage; migrations are left to the `migrate` command
	var (
		db    *sql.DB
		store core.DocumentStore
	)
	switch conf.Storage.Engine {
	case storage.EngineMemory:
		store = inmemdb.NewDocumentStore()
	default:
		sqlxDB, err := database.Open(conf)
		errAndDie(logger, err)
		defer sqlxDB.Close()
		errAndDie(logger, database.Ping(context.Background(), sqlxDB))
		db = sqlxDB.DB
		store = pgdb.NewDocumentStore(sqlxDB)
	}

	// set up services
	identities, err := identity.NewLocalProvider(store, conf.AppName, conf.SecretKey, conf.Server.JWTExpirationDelta)
	errAndDie(logger, err)
	defer identities.Close()
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrSvc, err := user.NewService(identities, store, mailSvc, logger)
	errAndDie(logger, err)
	fetcher, err := sheets.NewFetcher(conf.Sheets.StudentURL, conf.Sheets.AttendanceURL, conf.Sheets.Timeout, logger)
	errAndDie(logger, err)

	// start CLI
	cli := commandLine{
		db:      db,
		usrSvc:  usrSvc,
		fetcher: fetcher,
		initial: calendar.YearMonth{Year: conf.Dashboard.InitialYear, Month: conf.Dashboard.InitialMonth},
		logger:  logger,
		out:     os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		logger.Close()
		os.Exit(1)
	}
	logger.Close()
}

func errAndDie(logger core.Logger, err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
