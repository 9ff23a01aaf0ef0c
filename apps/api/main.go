package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	"os"

	echoapi "github.com/trezcool/preschool/apps/api/echo"
	"github.com/trezcool/preschool/core"
	"github.com/trezcool/preschool/core/calendar"
	"github.com/trezcool/preschool/core/chat"
	"github.com/trezcool/preschool/core/dashboard"
	"github.com/trezcool/preschool/core/identity"
	"github.com/trezcool/preschool/core/sheets"
	"github.com/trezcool/preschool/core/user"
	emailsvc "github.com/trezcool/preschool/services/email"
	logsvc "github.com/trezcool/preschool/services/logger"
	"github.com/trezcool/preschool/storage"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up storage
	store, closeStore, err := storage.Open(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}
	defer func() {
		if err = closeStore(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// set up services
	identities, err := identity.NewLocalProvider(store, conf.AppName, conf.SecretKey, conf.Server.JWTExpirationDelta)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up identity provider: %v", err), err)
	}
	defer identities.Close()

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	usrSvc, err := user.NewService(identities, store, mailSvc, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up user service: %v", err), err)
	}
	gate := user.NewGate(identities, usrSvc, logger)
	defer gate.Close()

	fetcher, err := sheets.NewFetcher(conf.Sheets.StudentURL, conf.Sheets.AttendanceURL, conf.Sheets.Timeout, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up sheets fetcher: %v", err), err)
	}
	chatClient, err := chat.NewClient(conf.Chat.WebhookURL, conf.Sheets.Timeout, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up chat client: %v", err), err)
	}
	dashboards := dashboard.NewRegistry(
		identities,
		fetcher,
		calendar.YearMonth{Year: conf.Dashboard.InitialYear, Month: conf.Dashboard.InitialMonth},
		chat.NewWidgetConfig(conf.Chat),
		conf.Sheets.Timeout,
		logger,
	)
	defer dashboards.Shutdown()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : %s", conf))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.Publish("dashboards", expvar.Func(func() interface{} { return dashboards.Len() }))
	expvar.Publish("sessions", expvar.Func(func() interface{} { return gate.Len() }))

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Identities: identities,
			UserSvc:    usrSvc,
			Gate:       gate,
			Dashboards: dashboards,
			Chat:       chatClient,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
