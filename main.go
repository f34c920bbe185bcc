// Package main school library circulation API.
//
// @title           Library Circulation API
// @version         1.0
// @description     catalog, reservations, loans, and overdue reporting for a school library.
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"libcirc/app/echoServer"
	authctrl "libcirc/app/echoServer/controller/auth"
	bookctrl "libcirc/app/echoServer/controller/book"
	loanctrl "libcirc/app/echoServer/controller/loan"
	personctrl "libcirc/app/echoServer/controller/person"
	reportctrl "libcirc/app/echoServer/controller/report"
	rsvctrl "libcirc/app/echoServer/controller/reservation"
	"libcirc/app/echoServer/validation"
	"libcirc/config"
	"libcirc/repository/catalog"
	"libcirc/repository/memory"
	mongostore "libcirc/repository/mongo"
	notifyrepo "libcirc/repository/notify"
	"libcirc/repository/postgres"
	"libcirc/service/availability"
	catalogsvc "libcirc/service/catalog"
	loansvc "libcirc/service/loan"
	reportsvc "libcirc/service/report"
	rsvc "libcirc/service/reservation"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	// catalog store: opened once here, closed on shutdown
	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Error("store open failed", "driver", cfg.StoreDriver, "err", err)
		os.Exit(1)
	}
	defer store.Close(context.Background())

	// services
	avail := availability.New(store.Copies(), store.Loans(), log)
	cs := catalogsvc.New(store, avail)
	rs := rsvc.New(store, avail, cfg.LoanPeriodDays, log)
	ls := loansvc.New(store, log)
	reps := reportsvc.New(store, cfg.FineRate)

	// controllers
	v := validator.New()
	authC := &authctrl.Controller{
		StaffUsername:     cfg.StaffUsername,
		StaffPasswordHash: cfg.StaffPasswordHash,
		JWTSecret:         cfg.JWTSecret,
		V:                 v, Log: log,
	}
	bookC := &bookctrl.Controller{Svc: cs, V: v, Log: log}
	personC := &personctrl.Controller{Svc: cs, Loans: ls, V: v, Log: log}
	rsvC := &rsvctrl.Controller{Svc: rs, V: v, Log: log}
	loanC := &loanctrl.Controller{Svc: ls, Log: log}
	reportC := &reportctrl.Controller{Svc: reps, Log: log}

	// echo
	e := echo.New()
	e.HideBanner = true
	e.JSONSerializer = echoServer.JSONSerializer{}
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New()

	e.GET("/health", func(c echo.Context) error {
		if err := store.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "store unreachable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	echoServer.Register(e, echoServer.C{
		Auth:        authC,
		Book:        bookC,
		Person:      personC,
		Reservation: rsvC,
		Loan:        loanC,
		Report:      reportC,

		JWTSecret: cfg.JWTSecret,
	})

	// overdue notification daemon, opt-in
	daemonCtx, stopDaemon := context.WithCancel(ctx)
	defer stopDaemon()
	if cfg.NotifyWebhookURL != "" {
		notifier := loansvc.NewNotifier(
			ls,
			notifyrepo.NewHTTP(cfg.NotifyWebhookURL, time.Duration(cfg.NotifyTimeoutS)*time.Second),
			time.Duration(cfg.NotifyIntervalM)*time.Minute,
			log,
		)
		go notifier.Run(daemonCtx)
		log.Info("overdue notifier started", "interval_min", cfg.NotifyIntervalM)
	}

	go func() {
		log.Info("starting server", "port", cfg.Port, "store", cfg.StoreDriver)
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Error("server stopped", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	log.Info("shutting down")
	stopDaemon()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
	}
}

func openStore(ctx context.Context, cfg config.App) (catalog.Store, error) {
	switch cfg.StoreDriver {
	case "mongo":
		return mongostore.Open(ctx, cfg.MongoURI, cfg.MongoDB)
	case "memory":
		return memory.New(), nil
	default:
		return postgres.Open(ctx, cfg.DatabaseURL)
	}
}
