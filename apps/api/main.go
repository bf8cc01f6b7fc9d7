package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	echoapi "github.com/trezcool/lifeline/apps/api/echo"
	"github.com/trezcool/lifeline/core"
	"github.com/trezcool/lifeline/core/alert"
	"github.com/trezcool/lifeline/core/donor"
	"github.com/trezcool/lifeline/core/messaging"
	"github.com/trezcool/lifeline/core/user"
	broadcastsvc "github.com/trezcool/lifeline/services/broadcast"
	emailsvc "github.com/trezcool/lifeline/services/email"
	logsvc "github.com/trezcool/lifeline/services/logger"
	smssvc "github.com/trezcool/lifeline/services/sms"
	"github.com/trezcool/lifeline/storage/database"
	sqlxrepos "github.com/trezcool/lifeline/storage/database/sqlx"
)

func main() {
	// set up logging
	var logger core.Logger = logsvc.NewZeroLogger(core.Conf)
	if core.Conf.RollbarToken != "" {
		logger = logsvc.NewRollbarLogger(logger, core.Conf)
	}
	logger.Enable(!core.Conf.Debug)

	// set up DB
	db, err := database.Open(core.Conf)
	errAndDie(logger, err, "opening database")
	defer db.Close()
	errAndDie(logger, db.Ping(), "pinging database")
	errAndDie(logger, database.Migrate(db.DB), "migrating database")

	// set up repos
	userRepo := sqlxrepos.NewUserRepository(db)
	donorRepo := sqlxrepos.NewDonorRepository(db)
	messageRepo := sqlxrepos.NewMessageRepository(db)
	alertRepo := sqlxrepos.NewAlertRepository(db)

	// set up services
	var mailSvc core.EmailService
	if core.Conf.MailEnabled() {
		mailSvc = emailsvc.NewSendgridService(logger)
	} else {
		mailSvc = emailsvc.NewConsoleService()
	}
	hub := broadcastsvc.NewHub()
	usrSvc := user.NewService(userRepo, mailSvc, logger)
	donorSvc := donor.NewService(donorRepo, logger)
	msgSvc := messaging.NewService(messageRepo, usrSvc, hub)

	// the SMS channel is all-or-nothing: a partially configured gateway
	// disables it entirely
	var smsChannel alert.Channel
	if core.Conf.SMS.Enabled() {
		smsChannel = alert.NewSmsChannel(smssvc.NewGateway(core.Conf.SMS))
	} else {
		logger.Warn("SMS gateway not configured; alerts go out by email only")
	}
	dispatcher := alert.NewDispatcher(donorSvc, alert.NewEmailChannel(mailSvc), smsChannel, alertRepo, hub, logger)
	recorder := alert.NewRecorder(donorSvc, alertRepo)

	// periodic leaderboard refresh
	crond := cron.New()
	_, err = crond.AddFunc(core.Conf.LeaderboardRefreshSpec, func() {
		if err := donorSvc.RefreshLeaderboard(context.Background()); err != nil {
			logger.Error("refreshing leaderboard", err)
		}
	})
	errAndDie(logger, err, "scheduling leaderboard refresh")
	crond.Start()
	defer crond.Stop()

	// start API server
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	app := echoapi.NewServer(
		&echoapi.Options{
			Addr:         core.Conf.Server.Addr,
			UserSvc:      usrSvc,
			DonorSvc:     donorSvc,
			MessagingSvc: msgSvc,
			Dispatcher:   dispatcher,
			Recorder:     recorder,
			AuditLog:     alertRepo,
			Broadcaster:  hub,
			Logger:       logger,
		},
		func() { shutdown <- syscall.SIGTERM },
	)

	serverErrs := make(chan error, 1)
	go func() { serverErrs <- app.Start() }()
	logger.Info("API server listening on " + core.Conf.Server.Addr)

	select {
	case err = <-serverErrs:
		errAndDie(logger, err, "server error")
	case sig := <-shutdown:
		logger.Info("shutting down", map[string]interface{}{"signal": sig.String()})

		ctx, cancel := context.WithTimeout(context.Background(), core.Conf.Server.ShutdownTimeout)
		defer cancel()
		if err = app.Stop(ctx); err != nil {
			logger.Error("graceful shutdown failed", err)
		}
	}
}

func errAndDie(logger core.Logger, err error, msg string) {
	if err != nil {
		logger.Fatal(msg, err)
	}
}
