package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/edvantage/academy/apps/api/echo"
	"github.com/edvantage/academy/core"
	"github.com/edvantage/academy/core/batch"
	"github.com/edvantage/academy/core/branch"
	"github.com/edvantage/academy/core/payment"
	"github.com/edvantage/academy/core/report"
	"github.com/edvantage/academy/core/student"
	"github.com/edvantage/academy/core/user"
	emailsvc "github.com/edvantage/academy/services/email"
	logsvc "github.com/edvantage/academy/services/logger"
	"github.com/edvantage/academy/storage/database"
	postgresdb "github.com/edvantage/academy/storage/database/postgres"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		core.Conf,
	)
	logger.Enable(!core.Conf.Debug)

	db, err := setUpDB()
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("failed to close DB", err)
		}
	}()

	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	studentRepo := postgresdb.NewStudentRepository(db)
	paymentRepo := postgresdb.NewPaymentRepository(db)
	batchRepo := postgresdb.NewBatchRepository(db)
	branchRepo := postgresdb.NewBranchRepository(db)
	userRepo := postgresdb.NewUserRepository(db)

	studentSvc := student.NewService(studentRepo, batchRepo)
	paymentSvc := payment.NewService(paymentRepo, mailSvc)
	batchSvc := batch.NewService(batchRepo, studentRepo)
	branchSvc := branch.NewService(branchRepo)
	reportSvc := report.NewService(branchRepo, studentRepo, batchRepo)
	userSvc := user.NewService(userRepo, mailSvc)

	// =========================================================================
	// Start API Service

	logger.Info(fmt.Sprintf("Application initializing : version %q", core.Conf.Build))
	defer logger.Info("Application stopped")

	server := echoapi.NewServer(&echoapi.Options{
		Addr:       fmt.Sprintf("%s:%d", core.Conf.Server.Host, core.Conf.Server.Port),
		Logger:     logger,
		StudentSvc: studentSvc,
		PaymentSvc: paymentSvc,
		BatchSvc:   batchSvc,
		BranchSvc:  branchSvc,
		ReportSvc:  reportSvc,
		UserSvc:    userSvc,
	})
	server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), core.Conf.Server.ShutdownTimeout)
		defer cancel()

		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB() (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(core.Conf); err != nil {
		return nil, err
	}

	db, err := database.Open(core.Conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		return nil, err
	}
	return db, nil
}
