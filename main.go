package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"gorm.io/gorm"

	"tradesense/src/database"
	"tradesense/src/model"
	"tradesense/src/repository"
	"tradesense/src/server"
)

var APP_NAME = os.Getenv("APP_NAME")

func SetupLogger() {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))

	level, err := logger.ParseLevel(levelStr)
	if err != nil {
		level = logger.DebugLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logger.TextFormatter{
		FullTimestamp: true,
	})
}

func main() {
	SetupLogger()
	defer handlePanic()

	app := cli.NewApp()
	app.Name = "tradesense"
	app.Usage = "funded trading challenge API"
	app.Commands = []cli.Command{
		{
			Name:  "serve",
			Usage: "run the HTTP API server",
			Action: func(c *cli.Context) error {
				if err := database.InitMainDB(); err != nil {
					return fmt.Errorf("failed to connect to database: %w", err)
				}
				server.StartServer(server.GetConfig().Port)
				return nil
			},
		},
		{
			Name:  "seed",
			Usage: "create the demo user if it does not exist",
			Action: func(c *cli.Context) error {
				if err := database.InitMainDB(); err != nil {
					return fmt.Errorf("failed to connect to database: %w", err)
				}
				return seedDemoUser(context.Background())
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.WithError(err).Fatal("Application exited with error")
	}
}

func seedDemoUser(ctx context.Context) error {
	users := repository.NewUserRepository()

	existing, err := users.GetUserByEmail(ctx, "demo@tradesense.ma")
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if existing != nil {
		logger.Info("Demo user already exists, nothing to do")
		return nil
	}

	user := &model.User{
		Name:  "Demo Trader",
		Email: "demo@tradesense.ma",
		Role:  model.RoleUser,
	}
	if err := user.SetPassword("demo1234"); err != nil {
		return err
	}
	if err := users.Create(ctx, user); err != nil {
		return err
	}

	logger.WithField("email", user.Email).Info("Demo user created")
	return nil
}

func handlePanic() {
	if r := recover(); r != nil {
		logger.WithError(fmt.Errorf("%+v", r)).Error(fmt.Sprintf("Application %s panic", APP_NAME))
	}
	//nolint
	time.Sleep(time.Second * 5)
}
