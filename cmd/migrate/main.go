// Command migrate applies the embedded schema migrations and back-fills named constraints.
//
//	migrate [up|down]
package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/aldoetobex/legal-consult-backend/internal/config"
	"github.com/aldoetobex/legal-consult-backend/internal/logging"
	"github.com/aldoetobex/legal-consult-backend/pkg/database"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	direction := "up"
	if len(os.Args) > 1 {
		direction = os.Args[1]
	}
	if err := database.Migrate(cfg.DatabaseURL, direction); err != nil {
		log.WithError(err).Fatal("migration failed")
	}
	log.WithField("direction", direction).Info("migrations applied")

	if direction != "up" {
		return
	}
	db, err := database.Open(cfg.DatabaseURL, log)
	if err != nil {
		log.WithError(err).Fatal("database unavailable")
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.WithError(err).Fatal("database handle")
	}
	defer sqlDB.Close()

	added, err := database.EnsureConstraints(context.Background(), sqlDB, database.Constraints)
	if err != nil {
		log.WithError(err).Fatal("constraint back-filling failed")
	}
	log.WithField("added", added).Info("constraints checked")
}
