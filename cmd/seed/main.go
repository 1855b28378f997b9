// Command seed loads the sample article corpus. Articles already present (by title) are skipped.
package main

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/aldoetobex/legal-consult-backend/internal/config"
	"github.com/aldoetobex/legal-consult-backend/internal/logging"
	"github.com/aldoetobex/legal-consult-backend/internal/store"
	"github.com/aldoetobex/legal-consult-backend/pkg/database"
	"github.com/aldoetobex/legal-consult-backend/pkg/models"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	if err := database.Migrate(cfg.DatabaseURL, "up"); err != nil {
		log.WithError(err).Fatal("migration failed")
	}
	db, err := database.Open(cfg.DatabaseURL, log)
	if err != nil {
		log.WithError(err).Fatal("database unavailable")
	}

	added, err := store.New(db).SeedArticles(context.Background(), sampleArticles())
	if err != nil {
		log.WithError(err).Fatal("seed failed")
	}
	log.WithField("added", added).Info("seed complete")
}

func article(title string, year int, court, summary, fullText string, tags ...string) models.Article {
	return models.Article{
		Title:    title,
		Year:     &year,
		Court:    &court,
		Summary:  &summary,
		FullText: &fullText,
		Tags:     pq.StringArray(tags),
	}
}

func sampleArticles() []models.Article {
	return []models.Article{
		article(
			"State vs. Sharma — 2015", 2015, "High Court of Delhi",
			"Landmark judgment clarifying mens rea standards for aggravated assault; the court held that recklessness + knowledge are distinct factors and must be proved separately.",
			"In this appeal the court considered... the requirement that mens rea be established beyond reasonable doubt...",
			"criminal-law", "mens-rea", "assault",
		),
		article(
			"People v. Rao — 2018", 2018, "Supreme Court (sample)",
			"Discusses admissibility of electronic evidence and chain-of-custody; set requirements for forensic verification.",
			"The court recognized evolving nature of digital evidence and emphasized certification and preservation of hashes...",
			"evidence", "digital", "chain-of-custody",
		),
		article(
			"R. vs. K. Gupta — 2020", 2020, "Bombay High Court",
			"On use of confessions made to third parties and admissibility under exception clauses; the ruling set out guidelines for corroborative evidence.",
			"The evidence was evaluated in light of corroboration and reliability of witness testimony…",
			"confession", "admissibility", "witness",
		),
		article(
			"State v. Mehta — 2016", 2016, "Karnataka High Court",
			"Interprets statutory sentencing minimums for repeat offenders under particular penal sections; clarified remission rules.",
			"Court reviewed prior sentencing jurisprudence and held that mitigating factors must be documented…",
			"sentencing", "repeat-offender",
		),
		article(
			"Criminal Law Review — 2019 — Search & Seizure in the Digital Age", 2019, "N/A (journal)",
			"Overview article on balancing privacy rights with investigative powers; recommended legislative updates for warrant scopes.",
			"As technology evolves, warrants should specify scope, duration and access controls….",
			"journal", "search", "privacy",
		),
	}
}
