// Command seed imports companies and their last known submissions from a
// YAML file straight into the store. Run it while the service is idle.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gartstein/cvtracker/internal/cv/config"
	"github.com/gartstein/cvtracker/internal/cv/controller"
	"github.com/gartstein/cvtracker/internal/cv/db"
	"github.com/gartstein/cvtracker/internal/cv/events"
	"github.com/gartstein/cvtracker/internal/cv/models"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// seedFile is the on-disk layout:
//
//	companies:
//	  - name: Acme
//	    domain: acme.io
//	    english_submitted_at: 2024-02-10
//	    english_job_title: Backend Engineer
type seedFile struct {
	Companies []seedEntry `yaml:"companies"`
}

type seedEntry struct {
	Name               string     `yaml:"name"`
	Domain             string     `yaml:"domain"`
	LinkedInURL        string     `yaml:"linkedin_url"`
	EnglishSubmittedAt *time.Time `yaml:"english_submitted_at"`
	GermanSubmittedAt  *time.Time `yaml:"german_submitted_at"`
	EnglishJobTitle    *string    `yaml:"english_job_title"`
	GermanJobTitle     *string    `yaml:"german_job_title"`
}

func loadSeedFile(path string) ([]models.SeedEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file seedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	entries := make([]models.SeedEntry, 0, len(file.Companies))
	for _, c := range file.Companies {
		entries = append(entries, models.SeedEntry{
			Name:               c.Name,
			Domain:             c.Domain,
			LinkedInURL:        c.LinkedInURL,
			EnglishSubmittedAt: c.EnglishSubmittedAt,
			GermanSubmittedAt:  c.GermanSubmittedAt,
			EnglishJobTitle:    c.EnglishJobTitle,
			GermanJobTitle:     c.GermanJobTitle,
		})
	}
	return entries, nil
}

func main() {
	path := flag.String("file", "companies.yaml", "YAML file with the companies to seed")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	entries, err := loadSeedFile(*path)
	if err != nil {
		logger.Fatal("failed to read seed file", zap.Error(err))
	}

	ctx := context.Background()
	repo, err := db.NewRepository(ctx, cfg.Store(), logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer repo.Close()

	producer := events.NopProducer{}
	seeder := controller.NewBulkSeeder(
		controller.NewCompanyResolver(repo, producer, logger),
		controller.NewSubmissionLedger(repo, producer, logger),
		logger,
	)

	results, err := seeder.Seed(ctx, entries)
	if err != nil {
		logger.Fatal("seed failed", zap.Error(err))
	}

	var created, existing, submissions int
	for _, r := range results {
		if r.Status == models.SeedCreated {
			created++
		} else {
			existing++
		}
		submissions += len(r.Submissions)
	}
	fmt.Printf("Seeded %d new companies (%d already existed), %d submission records created\n",
		created, existing, submissions)
}
