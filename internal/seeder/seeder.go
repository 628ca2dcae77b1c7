// Package seeder fills a development database with sample links and a
// realistic spread of click traffic so the dashboard has something to show.
package seeder

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge"
	"gorm.io/gorm"

	"linktally/internal/clicks"
	"linktally/internal/links"
)

// Seeder handles the demo data seeding process.
type Seeder struct {
	DBManager  cartridge.DBManager
	Logger     *slog.Logger
	ClickCount int
	Days       int
}

// NewSeeder creates a new seeder instance
func NewSeeder(dbManager cartridge.DBManager, logger *slog.Logger, clickCount, days int) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	if days < 1 {
		days = 30
	}
	return &Seeder{
		DBManager:  dbManager,
		Logger:     logger,
		ClickCount: clickCount,
		Days:       days,
	}
}

// sampleLinks are the demo links created when the database has none.
var sampleLinks = []links.CreateLinkInput{
	{DestinationURL: "https://example.com/products/widget", Campaign: "product_launch"},
	{DestinationURL: "https://example.com/blog/announcing-v2", Campaign: "newsletter"},
	{DestinationURL: "https://example.com/pricing", Campaign: "spring_sale"},
	{DestinationURL: "https://example.com/docs/getting-started"},
	{DestinationURL: "https://example.com/careers"},
}

// Run executes the seeding process
func (s *Seeder) Run(ctx context.Context) error {
	start := time.Now()
	s.Logger.Info("Starting database seeding...",
		slog.Int("clickCount", s.ClickCount), slog.Int("days", s.Days))

	db := s.DBManager.GetConnection()

	seeded, err := s.seedLinks(db)
	if err != nil {
		return fmt.Errorf("failed to seed links: %w", err)
	}

	if err := s.generateClicks(ctx, db, seeded); err != nil {
		return fmt.Errorf("failed to generate clicks: %w", err)
	}

	s.Logger.Info("Database seeding finished", slog.Duration("elapsed", time.Since(start)))
	return nil
}

// seedLinks creates the sample links, reusing any that already exist so the
// seeder is safe to re-run.
func (s *Seeder) seedLinks(db *gorm.DB) ([]*links.Link, error) {
	var seeded []*links.Link
	for _, input := range sampleLinks {
		var existing links.Link
		err := db.Where("destination_url = ?", input.DestinationURL).First(&existing).Error
		if err == nil {
			seeded = append(seeded, &existing)
			continue
		}

		link, err := links.CreateLink(db, input)
		if err != nil {
			return nil, err
		}
		s.Logger.Info("Seeded link",
			slog.String("short_code", link.ShortCode),
			slog.String("destination", link.DestinationURL))
		seeded = append(seeded, link)
	}
	return seeded, nil
}

// generateClicks spreads ClickCount clicks over the seeded links and the
// configured day range. Traffic is skewed so the first links dominate the
// top-links panel the way real campaigns do.
func (s *Seeder) generateClicks(ctx context.Context, db *gorm.DB, seeded []*links.Link) error {
	ipPool := generateIPPool(s.ClickCount / 4)
	userAgents := getUserAgents()
	referrers := getReferrers()

	created := 0
	for i := 0; i < s.ClickCount; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// Skewed link choice: earlier links get more traffic
		linkIndex := rand.IntN(len(seeded))
		if rand.IntN(2) == 0 {
			linkIndex = rand.IntN((len(seeded) / 2) + 1)
		}
		if linkIndex >= len(seeded) {
			linkIndex = len(seeded) - 1
		}

		clickTime := time.Now().UTC().
			Add(-time.Duration(rand.IntN(s.Days*24*60*60)) * time.Second)

		input := clicks.RecordClickInput{
			Link:      seeded[linkIndex],
			IPAddress: ipPool[rand.IntN(len(ipPool))],
			UserAgent: userAgents[rand.IntN(len(userAgents))],
			Referrer:  referrers[rand.IntN(len(referrers))],
			UTM:       randomUTM(),
			ClickTime: clickTime,
		}

		if _, err := clicks.RecordClick(s.Logger, db, input); err != nil {
			s.Logger.Error("Failed to record click during seeding", slog.Any("error", err))
		} else {
			created++
		}
	}

	s.Logger.Info("Generated clicks", slog.Int("created", created))
	return nil
}

func generateIPPool(count int) []string {
	if count < 10 {
		count = 10
	}
	ipPool := make(map[string]bool)
	var ips []string
	for len(ips) < count {
		ip := fmt.Sprintf("%d.%d.%d.%d", rand.IntN(255)+1, rand.IntN(256), rand.IntN(256), rand.IntN(256))
		if !ipPool[ip] {
			ipPool[ip] = true
			ips = append(ips, ip)
		}
	}
	return ips
}

// getUserAgents returns a list of common user agent strings
func getUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.1 Safari/605.1.15",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 16_1_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.1 Mobile/15E148 Safari/605.1",
		"Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Mobile Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36",
		"Mozilla/5.0 (iPad; CPU OS 16_1_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.1 Mobile/15E148 Safari/605.1",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36 Edg/108.0.1462.46",
		"curl/7.81.0",
	}
}

// getReferrers returns a list of common referrer URLs
func getReferrers() []string {
	return []string{
		"", // Direct visit
		"https://google.com",
		"https://news.ycombinator.com",
		"https://duckduckgo.com",
		"https://facebook.com",
		"https://twitter.com",
		"https://linkedin.com",
		"https://github.com",
		"https://some-newsletter.com/issue-42",
		"android-app://com.google.android.gm",
	}
}

// randomUTM attaches campaign attribution to a minority of clicks.
func randomUTM() clicks.UTMParams {
	if rand.IntN(10) < 7 {
		return clicks.UTMParams{}
	}

	sources := []string{"google", "facebook", "newsletter", "twitter", "linkedin"}
	mediums := []string{"cpc", "social", "email", "referral"}
	campaigns := []string{"spring_sale", "product_launch", "dev_outreach", "q4_promo"}

	return clicks.UTMParams{
		Source:   sources[rand.IntN(len(sources))],
		Medium:   mediums[rand.IntN(len(mediums))],
		Campaign: campaigns[rand.IntN(len(campaigns))],
	}
}
