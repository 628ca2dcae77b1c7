// linkctl - Operator tool for linktally
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/term"

	"linktally/internal/analytics"
	"linktally/internal/clicks"
	"linktally/internal/config"
	"linktally/internal/database"
	"linktally/internal/logging"
	"linktally/internal/seeder"
	"linktally/internal/timeframe"
)

var currentVersion string = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "reset":
		if err := runReset(); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	case "validate":
		if err := runValidate(os.Args[2:]); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	case "seed":
		if err := runSeed(os.Args[2:]); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	case "version", "--version", "-v":
		fmt.Println(currentVersion)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("linkctl - operator tool for linktally")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  linkctl reset              Wipe all click events and zero link counters")
	fmt.Println("  linkctl validate [days]    Cross-check analytics consistency (default 30 days)")
	fmt.Println("  linkctl seed [clicks]      Seed demo links and click traffic (default 2000 clicks)")
	fmt.Println("  linkctl version            Print version")
	fmt.Println("  linkctl help               Show this help")
}

// openDB connects to the configured SQLite database.
func openDB() (*database.DBManager, error) {
	cfg := config.GetConfig()
	logger := logging.NewCLILogger(cfg)
	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return dbManager, nil
}

// runReset wipes the event store after an explicit typed confirmation. Only
// an interactive terminal may confirm; piping "RESET" in is not accepted.
func runReset() error {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return fmt.Errorf("reset requires an interactive terminal")
	}

	fmt.Println("This permanently deletes ALL click events and zeroes every link's counters.")
	fmt.Print("Type RESET to confirm: ")

	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	if strings.TrimSpace(answer) != "RESET" {
		fmt.Println("Aborted.")
		return nil
	}

	dbManager, err := openDB()
	if err != nil {
		return err
	}

	logger := logging.NewCLILogger(config.GetConfig())
	result, err := clicks.ResetAllStats(logger, dbManager.GetConnection())
	if err != nil {
		return err
	}

	fmt.Printf("Done. Event store cleared: %v, links reset: %d\n",
		result.ClearedEventStore, result.LinksReset)
	return nil
}

// runValidate prints the consistency report and exits non-zero on FAILED.
func runValidate(args []string) error {
	days := timeframe.DefaultWindowDays
	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil || parsed < 1 {
			return fmt.Errorf("invalid day count %q", args[0])
		}
		days = parsed
	}

	window, err := timeframe.NewWindow(timeframe.WindowParams{Days: days})
	if err != nil {
		return err
	}

	dbManager, err := openDB()
	if err != nil {
		return err
	}

	report, err := analytics.ValidateData(dbManager.GetConnection(), window)
	if err != nil {
		return err
	}

	printReport(report)

	if report.OverallStatus == analytics.StatusFailed {
		os.Exit(1)
	}
	return nil
}

// runSeed fills the database with demo links and clicks. Refused outside
// development.
func runSeed(args []string) error {
	cfg := config.GetConfig()
	if cfg.IsProduction() {
		return fmt.Errorf("seeding is not allowed in production")
	}

	count := 2000
	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil || parsed < 1 {
			return fmt.Errorf("invalid click count %q", args[0])
		}
		count = parsed
	}

	dbManager, err := openDB()
	if err != nil {
		return err
	}
	if err := dbManager.MigrateDatabase(); err != nil {
		return err
	}

	logger := logging.NewCLILogger(cfg)
	s := seeder.NewSeeder(dbManager, logger, count, timeframe.DefaultWindowDays)
	return s.Run(context.Background())
}

func printReport(report *analytics.ValidationReport) {
	fmt.Printf("Validation run: %s\n", report.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("Window:         %s\n", report.Window)
	fmt.Printf("Overall:        %s\n\n", report.OverallStatus)

	panels := make([]string, 0, len(report.Panels))
	for name := range report.Panels {
		panels = append(panels, name)
	}
	sort.Strings(panels)

	for _, name := range panels {
		fmt.Printf("[%s]\n", name)
		for _, check := range report.Panels[name] {
			fmt.Printf("  %-7s %s: %s\n", check.Status, check.Name, check.Message)
		}
	}

	if len(report.CrossChecks) > 0 {
		fmt.Println("[cross checks]")
		for _, check := range report.CrossChecks {
			fmt.Printf("  %-7s %s: %s\n", check.Status, check.Name, check.Message)
		}
	}

	if len(report.IssuesFound) > 0 {
		fmt.Printf("\nIssues found: %d\n", len(report.IssuesFound))
	}
	if len(report.Warnings) > 0 {
		fmt.Printf("Warnings: %d\n", len(report.Warnings))
	}
}
