package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dvloznov/agency-ledger/internal/app"
	"github.com/dvloznov/agency-ledger/internal/config"
	"github.com/dvloznov/agency-ledger/internal/documents"
	"github.com/dvloznov/agency-ledger/internal/logger"
	"github.com/rs/zerolog"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "import-excel":
		runImportExcel(cfg, log)
	case "parse-statement":
		runParseStatement(cfg, log)
	case "export-backup":
		runExportBackup(cfg, log)
	case "import-backup":
		runImportBackup(cfg, log)
	case "sync-zoho":
		runSyncZoho(cfg, log)
	case "sync-notion":
		runSyncNotion(cfg, log)
	case "export-warehouse":
		runExportWarehouse(cfg, log)
	case "report":
		runReport(cfg, log)
	case "reset":
		runReset(cfg, log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Agency Ledger CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  import-excel       Import transactions from an .xlsx workbook")
	fmt.Println("  parse-statement    Parse a bank statement into the bank feed")
	fmt.Println("  export-backup      Write a full JSON backup")
	fmt.Println("  import-backup      Restore collections from a JSON backup")
	fmt.Println("  sync-zoho          Pull invoices and contacts from Zoho Books")
	fmt.Println("  sync-notion        Push CRM contacts to Notion")
	fmt.Println("  export-warehouse   Export a ledger snapshot to BigQuery")
	fmt.Println("  report             Print the dashboard, annual or VAT report")
	fmt.Println("  reset              Delete all data")
	fmt.Println("  help               Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// open builds the application with a logger-scoped context.
func open(cfg *config.Config, log zerolog.Logger, timeout time.Duration) (context.Context, context.CancelFunc, *app.App) {
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = logger.WithContext(ctx, log)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		cancel()
		log.Fatal().Err(err).Msg("Failed to initialise application")
	}
	return ctx, cancel, a
}

func closeApp(ctx context.Context, log zerolog.Logger, a *app.App) {
	if err := a.Close(ctx); err != nil {
		log.Error().Err(err).Msg("Error closing application")
	}
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode output: %v\n", err)
		os.Exit(1)
	}
}

func runImportExcel(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("import-excel", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to the .xlsx workbook")
	fs.Parse(os.Args[2:])

	if *filePath == "" {
		log.Fatal().Msg("Error: --file is required")
	}

	f, err := os.Open(*filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open workbook")
	}
	defer f.Close()

	ctx, cancel, a := open(cfg, log, 5*time.Minute)
	defer cancel()
	defer closeApp(ctx, log, a)

	log.Info().Str("file", *filePath).Msg("Importing workbook")

	res, err := a.Books.ImportExcel(ctx, f)
	if err != nil {
		log.Fatal().Err(err).Msg("Import failed")
	}

	printJSON(res)
}

func runParseStatement(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("parse-statement", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to the statement (PDF, image or CSV)")
	fs.Parse(os.Args[2:])

	if *filePath == "" {
		log.Fatal().Msg("Error: --file is required")
	}

	f, err := os.Open(*filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open statement")
	}
	defer f.Close()

	ctx, cancel, a := open(cfg, log, 5*time.Minute)
	defer cancel()
	defer closeApp(ctx, log, a)

	name := filepath.Base(*filePath)
	mimeType := documents.DetectMIME(name, "application/pdf")

	doc, err := a.Documents.Save(ctx, name, mimeType, f)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to store statement")
	}

	log.Info().Str("uri", doc.URI).Str("mime_type", mimeType).Msg("Parsing statement")

	state, err := a.ImportStatement(ctx, doc.URI, mimeType)
	if err != nil {
		log.Fatal().Err(err).Msg("Statement import failed")
	}

	for _, w := range state.Warnings() {
		log.Warn().Str("warning", w).Msg("Parser warning")
	}
	fmt.Printf("Imported %d bank lines from %s.\n", state.Imported, name)
}

func runExportBackup(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("export-backup", flag.ExitOnError)
	outPath := fs.String("out", "", "Output file (defaults to agency-ledger-backup-DATE.json)")
	fs.Parse(os.Args[2:])

	if *outPath == "" {
		*outPath = fmt.Sprintf("agency-ledger-backup-%s.json", time.Now().Format("2006-01-02"))
	}

	ctx, cancel, a := open(cfg, log, time.Minute)
	defer cancel()
	defer closeApp(ctx, log, a)

	b, err := a.Books.ExportBackup(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Backup export failed")
	}

	f, err := os.Create(*outPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create backup file")
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		log.Fatal().Err(err).Msg("Failed to write backup")
	}

	fmt.Printf("Backup written to %s\n", *outPath)
}

func runImportBackup(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("import-backup", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to the backup JSON")
	fs.Parse(os.Args[2:])

	if *filePath == "" {
		log.Fatal().Msg("Error: --file is required")
	}

	f, err := os.Open(*filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open backup")
	}
	defer f.Close()

	ctx, cancel, a := open(cfg, log, time.Minute)
	defer cancel()
	defer closeApp(ctx, log, a)

	res, err := a.Books.ImportBackup(ctx, f)
	if err != nil {
		log.Fatal().Err(err).Msg("Backup import failed")
	}

	fmt.Printf("Restored: %v\n", res.Restored)
}

func runSyncZoho(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("sync-zoho", flag.ExitOnError)
	fs.Parse(os.Args[2:])

	ctx, cancel, a := open(cfg, log, 10*time.Minute)
	defer cancel()
	defer closeApp(ctx, log, a)

	res, err := a.Books.SyncZoho(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Zoho sync failed")
	}

	printJSON(res)
}

func runSyncNotion(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("sync-notion", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "Report what would change without writing to Notion")
	fs.Parse(os.Args[2:])

	ctx, cancel, a := open(cfg, log, 10*time.Minute)
	defer cancel()
	defer closeApp(ctx, log, a)

	if *dryRun {
		log.Info().Msg("Running in dry-run mode")
	}

	res, err := a.Books.SyncNotion(ctx, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Notion sync failed")
	}

	printJSON(res)
}

func runExportWarehouse(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("export-warehouse", flag.ExitOnError)
	fs.Parse(os.Args[2:])

	ctx, cancel, a := open(cfg, log, 10*time.Minute)
	defer cancel()
	defer closeApp(ctx, log, a)

	summary, err := a.Books.ExportWarehouse(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Warehouse export failed")
	}

	printJSON(summary)
}

func runReport(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	kind := fs.String("kind", "dashboard", "Report kind: dashboard, annual or vat")
	year := fs.Int("year", 0, "Year for the VAT report (0 for all years)")
	fs.Parse(os.Args[2:])

	ctx, cancel, a := open(cfg, log, time.Minute)
	defer cancel()
	defer closeApp(ctx, log, a)

	var (
		out interface{}
		err error
	)
	switch *kind {
	case "dashboard":
		out, err = a.Books.Dashboard(ctx)
	case "annual":
		out, err = a.Books.AnnualReport(ctx)
	case "vat":
		out, err = a.Books.VATReport(ctx, *year)
	default:
		log.Fatal().Str("kind", *kind).Msg("Unknown report kind")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Report failed")
	}

	printJSON(out)
}

func runReset(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	phrase := fs.String("phrase", "", "Confirmation phrase")
	fs.Parse(os.Args[2:])

	ctx, cancel, a := open(cfg, log, time.Minute)
	defer cancel()
	defer closeApp(ctx, log, a)

	if err := a.Books.Reset(ctx, *phrase); err != nil {
		log.Fatal().Err(err).Msg("Reset failed")
	}

	fmt.Println("All data deleted.")
}
