// Command watcher is the desktop bridge agent. It watches a single
// CSV/XLSX file and posts its rows to the sheetsync ingest API whenever
// the file changes.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"sheetsync-bridge/tabular"
	"sheetsync-bridge/watcher"
)

// Set at build time via ldflags.
var (
	version = "dev"
	commit  = "none"
)

// watchFlags holds the flag values for the watch command.
type watchFlags struct {
	file          string
	apiURL        string
	secret        string
	spreadsheetID string
	sheetName     string
	debounce      time.Duration
	interval      time.Duration
	checks        int
}

func newRootCommand() *cobra.Command {
	flags := &watchFlags{}

	cmd := &cobra.Command{
		Use:   "watcher --file <path>",
		Short: "Watch a spreadsheet file and sync its rows to the bridge API",
		Long: `watcher follows one CSV or XLSX file on disk. Every time the file is
saved it waits for the write to settle, reads the rows through a temporary
copy (so Excel's file locks don't matter), and posts each row to the
bridge's /ingest/rows endpoint. The server deduplicates by row content, so
repeated saves only sync what actually changed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(flags)
		},
	}

	cmd.Flags().StringVarP(&flags.file, "file", "f", "", "CSV/XLSX file to watch (required)")
	cmd.Flags().StringVar(&flags.apiURL, "api-url", "", "ingest endpoint URL (default $API_URL or http://127.0.0.1:8000/ingest/rows)")
	cmd.Flags().StringVar(&flags.secret, "secret", "", "bridge secret (default $BRIDGE_SECRET)")
	cmd.Flags().StringVar(&flags.spreadsheetID, "spreadsheet-id", "excel-desktop", "spreadsheet id recorded in the audit log")
	cmd.Flags().StringVar(&flags.sheetName, "sheet", "Sheet1", "sheet name recorded in the audit log")
	cmd.Flags().DurationVar(&flags.debounce, "debounce", time.Second, "ignore change bursts within this window")
	cmd.Flags().DurationVar(&flags.interval, "interval", 300*time.Millisecond, "pause between file-size stability checks")
	cmd.Flags().IntVar(&flags.checks, "checks", 3, "consecutive stable size reads before the file counts as saved")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runWatch(flags *watchFlags) error {
	// Same .env convention as the API: flags win, then environment.
	_ = godotenv.Load()

	apiURL := flags.apiURL
	if apiURL == "" {
		apiURL = getenvDefault("API_URL", "http://127.0.0.1:8000/ingest/rows")
	}
	secret := flags.secret
	if secret == "" {
		secret = getenvDefault("BRIDGE_SECRET", "change-me")
	}

	sender := &watcher.Sender{
		APIURL:        apiURL,
		Secret:        secret,
		SpreadsheetID: flags.spreadsheetID,
		SheetName:     flags.sheetName,
	}

	w, err := watcher.New(watcher.Options{
		File:           flags.file,
		Debounce:       flags.debounce,
		StableChecks:   flags.checks,
		StableInterval: flags.interval,
	}, func(ctx context.Context, table *tabular.Table) {
		if err := sender.SendTable(ctx, table); err != nil {
			log.Printf("send failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	log.Printf("API_URL       : %s", apiURL)
	if secret != "" && secret != "change-me" {
		log.Printf("BRIDGE_SECRET : *** set ***")
	} else {
		log.Printf("BRIDGE_SECRET : NOT SET")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
