package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"example.com/rfidscan/internal/repository"
	"example.com/rfidscan/internal/scanlog"

	"github.com/spf13/cobra"
)

// scannerCmd inspects persisted scanner logs without starting the server
var scannerCmd = &cobra.Command{
	Use:   "scanner",
	Short: "Inspect persisted scanners",
}

var listScannersCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted scanners with their latency statistics",
	Run: func(cmd *cobra.Command, args []string) {
		listScanners()
	},
}

var showScannerCmd = &cobra.Command{
	Use:   "show [account]",
	Short: "Print one persisted scanner as JSON",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		showScanner(scanlog.Account(args[0]))
	},
}

func init() {
	rootCmd.AddCommand(scannerCmd)
	scannerCmd.AddCommand(listScannersCmd)
	scannerCmd.AddCommand(showScannerCmd)
}

func listScanners() {
	repo, closeDB := openRepository()
	defer closeDB()

	snaps, err := repo.ListScanners(context.Background())
	if err != nil {
		log.Fatalf("Failed to list scanners: %v", err)
	}

	fmt.Printf("%-24s %8s %8s %10s %10s %12s\n", "ACCOUNT", "TXNS", "EVENTS", "MEAN", "MAX", "VARIANCE")
	for _, s := range snaps {
		fmt.Printf("%-24s %8d %8d %10.2f %10.2f %12.2f\n",
			s.Account, s.NumTransactions, len(s.Events), s.Stats.Mean, s.Stats.Max, s.Stats.Variance)
	}
}

func showScanner(account scanlog.Account) {
	repo, closeDB := openRepository()
	defer closeDB()

	snap, err := repo.FindScanner(context.Background(), account)
	if errors.Is(err, repository.ErrNotFound) {
		log.Fatalf("Scanner %s not found", account)
	}
	if err != nil {
		log.Fatalf("Failed to load scanner: %v", err)
	}

	out, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode scanner: %v", err)
	}
	fmt.Println(string(out))
}
