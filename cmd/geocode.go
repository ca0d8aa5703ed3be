package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/baza-crm/widget-cli/pkg/geocode"
	"github.com/baza-crm/widget-cli/pkg/notion"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Batch geocoding against the persistent cache",
}

var (
	geocodeForce       bool
	geocodeMaxRequests int
)

var geocodeBatchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Geocode addresses from a file, one per line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addresses, err := readAddressFile(args[0])
		if err != nil {
			return err
		}
		if len(addresses) == 0 {
			fmt.Println("no addresses to geocode")
			return nil
		}

		_, batcher, err := buildBatcher(geocodeForce, geocodeMaxRequests)
		if err != nil {
			return err
		}

		results := batcher.Geocode(cmd.Context(), addresses)

		resolved := 0
		for _, addr := range addresses {
			coords := results[addr]
			if coords == nil {
				fmt.Printf("%s\t-\n", addr)
				continue
			}
			resolved++
			fmt.Printf("%s\t%.7f,%.7f\n", addr, coords.Lat, coords.Lng)
		}
		zap.L().Info("batch geocoding done",
			zap.Int("addresses", len(addresses)),
			zap.Int("resolved", resolved),
		)
		return nil
	},
}

var geocodePrewarmCmd = &cobra.Command{
	Use:   "prewarm",
	Short: "Geocode every client-base address into the cache",
	Long:  "Pulls all records from the Notion client base and resolves their addresses so later widget generation runs entirely from cache.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("geocode"); err != nil {
			return err
		}

		cache, batcher, err := buildBatcher(geocodeForce, geocodeMaxRequests)
		if err != nil {
			return err
		}

		client := notion.NewClient(cfg.Notion.Token, notion.WithRateLimit(cfg.Notion.RPS))
		pages, err := notion.QueryClientBase(cmd.Context(), client, cfg.Notion.ClientDB)
		if err != nil {
			return err
		}

		resolver := geocode.NewRecordResolver(cache, batcher)
		var refs []geocode.RecordRef
		for _, rec := range notion.ExtractRecords(pages) {
			if rec.Address == "" || rec.Lat != nil {
				continue
			}
			refs = append(refs, geocode.RecordRef{
				ID:       rec.ID,
				EditedAt: rec.EditedAt,
				Address:  rec.Address,
			})
		}

		results := resolver.ResolveRecords(cmd.Context(), refs)
		resolved := 0
		for _, coords := range results {
			if coords != nil {
				resolved++
			}
		}

		fmt.Printf("prewarmed %d of %d records (%d cache entries)\n",
			resolved, len(refs), cache.Len())
		return nil
	},
}

func readAddressFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open address file %s", path)
	}
	defer f.Close() //nolint:errcheck

	var addresses []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			addresses = append(addresses, line)
		}
	}
	return addresses, eris.Wrap(scanner.Err(), "read address file")
}

func init() {
	geocodeCmd.PersistentFlags().BoolVar(&geocodeForce, "force", false, "re-resolve cached addresses, including negatives")
	geocodeCmd.PersistentFlags().IntVar(&geocodeMaxRequests, "max-requests", 0, "cap on new lookups this run (0 = config default)")
	geocodeCmd.AddCommand(geocodeBatchCmd)
	geocodeCmd.AddCommand(geocodePrewarmCmd)
	rootCmd.AddCommand(geocodeCmd)
}
