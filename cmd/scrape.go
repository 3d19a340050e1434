package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/embedscraper/internal/scrape"
)

func newScrapeCmd() *cobra.Command {
	var opts scrape.Options
	cmd := &cobra.Command{
		Use:   "scrape <url>",
		Short: "Prints the embed for a single URL",
		Long: `Runs the full scrape pipeline for one URL and prints the resulting embed
as JSON. With --raw the collected metadata tree is printed instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			res, err := appInstance.Scraper().Scrape(cmd.Context(), args[0], opts)
			if err != nil {
				return fmt.Errorf("scrape %s: %w", args[0], err)
			}
			return printJSON(cmd.OutOrStdout(), res.Payload())
		},
	}
	cmd.Flags().BoolVar(&opts.Raw, "raw", false, "print the raw metadata tree")
	cmd.Flags().BoolVar(&opts.Thumbhash, "thumbhash", false, "look up image thumbhashes")
	cmd.Flags().BoolVar(&opts.Debug, "debug", false, "log collected metadata")
	return cmd
}

func newRedirectsCmd() *cobra.Command {
	var method string
	cmd := &cobra.Command{
		Use:   "redirects <url>",
		Short: "Follows and prints the redirect chain of a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			chain := appInstance.Tracker().Track(cmd.Context(), args[0], method)
			return printJSON(cmd.OutOrStdout(), chain)
		},
	}
	cmd.Flags().StringVar(&method, "method", http.MethodHead, "request method for each hop (GET or HEAD)")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
