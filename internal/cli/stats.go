package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ppiankov/onionpan/internal/config"
	"github.com/ppiankov/onionpan/internal/discovery"
	"github.com/spf13/cobra"
)

var (
	statsFormat string
	statsTop    int
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the discovery log",
	RunE:  statsAction,
}

func init() {
	statsCmd.Flags().StringVar(&statsFormat, "format", "terminal", "output format: terminal, json")
	statsCmd.Flags().IntVar(&statsTop, "top", 10, "number of repeated URLs to list")
	rootCmd.AddCommand(statsCmd)
}

func statsAction(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	records, err := discovery.ReadLogFile(cfg.Output.Path)
	if err != nil {
		return fmt.Errorf("read %s: %w", cfg.Output.Path, err)
	}

	summary := discovery.Summarize(records, statsTop)

	switch statsFormat {
	case "json":
		return printStatsJSON(os.Stdout, summary)
	case "terminal", "":
		if summary.Records == 0 {
			fmt.Fprintln(os.Stdout, "No links recorded yet. Run 'onionpan run' first.")
			return nil
		}
		printStats(os.Stdout, cfg.Output.Path, summary)
		return nil
	default:
		return fmt.Errorf("unknown format %q (want terminal or json)", statsFormat)
	}
}

type jsonStatsOutput struct {
	Records    int            `json:"records"`
	UniqueURLs int            `json:"unique_urls"`
	ByStatus   map[string]int `json:"by_status"`
	BySource   map[string]int `json:"by_source"`
	First      string         `json:"first,omitempty"`
	Last       string         `json:"last,omitempty"`
	Repeated   []jsonURLCount `json:"repeated"`
}

type jsonURLCount struct {
	URL   string `json:"url"`
	Count int    `json:"count"`
}

func printStatsJSON(w io.Writer, s discovery.Summary) error {
	out := jsonStatsOutput{
		Records:    s.Records,
		UniqueURLs: s.UniqueURLs,
		ByStatus:   s.ByStatus,
		BySource:   s.BySource,
		First:      formatStatsTime(s.First),
		Last:       formatStatsTime(s.Last),
		Repeated:   make([]jsonURLCount, 0, len(s.TopURLs)),
	}
	for _, u := range s.TopURLs {
		out.Repeated = append(out.Repeated, jsonURLCount{URL: u.URL, Count: u.Count})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printStats(w io.Writer, path string, s discovery.Summary) {
	fmt.Fprintf(w, "onionpan stats: %s, %s records, %s unique links\n\n",
		path, humanize.Comma(int64(s.Records)), humanize.Comma(int64(s.UniqueURLs)))

	if !s.First.IsZero() {
		fmt.Fprintf(w, "  First: %s (%s)\n", formatStatsTime(s.First), humanize.Time(s.First))
		fmt.Fprintf(w, "  Last:  %s (%s)\n\n", formatStatsTime(s.Last), humanize.Time(s.Last))
	}

	fmt.Fprintln(w, "--- By Status ---")
	fmt.Fprintln(w)
	for _, k := range sortedKeys(s.ByStatus) {
		fmt.Fprintf(w, "  %-10s %5d  (%.1f%%)\n", k, s.ByStatus[k], pct(s.ByStatus[k], s.Records))
	}
	fmt.Fprintln(w)

	if len(s.TopURLs) > 0 {
		fmt.Fprintln(w, "--- Repeated Links ---")
		fmt.Fprintln(w)
		for _, u := range s.TopURLs {
			fmt.Fprintf(w, "  %4d  %s\n", u.Count, u.URL)
		}
		fmt.Fprintln(w)
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func formatStatsTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(discovery.TimeLayout)
}
