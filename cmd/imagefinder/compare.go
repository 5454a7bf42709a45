package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Kelony11/image-finder/internal/config"
	"github.com/Kelony11/image-finder/internal/crawler"
	"github.com/Kelony11/image-finder/internal/database"
	"github.com/Kelony11/image-finder/internal/model"
	"github.com/Kelony11/image-finder/internal/report"
)

// sinceLayout is the date format accepted by --since.
const sinceLayout = "2006-01-02"

// compareOptions holds the parsed flags of the compare command.
type compareOptions struct {
	seed      string
	list      bool
	listSeeds bool
	withID    int64
	since     string
	image     string
	json      bool
	markdown  bool
}

// NewCompareCmd creates the compare command.
// This command compares harvests with historical data stored in the database.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [seed-url]",
		Short: "Compare harvests with historical data",
		Long: `Compare displays differences between the latest and a previous harvest of a seed.

This command retrieves stored harvests from the database and shows:
- Images that appeared since the previous harvest
- Images that are no longer referenced
- Changes in pages visited and pages failed

The comparison requires at least two harvests of the seed in the database.
Use 'imagefinder crawl' to harvest a site and save the result.

Examples:
  # Compare the latest two harvests of a seed
  imagefinder compare https://example.com/

  # List the harvest history of a seed
  imagefinder compare --list https://example.com/

  # Compare with a specific harvest by ID
  imagefinder compare --with-id 5 https://example.com/

  # Compare with the first harvest since a date
  imagefinder compare --since 2025-01-01 https://example.com/

  # Output the comparison in JSON format
  imagefinder compare --json https://example.com/

  # List every seed in the database
  imagefinder compare --list-seeds

  # Find the harvests that contain an image
  imagefinder compare --image https://example.com/logo.png`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List the harvest history of the specified seed")
	cmd.Flags().BoolP("list-seeds", "L", false,
		"List every seed stored in the database")
	cmd.Flags().String("image", "",
		"List the harvests whose image set contains this URL")

	// Comparison target flags
	cmd.Flags().Int64P("with-id", "i", 0,
		"Compare with a specific harvest by ID (use --list to see available IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first harvest on or after this date (format: YYYY-MM-DD)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	opts, err := parseCompareOptions(cmd, args)
	if err != nil {
		return err
	}

	// Comparing never creates a database; there is nothing to compare in an
	// empty one.
	db, err := database.Open(config.XDGDataDir(), database.Options{EnableWAL: true})
	if err != nil {
		if errors.Is(err, database.ErrDatabaseNotFound) {
			return errors.New("no harvests stored yet (use 'imagefinder crawl' to harvest a site)")
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return runCompare(cmd.Context(), cmd.OutOrStdout(), db, opts)
}

// parseCompareOptions reads and validates the compare flags. Validation
// happens before the database is opened.
func parseCompareOptions(cmd *cobra.Command, args []string) (compareOptions, error) {
	var opts compareOptions
	var err error

	flags := cmd.Flags()
	if opts.list, err = flags.GetBool("list"); err != nil {
		return opts, err
	}
	if opts.listSeeds, err = flags.GetBool("list-seeds"); err != nil {
		return opts, err
	}
	if opts.image, err = flags.GetString("image"); err != nil {
		return opts, err
	}
	if opts.withID, err = flags.GetInt64("with-id"); err != nil {
		return opts, err
	}
	if opts.since, err = flags.GetString("since"); err != nil {
		return opts, err
	}
	if opts.json, err = flags.GetBool("json"); err != nil {
		return opts, err
	}
	if opts.markdown, err = flags.GetBool("markdown"); err != nil {
		return opts, err
	}

	if opts.json && opts.markdown {
		return opts, config.ErrConflictingReportFormats
	}
	if opts.withID != 0 && opts.since != "" {
		return opts, errors.New("--with-id and --since cannot be used together")
	}

	if opts.listSeeds || opts.image != "" {
		return opts, nil
	}

	if len(args) == 0 {
		return opts, errors.New("seed URL is required (use --list-seeds to see stored seeds)")
	}
	n, err := crawler.Normalize(args[0])
	if err != nil {
		return opts, fmt.Errorf("invalid seed URL: %w", err)
	}
	opts.seed = n.String()

	return opts, nil
}

// runCompare dispatches to the listing or comparison selected by opts.
func runCompare(ctx context.Context, w io.Writer, db *database.HarvestDB, opts compareOptions) error {
	switch {
	case opts.listSeeds:
		return listSeeds(ctx, w, db)
	case opts.image != "":
		return listHarvestsWithImage(ctx, w, db, opts.image)
	case opts.list:
		return listHarvestHistory(ctx, w, db, opts.seed)
	default:
		return runComparison(ctx, w, db, opts)
	}
}

// listSeeds lists every seed that has harvests in the database.
func listSeeds(ctx context.Context, w io.Writer, db *database.HarvestDB) error {
	seeds, err := db.ListSeeds(ctx)
	if err != nil {
		return fmt.Errorf("failed to list seeds: %w", err)
	}

	if len(seeds) == 0 {
		fmt.Fprintln(w, "No harvested seeds found in the database.")
		fmt.Fprintln(w, "\nUse 'imagefinder crawl <seed-url>' to harvest a site.")
		return nil
	}

	fmt.Fprintf(w, "Harvested seeds (%d):\n\n", len(seeds))
	for _, seed := range seeds {
		fmt.Fprintf(w, "  • %s\n", seed)
	}
	fmt.Fprintln(w, "\nUse 'imagefinder compare --list <seed-url>' to see the harvest history of a seed.")

	return nil
}

// listHarvestHistory lists every stored harvest of seed, newest first.
func listHarvestHistory(ctx context.Context, w io.Writer, db *database.HarvestDB, seed string) error {
	history, err := db.GetHarvestHistoryWithMetadata(ctx, seed)
	if err != nil {
		return fmt.Errorf("failed to get harvest history: %w", err)
	}

	if len(history) == 0 {
		fmt.Fprintf(w, "No harvest history found for %s\n", seed)
		fmt.Fprintln(w, "\nUse 'imagefinder crawl' to harvest this site.")
		return nil
	}

	fmt.Fprintf(w, "Harvest history for %s (%d harvests):\n\n", seed, len(history))
	writeSummaryTable(w, history)

	fmt.Fprintln(w, "\nUse 'imagefinder compare <seed-url>' to compare the latest two harvests.")
	fmt.Fprintln(w, "Use 'imagefinder compare --with-id <id> <seed-url>' to compare with a specific harvest.")

	return nil
}

// listHarvestsWithImage lists the harvests whose image set contains imageURL.
func listHarvestsWithImage(ctx context.Context, w io.Writer, db *database.HarvestDB, imageURL string) error {
	// Stored images are normalized; fall back to the raw value when the
	// argument is not a URL Normalize accepts.
	if n, err := crawler.Normalize(imageURL); err == nil {
		imageURL = n.String()
	}

	found, err := db.FindHarvestsWithImage(ctx, imageURL)
	if err != nil {
		return fmt.Errorf("failed to search harvests: %w", err)
	}

	if len(found) == 0 {
		fmt.Fprintf(w, "No harvest contains %s\n", imageURL)
		return nil
	}

	fmt.Fprintf(w, "Harvests containing %s (%d):\n\n", imageURL, len(found))
	writeSummaryTable(w, found)
	return nil
}

// writeSummaryTable prints one row per harvest summary.
func writeSummaryTable(w io.Writer, summaries []model.HarvestSummary) {
	fmt.Fprintf(w, "  %-6s  %-20s  %6s  %6s  %6s  %s\n", "ID", "Date", "Pages", "Failed", "Images", "Seed")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 72))

	for _, s := range summaries {
		fmt.Fprintf(w, "  %-6d  %-20s  %6d  %6d  %6d  %s\n",
			s.ID,
			s.StartedAt.Local().Format("2006-01-02 15:04:05"),
			s.PagesVisited,
			s.PagesFailed,
			s.ImageCount,
			s.Seed,
		)
	}
}

// runComparison compares the latest harvest of opts.seed with an older one
// and writes the diff in the requested format.
func runComparison(ctx context.Context, w io.Writer, db *database.HarvestDB, opts compareOptions) error {
	history, err := db.GetHarvestHistoryWithMetadata(ctx, opts.seed)
	if err != nil {
		return fmt.Errorf("failed to get harvest history: %w", err)
	}

	if len(history) == 0 {
		return fmt.Errorf("no harvest history found for %s", opts.seed)
	}

	// History is newest first; the latest harvest is always the current one.
	current := history[0]

	previous, err := selectPrevious(history, opts)
	if err != nil {
		return err
	}

	currentHarvest, err := loadHarvest(ctx, db, current.ID)
	if err != nil {
		return err
	}
	previousHarvest, err := loadHarvest(ctx, db, previous.ID)
	if err != nil {
		return err
	}

	diff := report.NewDiff(previousHarvest, currentHarvest)
	diff.Previous.ID = previous.ID
	diff.Current.ID = current.ID

	switch {
	case opts.json:
		return report.WriteDiffJSON(w, diff)
	case opts.markdown:
		return report.WriteDiffMarkdown(w, diff)
	default:
		return report.WriteDiffText(w, diff)
	}
}

// selectPrevious picks the harvest to compare the latest one with: the one
// named by --with-id, the oldest one since --since, or else the one right
// before the latest.
func selectPrevious(history []model.HarvestSummary, opts compareOptions) (model.HarvestSummary, error) {
	current := history[0]

	switch {
	case opts.withID != 0:
		if opts.withID == current.ID {
			return model.HarvestSummary{}, fmt.Errorf("harvest %d is the latest harvest; choose an older one", opts.withID)
		}
		for _, s := range history {
			if s.ID == opts.withID {
				return s, nil
			}
		}
		return model.HarvestSummary{}, fmt.Errorf("harvest %d not found for %s", opts.withID, opts.seed)

	case opts.since != "":
		since, err := time.ParseInLocation(sinceLayout, opts.since, time.Local)
		if err != nil {
			return model.HarvestSummary{}, fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}
		for i := len(history) - 1; i >= 0; i-- {
			if !history[i].StartedAt.Before(since) {
				if history[i].ID == current.ID {
					return model.HarvestSummary{}, fmt.Errorf("only one harvest found since %s; at least 2 are required for comparison", opts.since)
				}
				return history[i], nil
			}
		}
		return model.HarvestSummary{}, fmt.Errorf("no harvests found since %s", opts.since)

	default:
		if len(history) < 2 {
			return model.HarvestSummary{}, fmt.Errorf("at least 2 harvests are required for comparison (found %d)", len(history))
		}
		return history[1], nil
	}
}

// loadHarvest loads a full harvest by ID.
func loadHarvest(ctx context.Context, db *database.HarvestDB, id int64) (*model.Harvest, error) {
	h, err := db.GetHarvestByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get harvest %d: %w", id, err)
	}
	if h == nil {
		return nil, fmt.Errorf("harvest %d not found", id)
	}
	return h, nil
}
