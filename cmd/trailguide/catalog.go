package main

import (
	"fmt"

	"github.com/spf13/cobra"

	domain "github.com/trailaccess/trailguide/internal/domain"
	"github.com/trailaccess/trailguide/internal/services"
)

// Browse flag values.
var (
	flagQuery    string
	flagTier     string
	flagDistance string
	flagSurface  string
	flagPhotos   bool
	flagSort     string
	flagPages    int
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print public catalog statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		stats, err := container.Session.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("load stats: %w", err)
		}
		tiers := make(map[string]int, len(stats.TierCounts))
		for tier, n := range stats.TierCounts {
			tiers[string(tier)] = n
		}
		return printJSON(cmd, map[string]any{
			"totalTrails":   stats.TotalTrails,
			"totalDistance": stats.TotalDistance,
			"tiers":         tiers,
			"contributors":  stats.Contributors,
			"totalLikes":    stats.TotalLikes,
			"totalViews":    stats.TotalViews,
			"totalPhotos":   stats.TotalPhotos,
			"source":        stats.Source,
			"warning":       stats.Warning,
		})
	},
}

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Filter, sort and page through the public catalog",
	Long: `Browse applies the filter and sort flags to the public catalog and prints the
first --pages batches of the result.

Example:
  trailguide browse --tier partial --distance medium --sort distance_asc
  trailguide browse -q lake --photos --pages 3`,
	Args: cobra.NoArgs,
	RunE: runBrowse,
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Drop the cached catalog and load it again",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		page, err := container.Session.Refresh(cmd.Context())
		if err != nil {
			return fmt.Errorf("refresh catalog: %w", err)
		}
		return printJSON(cmd, buildPageView([]services.BrowsePage{page}))
	},
}

func init() {
	flags := browseCmd.Flags()
	flags.StringVarP(&flagQuery, "query", "q", "", "search route name, description, location and author")
	flags.StringVar(&flagTier, "tier", "", "accessibility tier: fully, partial or not")
	flags.StringVar(&flagDistance, "distance", "any", "distance range: any, short, medium, long or extended")
	flags.StringVar(&flagSurface, "surface", "", "surface: paved, packed_gravel, dirt, boardwalk or mixed")
	flags.BoolVar(&flagPhotos, "photos", false, "only trails with photos")
	flags.StringVar(&flagSort, "sort", "date_desc", "sort as <date|distance|name>_<asc|desc>")
	flags.IntVar(&flagPages, "pages", 1, "number of batches to reveal")
}

func runBrowse(cmd *cobra.Command, _ []string) error {
	filter, err := services.ParseFilter(services.FilterInput{
		Query:     flagQuery,
		Tier:      flagTier,
		Distance:  flagDistance,
		Surface:   flagSurface,
		HasPhotos: flagPhotos,
	})
	if err != nil {
		return err
	}
	sort, err := services.ParseSort(flagSort)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	page, err := container.Session.Browse(ctx, filter, sort)
	if err != nil {
		return fmt.Errorf("browse catalog: %w", err)
	}
	pages := []services.BrowsePage{page}
	for i := 1; i < flagPages && page.Displayed < page.Total; i++ {
		page, err = container.Session.Next(ctx)
		if err != nil {
			return fmt.Errorf("next batch: %w", err)
		}
		pages = append(pages, page)
	}
	return printJSON(cmd, buildPageView(pages))
}

type trailView struct {
	ID       string   `json:"id"`
	Name     string   `json:"routeName"`
	Location string   `json:"location,omitempty"`
	Tier     string   `json:"tier"`
	Surface  string   `json:"surface,omitempty"`
	Distance *float64 `json:"totalDistance,omitempty"`
	Photos   int      `json:"photoCount"`
	Likes    int64    `json:"likes"`
	Views    int64    `json:"views"`
	Author   string   `json:"userEmail,omitempty"`
}

type pageView struct {
	Trails    []trailView `json:"trails"`
	Displayed int         `json:"displayed"`
	Total     int         `json:"total"`
	Sort      string      `json:"sort"`
	Source    string      `json:"source"`
	Warning   bool        `json:"warning,omitempty"`
}

func buildTrailViews(records []domain.TrailGuide) []trailView {
	out := make([]trailView, 0, len(records))
	for _, r := range records {
		out = append(out, trailView{
			ID:       r.ID,
			Name:     r.RouteName,
			Location: r.Accessibility.Location,
			Tier:     string(services.ClassifyTier(r.Accessibility.WheelchairAccess)),
			Surface:  string(services.ClassifySurface(r.Accessibility.TrailSurface)),
			Distance: r.Metadata.TotalDistance,
			Photos:   r.Metadata.PhotoCount,
			Likes:    r.Community.Likes,
			Views:    r.Community.Views,
			Author:   r.UserEmail,
		})
	}
	return out
}

// buildPageView merges consecutive batches into the list a reader would see on screen.
func buildPageView(pages []services.BrowsePage) pageView {
	var view pageView
	for _, page := range pages {
		if page.IsFirst {
			view.Trails = nil
		}
		view.Trails = append(view.Trails, buildTrailViews(page.Items)...)
		view.Displayed = page.Displayed
		view.Total = page.Total
		view.Sort = services.FormatSort(page.Sort)
		view.Source = string(page.Source)
		view.Warning = page.Warning
	}
	if view.Trails == nil {
		view.Trails = []trailView{}
	}
	return view
}
