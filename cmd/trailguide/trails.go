package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/trailaccess/trailguide/internal/services"
)

var likeCmd = &cobra.Command{
	Use:   "like <trail-id>",
	Short: "Toggle the signed-in user's like on a trail",
	Long: `Like flips TRAILGUIDE_SESSION_USER_ID's like on the trail. The catalog is
loaded first so the local like counter can be reported.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if _, err := container.Session.Cache().GetCatalog(ctx); err != nil {
			logger.Warn("catalog unavailable; like counter will not be reported", zap.Error(err))
		}
		outcome, err := container.Session.ToggleLike(ctx, args[0])
		var likeErr *services.LikeError
		if errors.As(err, &likeErr) {
			return fmt.Errorf("%w (nothing was changed, try again)", err)
		}
		if err != nil {
			return err
		}
		out := map[string]any{
			"trailId": outcome.TrailID,
			"state":   outcome.State,
			"liked":   outcome.Liked,
		}
		if outcome.Cached {
			out["likes"] = outcome.Likes
		}
		return printJSON(cmd, out)
	},
}

var viewCmd = &cobra.Command{
	Use:   "view <trail-id>",
	Short: "Count a view of a trail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Close waits for the background increment before the process exits.
		return container.Session.RecordView(cmd.Context(), args[0])
	},
}

var guideCmd = &cobra.Command{
	Use:   "guide <trail-id>",
	Short: "Print the sanitised HTML guide of a trail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := container.Session.Guide(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), content.HTML)
		return nil
	},
}

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "List the signed-in user's trails, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		summary, err := container.Session.MyTrails(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]any{
			"userId":        summary.Stats.UserID,
			"trails":        buildTrailViews(summary.Trails),
			"trailCount":    summary.Stats.TrailCount,
			"publicCount":   summary.Stats.PublicCount,
			"totalDistance": summary.Stats.TotalDistance,
			"likesReceived": summary.Stats.LikesReceived,
			"viewsReceived": summary.Stats.ViewsReceived,
			"source":        summary.Stats.Source,
			"warning":       summary.Stats.Warning,
		})
	},
}
