package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/heartmarshall/activityfeed/internal/activity/taxonomy"
	"github.com/heartmarshall/activityfeed/internal/app"
	"github.com/heartmarshall/activityfeed/internal/auth"
	"github.com/heartmarshall/activityfeed/internal/domain"
	"github.com/heartmarshall/activityfeed/internal/service/feed"
)

type feedOptions struct {
	tables    string
	limit     int
	more      int
	showLinks bool
	output    string
	userID    string
	email     string
	name      string
}

func newFeedCommand(root *rootOptions) *cobra.Command {
	var o feedOptions

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Render the activity feed as seen by a viewer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if o.userID == "" && o.email == "" {
				return fmt.Errorf("one of --user-id or --email is required")
			}
			if o.output != "text" && o.output != "json" {
				return fmt.Errorf("--output must be text or json")
			}
			sel := taxonomy.All()
			if o.tables != "" {
				var err error
				if sel, err = taxonomy.ParseSelection(o.tables); err != nil {
					return err
				}
			}

			cfg, err := root.load()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			logger := app.NewLoggerTo(cmd.ErrOrStderr(), cfg.Log)

			src, err := app.OpenSource(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer src.Close()

			viewer := domain.Identity{ID: o.userID, Email: o.email, Name: o.name}
			token, err := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL).
				GenerateAccessToken(viewer)
			if err != nil {
				return err
			}

			c := feed.NewController(ctx, logger, src.Logs,
				feed.StaticViewer{Identity: &viewer, Token: token},
				feed.WithPageSize(cfg.Feed.PageSize),
				feed.WithSelection(sel),
			)
			defer c.Close()

			limit := o.limit
			if limit == 0 {
				limit = cfg.Feed.PageSize
			}
			if err := c.Load(ctx, limit, sel, true); err != nil {
				return err
			}
			for i := 0; i < o.more && c.State().HasMore; i++ {
				if err := c.LoadMore(ctx); err != nil {
					return err
				}
			}

			if o.output == "json" {
				return writeFeedJSON(cmd.OutOrStdout(), c.Items(), c.State())
			}
			return writeFeedText(cmd.OutOrStdout(), c.Items(), c.State(), o.showLinks)
		},
	}

	cmd.Flags().StringVar(&o.tables, "tables", "", "Comma-separated tables to show (default all)")
	cmd.Flags().IntVar(&o.limit, "limit", 0, "Records to request (default feed.page_size)")
	cmd.Flags().IntVar(&o.more, "more", 0, "Additional pages to load after the first")
	cmd.Flags().BoolVar(&o.showLinks, "show-links", false, "Print navigation targets under each entry")
	cmd.Flags().StringVarP(&o.output, "output", "o", "text", "Output format: text or json")
	cmd.Flags().StringVar(&o.userID, "user-id", "", "Viewer user id")
	cmd.Flags().StringVar(&o.email, "email", "", "Viewer email")
	cmd.Flags().StringVar(&o.name, "name", "", "Viewer display name")
	return cmd
}

func writeFeedJSON(w io.Writer, items []feed.Item, state feed.State) error {
	if items == nil {
		items = []feed.Item{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Items   []feed.Item `json:"items"`
		HasMore bool        `json:"has_more"`
		Limit   int         `json:"limit"`
	}{items, state.HasMore, state.Limit})
}

func writeFeedText(w io.Writer, items []feed.Item, state feed.State, showLinks bool) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No activity yet.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\n",
			it.Timestamp.Local().Format(time.DateTime), it.ActorDisplay, it.Description.Sentence.String())
		for _, ch := range it.Description.Changes {
			fmt.Fprintf(tw, "\t\t  %s: %s -> %s\n", ch.Field, ch.OldValue, ch.NewValue)
		}
		if conn := it.Description.Connection.String(); conn != "" {
			fmt.Fprintf(tw, "\t\t  %s\n", conn)
		}
		if it.ExtraDetail != "" {
			fmt.Fprintf(tw, "\t\t  %q\n", it.ExtraDetail)
		}
		if showLinks {
			for _, l := range append(it.Description.Sentence.Links(), it.Description.Connection.Links()...) {
				fmt.Fprintf(tw, "\t\t  -> %s %s (%s)\n", l.Kind, l.Path, l.Label)
			}
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if state.HasMore {
		_, err := fmt.Fprintf(w, "\n%d shown, more available (use --more)\n", len(items))
		return err
	}
	return nil
}

func newGroupsCommand() *cobra.Command {
	var tables string

	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Show filter groups and their state for a table selection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sel := taxonomy.All()
			if tables != "" {
				var err error
				if sel, err = taxonomy.ParseSelection(tables); err != nil {
					return err
				}
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "GROUP\tSTATE\tTABLES")
			for _, g := range feed.GroupViews(sel) {
				names := make([]string, len(g.Tables))
				for i, t := range g.Tables {
					mark := " "
					if sel.Has(t) {
						mark = "*"
					}
					names[i] = mark + string(t)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", g.Name, g.State, strings.Join(names, " "))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&tables, "tables", "", "Comma-separated selected tables (default all)")
	return cmd
}
