package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"campus-market/internal/browse"
	"campus-market/internal/client"
	"campus-market/internal/fulltext"
	"campus-market/internal/listing"
)

// BrowseCommand pages through one listing kind. With --query the filter
// state is applied and the whole collection is filtered instead.
func BrowseCommand() *cli.Command {
	return &cli.Command{
		Name:  "browse",
		Usage: "List products, services or demands",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "kind",
				Usage: "products, services or demands",
				Value: "products",
			},
			&cli.StringFlag{
				Name:  "query",
				Usage: "Filter state as a query string, e.g. category=books&sort=price-low",
			},
			&cli.IntFlag{
				Name:  "pages",
				Usage: "Pages to load when no filter is set",
				Value: 1,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Page size",
				Value: 20,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			kind, err := listing.ParseKind(cmd.String("kind"))
			if err != nil {
				return err
			}
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			return browseListings(ctx, cmd, c, kind, cmd.String("query"), cmd.Int("pages"), cmd.Int("limit"))
		},
	}
}

func browseListings(ctx context.Context, cmd *cli.Command, c *client.Client, kind listing.Kind, query string, pages, limit int) error {
	session := browse.New(kind, c.Listings(kind), limit)
	if err := session.LoadFromQuery(ctx, query); err != nil {
		return fmt.Errorf("loading %s: %w", kind.Plural(), err)
	}
	for i := 1; i < pages; i++ {
		more, err := session.LoadMore(ctx)
		if err != nil {
			return fmt.Errorf("loading page %d: %w", i+1, err)
		}
		if !more {
			break
		}
	}

	w := cmd.Root().Writer
	renderListings(w, kind.Plural(), session.Results())
	if q := session.Query(); q != "" {
		fmt.Fprintln(w, metaStyle.Render("filters: "+q))
	}
	if session.HasMore() {
		fmt.Fprintln(w, metaStyle.Render("more available, use --pages"))
	}
	return nil
}

// SearchCommand runs a universal search.
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search all listings",
		ArgsUsage: "QUERY",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "category",
				Usage: "Only listings in this category",
			},
			&cli.StringFlag{
				Name:  "location",
				Usage: "Only listings in this hall",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum results per kind",
				Value: 10,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			q := cmd.Args().First()
			if q == "" {
				return fmt.Errorf("search needs a query")
			}
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			resp, err := c.Search(ctx, client.SearchParams{
				Q:        q,
				Category: cmd.String("category"),
				Location: cmd.String("location"),
				Limit:    cmd.Int("limit"),
			})
			if err != nil {
				return fmt.Errorf("searching: %w", err)
			}

			w := cmd.Root().Writer
			for _, group := range []struct {
				name    string
				results []fulltext.Result
			}{
				{"products", resp.Products},
				{"services", resp.Services},
				{"demands", resp.Demands},
			} {
				items := make([]listing.Listing, len(group.results))
				for i, r := range group.results {
					items[i] = r.Listing
				}
				renderListings(w, group.name, items)
			}
			fmt.Fprintln(w, metaStyle.Render(fmt.Sprintf("%d results", resp.Total)))
			return nil
		},
	}
}

// SuggestCommand prints search-box completions.
func SuggestCommand() *cli.Command {
	return &cli.Command{
		Name:      "suggest",
		Usage:     "Suggest completions for a partial query",
		ArgsUsage: "PREFIX",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "max",
				Usage: "Maximum suggestions",
				Value: 5,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			suggestions, err := c.Suggest(ctx, cmd.Args().First(), cmd.Int("max"))
			if err != nil {
				return fmt.Errorf("suggesting: %w", err)
			}

			w := cmd.Root().Writer
			if len(suggestions) == 0 {
				fmt.Fprintln(w, noDataStyle.Render("no suggestions"))
				return nil
			}
			for _, s := range suggestions {
				fmt.Fprintln(w, s)
			}
			return nil
		},
	}
}
