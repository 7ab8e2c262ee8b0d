package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxshelf/internal/config"
	"github.com/teemow/inboxshelf/internal/images"
	"github.com/teemow/inboxshelf/internal/library"
	"github.com/teemow/inboxshelf/internal/posts"
)

type listOptions struct {
	category string
	search   string
	stats    bool
	json     bool
	images   bool
	baseURL  string
}

// listedPost is the JSON form of a listed post.
type listedPost struct {
	posts.Post
	Image *string `json:"image,omitempty"`
}

func newListCmd(opts *globalOptions) *cobra.Command {
	lo := &listOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the catalog",
		Long: `Print the catalog of saved articles, newest first.

Examples:
  inboxshelf list --category Database
  inboxshelf list --search kafka --json --images
  inboxshelf list --images --base-url http://localhost:8080
  inboxshelf list --stats`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			return runList(cmd.Context(), cfg, lo, cmd.OutOrStdout(), slog.Default())
		},
	}

	cmd.Flags().StringVar(&lo.category, "category", posts.CategoryAll, "Only list posts in this category")
	cmd.Flags().StringVar(&lo.search, "search", "", "Only list posts whose title or category contains this text")
	cmd.Flags().BoolVar(&lo.stats, "stats", false, "Print article counts per year instead of posts")
	cmd.Flags().BoolVar(&lo.json, "json", false, "Print posts as JSON")
	cmd.Flags().BoolVar(&lo.images, "images", false, "Resolve preview images (implies reading every listed file)")
	cmd.Flags().StringVar(&lo.baseURL, "base-url", "", "Fetch articles for --images from a running server instead of the library directory")
	cmd.Flags().String("blogs", config.DefaultBlogsPath, "Library directory. Can also use BLOGS_BASE_PATH env var.")
	return cmd
}

func runList(ctx context.Context, cfg config.Config, lo *listOptions, out io.Writer, logger *slog.Logger) error {
	lib := library.New(cfg.BlogsPath, library.WithLogger(logger))

	if lo.stats {
		stats, err := lib.Stats(ctx)
		if err != nil {
			return err
		}
		printLibraryStats(out, lib.Root(), stats)
		return nil
	}

	catalog, err := posts.LoadCatalog(ctx, lib)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	listed := posts.Query{Category: lo.category, Search: lo.search}.Apply(catalog)

	var imageByPath map[string]string
	if lo.images {
		rules, err := images.LoadRules(cfg.ImageRulesFile)
		if err != nil {
			return err
		}
		var fetcher images.Fetcher = &images.FSFetcher{FS: lib.FS(), Prefix: lib.URLPrefix()}
		if lo.baseURL != "" {
			fetcher = images.NewHTTPFetcher(lo.baseURL)
		}
		resolver := images.NewResolver(fetcher, images.NewExtractor(rules),
			images.WithLogger(logger),
		)
		locators := make([]string, len(listed))
		for i, p := range listed {
			locators[i] = p.Path
		}
		imageByPath = resolver.ResolveAll(ctx, locators)
	}

	if lo.json {
		return printPostsJSON(out, listed, imageByPath)
	}
	return printPostsTable(out, listed, len(catalog), imageByPath)
}

func printPostsJSON(out io.Writer, listed []posts.Post, imageByPath map[string]string) error {
	items := make([]listedPost, len(listed))
	for i, p := range listed {
		items[i] = listedPost{Post: p}
		if src, ok := imageByPath[p.Path]; ok && src != "" {
			items[i].Image = &src
		}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

func printPostsTable(out io.Writer, listed []posts.Post, total int, imageByPath map[string]string) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header := "DATE\tCATEGORY\tTITLE"
	if imageByPath != nil {
		header += "\tIMAGE"
	}
	fmt.Fprintln(tw, header)
	for _, p := range listed {
		line := fmt.Sprintf("%s\t%s\t%s", posts.FormatDate(p.Date), p.Category, p.Title)
		if imageByPath != nil {
			line += "\t" + imageByPath[p.Path]
		}
		fmt.Fprintln(tw, line)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d of %d posts\n", len(listed), total)
	return nil
}
