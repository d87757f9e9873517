package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/dzfranklin/gtfstables"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

func usageAndDie() {
	fmt.Println("Example usage:\n" +
		"    gtfstables --create-feed <name>\n" +
		"    gtfstables --feeds\n" +
		"    gtfstables --feed <id> --import <fare_attributes.txt> [--overwrite]\n" +
		"    gtfstables --feed <id> --export <fare_attributes.txt>\n" +
		"    gtfstables --delete-feed <id>")
	os.Exit(1)
}

func main() {
	_ = godotenv.Load() // .env is optional
	env := loadEnv()

	createFeed := pflag.String("create-feed", "", "Create a feed with the given name and print its id")
	listFeeds := pflag.Bool("feeds", false, "List feeds")
	importPath := pflag.StringP("import", "i", "", "Import fare_attributes.txt into --feed")
	exportPath := pflag.StringP("export", "e", "", "Export --feed's fares to fare_attributes.txt")
	deleteFeed := pflag.String("delete-feed", "", "Delete a feed and everything in it")

	dbPath := pflag.String("db", env.DBPath, "Path of the sqlite database")
	feedID := pflag.StringP("feed", "f", "", "Feed id to import into or export from")
	overwrite := pflag.Bool("overwrite", false, "Let later rows replace earlier ones with the same fare_id instead of failing")
	logLevel := pflag.String("log-level", env.LogLevel, "debug, info, warn or error")
	logFormat := pflag.String("log-format", env.LogFormat, "text or json")

	pflag.Parse()

	primaryCount := 0
	for _, set := range []bool{*createFeed != "", *listFeeds, *importPath != "", *exportPath != "", *deleteFeed != ""} {
		if set {
			primaryCount++
		}
	}
	if primaryCount != 1 {
		usageAndDie()
	}

	setupLogging(*logLevel, *logFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, err := gtfstables.OpenSQLiteStore(*dbPath, 1)
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	fares := gtfstables.NewFareTable(store)

	switch {
	case *createFeed != "":
		var feed gtfstables.Feed
		feed, err = store.CreateFeed(ctx, *createFeed)
		if err == nil {
			fmt.Println(feed.ID)
		}
	case *listFeeds:
		var feeds []gtfstables.Feed
		feeds, err = store.Feeds(ctx)
		for _, feed := range feeds {
			fmt.Printf("%s\t%s\t%s\n", feed.ID, feed.Created.Format("2006-01-02 15:04:05"), feed.Name)
		}
	case *deleteFeed != "":
		var id gtfstables.FeedID
		id, err = gtfstables.ParseFeedID(*deleteFeed)
		if err == nil {
			err = store.DeleteFeed(ctx, id)
		}
	case *importPath != "":
		var id gtfstables.FeedID
		id, err = requireFeedID(*feedID)
		if err == nil {
			opts := &gtfstables.ImportOpts{}
			if *overwrite {
				opts.Duplicates = gtfstables.OverwriteDuplicates
			}
			_, err = fares.ImportFile(ctx, id, *importPath, opts)
		}
	case *exportPath != "":
		var id gtfstables.FeedID
		id, err = requireFeedID(*feedID)
		if err == nil {
			err = fares.ExportFile(ctx, id, *exportPath)
		}
	}

	if err != nil {
		_ = store.Close()
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	} else if !*listFeeds && *createFeed == "" {
		fmt.Println("All done")
	}
}

func requireFeedID(s string) (gtfstables.FeedID, error) {
	if s == "" {
		usageAndDie()
	}
	return gtfstables.ParseFeedID(s)
}
