package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"digital-twin/backend/internal/graph"
	"digital-twin/backend/internal/props"
	"digital-twin/backend/pkg/config"
	"digital-twin/backend/pkg/logger"
)

func main() {
	siteID := flag.String("site-id", "site-north", "Id of the site object to create")
	force := flag.Bool("force", false, "Seed even if the site already exists")
	reset := flag.Bool("reset", false, "Delete all objects, links and actions before seeding")
	skipConfirm := flag.Bool("y", false, "Skip the reset confirmation prompt")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	// Initialize logger
	if err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting database seeding...")

	// Initialize Neo4j driver
	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		log.Fatal("Failed to create Neo4j driver", zap.Error(err))
	}

	store := graph.NewNeo4jStore(driver, cfg.Neo4jDatabase)
	defer store.Close()

	// Verify connection
	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		log.Fatal("Failed to verify Neo4j connectivity", zap.Error(err))
	}

	if err := store.EnsureSchema(ctx); err != nil {
		log.Warn("Failed to apply some schema statements", zap.Error(err))
	}

	if *reset {
		if !*skipConfirm && !confirmReset() {
			log.Info("Aborted.")
			os.Exit(0)
		}
		log.Info("Deleting all objects, links and actions...")
		if err := store.Purge(ctx); err != nil {
			log.Fatal("Failed to reset graph", zap.Error(err))
		}
	}

	engine := graph.NewEngine(store, store, cfg.MaxTraversalDepth)

	// Check if the site already exists
	existing, err := store.GetObject(ctx, *siteID)
	if err != nil {
		log.Fatal("Failed to check for existing site", zap.Error(err))
	}
	if existing != nil && !*force {
		log.Info("Site already exists, skipping (use -force to reseed)", zap.String("site_id", *siteID))
		os.Exit(0)
	}

	summary, err := seedSite(ctx, engine, *siteID)
	if err != nil {
		log.Fatal("Seeding failed", zap.Error(err))
	}

	log.Info("Seeding completed successfully!",
		zap.String("site_id", *siteID),
		zap.Int("objects", summary.objects),
		zap.Int("links", summary.links),
	)
}

func confirmReset() bool {
	logger.Get().Warn("This will DELETE ALL objects, links and actions. This cannot be undone.")
	// prompt goes to stdout
	fmt.Print("Are you sure you want to continue? (yes/no): ")
	var response string
	_, _ = fmt.Scanln(&response)
	return response == "yes" || response == "y"
}

type seedSummary struct {
	objects int
	links   int
}

// seedSite builds a small plant: a site containing two pumps, each feeding
// a valve, with the valves sharing one sensor.
func seedSite(ctx context.Context, engine *graph.Engine, siteID string) (seedSummary, error) {
	var summary seedSummary

	objects := []*graph.Object{
		{ID: siteID, Type: "Site", Properties: props.Properties{
			"name":   props.String("North plant"),
			"region": props.String("eu-west"),
		}},
		{ID: siteID + "-pump-1", Type: "Pump", Properties: props.Properties{
			"rpm":    props.Int(1450),
			"active": props.Bool(true),
		}},
		{ID: siteID + "-pump-2", Type: "Pump", Properties: props.Properties{
			"rpm":    props.Int(0),
			"active": props.Bool(false),
		}},
		{ID: siteID + "-valve-1", Type: "Valve", Properties: props.Properties{
			"open": props.Float(0.75),
		}},
		{ID: siteID + "-valve-2", Type: "Valve", Properties: props.Properties{
			"open": props.Float(0),
		}},
		{ID: siteID + "-sensor-1", Type: "Sensor", Properties: props.Properties{
			"unit":   props.String("bar"),
			"limits": props.List(props.Float(0.5), props.Float(6.0)),
		}},
	}
	for _, obj := range objects {
		if _, err := engine.Objects.SaveObject(ctx, obj); err != nil {
			return summary, fmt.Errorf("save %s: %w", obj.ID, err)
		}
		summary.objects++
	}

	links := []struct {
		linkType, source, target string
	}{
		{"CONTAINS", siteID, siteID + "-pump-1"},
		{"CONTAINS", siteID, siteID + "-pump-2"},
		{"FEEDS", siteID + "-pump-1", siteID + "-valve-1"},
		{"FEEDS", siteID + "-pump-2", siteID + "-valve-2"},
		{"MONITORS", siteID + "-sensor-1", siteID + "-valve-1"},
		{"MONITORS", siteID + "-sensor-1", siteID + "-valve-2"},
	}
	for _, l := range links {
		if _, err := engine.Links.CreateLink(ctx, l.linkType, l.source, l.target, nil); err != nil {
			return summary, fmt.Errorf("link %s -> %s: %w", l.source, l.target, err)
		}
		summary.links++
	}

	return summary, nil
}
