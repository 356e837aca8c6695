// Kicks off everything

package main

import (
	"context"
	"log"

	"github.com/Reeceeboii/calligraphy-site/pkg/assets"
	"github.com/Reeceeboii/calligraphy-site/pkg/config"
	"github.com/Reeceeboii/calligraphy-site/pkg/logging"
	"github.com/Reeceeboii/calligraphy-site/pkg/server"
)

func main() {
	// set up the logger
	logger := logging.NewLogger()
	log.SetFlags(0)
	log.SetOutput(logger)

	// load in environment variables
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading config: %s", err.Error())
	}

	ctx := context.Background()

	// pull the latest verification file and sitemap down before serving them
	if cfg.SyncEnabled() {
		syncer, err := assets.NewSyncer(cfg.AWSRegion, cfg.AWSBucketName, cfg.SiteRoot)
		if err != nil {
			log.Printf("Skipping asset sync: %s", err.Error())
		} else if err := syncer.Sync(ctx, cfg.VerificationFile, config.SitemapFile); err != nil {
			log.Printf("Asset sync failed, serving what is on disk: %s", err.Error())
		}
	}

	srv, err := server.NewServer(cfg, logger)
	if err != nil {
		log.Fatalf("Error creating server: %s", err.Error())
	}

	// listen and serve
	if err := srv.Start(ctx); err != nil {
		log.Fatal(err)
	}
}
