package main

import (
	"context"
	"flag"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/shinmk/mailintake/config"
	"github.com/shinmk/mailintake/model"
	"github.com/shinmk/mailintake/retention"
)

var (
	conf    *config.Config
	version = "dev"
)

// cleanup runs one retention pass outside the delivery path, for cron.
func main() {
	var confPath string
	var showVersion bool
	flag.BoolVar(&showVersion, "version", false, "Show version")
	flag.StringVar(&confPath, "conf", "./config.yaml", "Path to the configuration file")
	flag.Parse()

	if showVersion {
		log.Printf("Version: %s", version)
		return
	}

	var err error
	conf, err = config.Load(confPath)
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	db, err := gorm.Open(mysql.Open(conf.Database), &gorm.Config{})
	if err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}
	if err := model.Migrate(db); err != nil {
		log.Fatalf("Error migrating database: %v", err)
	}

	store := model.NewStore(db)
	ctx := context.Background()

	before, err := store.CountMessages(ctx)
	if err != nil {
		log.Fatalf("Error counting messages: %v", err)
	}
	retention.Enforce(ctx, store, conf.Retention.MaxAgeDuration(), conf.Retention.MaxRecords)
	after, err := store.CountMessages(ctx)
	if err != nil {
		log.Fatalf("Error counting messages: %v", err)
	}
	log.Printf("retention pass done: %d -> %d messages", before, after)
}
