package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/emersion/go-smtp"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/shinmk/mailintake/config"
	"github.com/shinmk/mailintake/fanout"
	"github.com/shinmk/mailintake/intake"
	"github.com/shinmk/mailintake/model"
	"github.com/shinmk/mailintake/objectstorage"
)

var (
	conf    *config.Config
	version = "dev"
)

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

	if conf.LogFile != "" {
		logFd, err := os.OpenFile(conf.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Fatalf("Error opening log file: %v", err)
		}
		defer logFd.Close()
		log.SetOutput(logFd)
	}

	db, err := gorm.Open(mysql.Open(conf.Database), &gorm.Config{})
	if err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}
	if err := model.Migrate(db); err != nil {
		log.Fatalf("Error migrating database: %v", err)
	}
	store := model.NewStore(db)

	var objects intake.ObjectStore
	if objectstorage.Configured(conf.ObjectStorage) {
		objects = objectstorage.New(conf.ObjectStorage)
	} else {
		log.Printf("No object storage configured, attachments kept as metadata only")
	}

	pipeline := intake.NewPipeline(store, store, store, store, objects, intake.Config{
		AdminAddress:        conf.AdminAddress,
		KeywordFilter:       conf.KeywordFilter,
		RetentionMaxAge:     conf.Retention.MaxAgeDuration(),
		RetentionMaxRecords: conf.Retention.MaxRecords,
	})
	dispatcher := fanout.NewDispatcher(conf.NotifyTZ)

	backend := &Backend{
		pipeline:   pipeline,
		dispatcher: dispatcher,
		relay:      conf.SMTP.Relay,
	}

	server := smtp.NewServer(backend)
	server.Addr = conf.SMTP.Listen
	server.Domain = conf.SMTP.Domain
	server.ReadTimeout = 30 * time.Second
	server.WriteTimeout = 30 * time.Second
	server.MaxMessageBytes = conf.SMTP.MaxMessageBytes
	if server.MaxMessageBytes == 0 {
		server.MaxMessageBytes = 25 * 1024 * 1024
	}
	server.MaxRecipients = 50
	server.AuthDisabled = true

	log.Printf("start smtpd pid=%d listen=%s domain=%s", os.Getpid(), server.Addr, server.Domain)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("smtpd stopped: %v", err)
	}
}
