package main

import (
	"flag"
	"io"
	"log"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/shinmk/mailintake/config"
	"github.com/shinmk/mailintake/model"
	"github.com/shinmk/mailintake/objectstorage"
)

var (
	conf    *config.Config
	store   *model.Store
	objects *objectstorage.Client
	version = "dev"
)

func getList(c echo.Context) error {
	messages, err := store.ListMessages(c.Request().Context())
	if err != nil {
		return c.JSON(500, map[string]string{"error": "Failed to fetch messages"})
	}
	return c.JSON(200, messages)
}

type Message struct {
	Raw string `json:"raw,omitempty"`
	model.Message
	Attachments []model.Attachment `json:"attachments"`
}

func getMessage(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid message id"})
	}

	message, err := store.FindMessage(ctx, id)
	if err != nil {
		return c.JSON(404, map[string]string{"error": "Message not found"})
	}
	attachments, err := store.FindAttachmentsByMessage(ctx, message.ID)
	if err != nil {
		c.Logger().Error("Failed to fetch attachments:", err)
	}

	resp := Message{
		Message:     *message,
		Attachments: attachments,
	}
	if objects != nil && message.RawKey != "" {
		raw, err := objects.Download(ctx, message.RawKey)
		if err != nil {
			c.Logger().Error("Failed to download raw message:", err)
		} else {
			defer raw.Close()
			if body, err := io.ReadAll(raw); err == nil {
				resp.Raw = string(body)
			}
		}
	}
	return c.JSON(200, resp)
}

// clearAll wipes the message table. Refuses without ?confirm=yes and
// reports the row counts before and after.
func clearAll(c echo.Context) error {
	if c.QueryParam("confirm") != "yes" {
		return c.JSON(400, map[string]any{
			"success": false,
			"message": "add ?confirm=yes to confirm clearing all messages",
		})
	}
	before, after, err := store.ClearAllMessages(c.Request().Context())
	if err != nil {
		return c.JSON(500, map[string]any{"success": false, "error": err.Error()})
	}
	return c.JSON(200, map[string]any{"success": true, "before": before, "after": after})
}

func main() {
	var confPath string
	var showVersion bool
	flag.BoolVar(&showVersion, "version", false, "Show version")
	flag.StringVar(&confPath, "config", "config.yaml", "Path to config file")
	flag.Parse()

	if showVersion {
		log.Printf("Version: %s", version)
		return
	}

	var err error
	conf, err = config.Load(confPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if objectstorage.Configured(conf.ObjectStorage) {
		objects = objectstorage.New(conf.ObjectStorage)
	}

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	db, err := gorm.Open(mysql.Open(conf.Database), &gorm.Config{})
	if err != nil {
		e.Logger.Fatal("DB connection failed:", err)
	}
	if err := model.Migrate(db); err != nil {
		e.Logger.Fatal("Migration failed:", err)
	}
	store = model.NewStore(db)

	e.GET("/api/list", getList)
	e.GET("/api/message/:id", getMessage)
	e.DELETE("/api/clear-all", clearAll)

	listen := conf.APIListen
	if listen == "" {
		listen = ":8080"
	}
	e.Logger.Fatal(e.Start(listen))
}
