package server

import (
	"snatchbot/db"
	"snatchbot/models"
	"snatchbot/towers"
	"strings"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cache"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

type ServerConfig struct {

	// The reader to use for catalog queries
	Reader *db.Reader

	// The engine holding the unclaimed-site baseline
	Engine *towers.Engine
}

// Returns a fiber.App instance serving the bot's ops surface: health,
// metrics and a read-only view of the tower catalog and baseline.
func Server(config *ServerConfig) *fiber.App {

	app := fiber.New()

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		// start timer
		start := time.Now()

		// next routes
		err := c.Next()

		// stop timer
		stop := time.Now()

		// Diff
		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"latency": stop.Sub(start),
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New())
	app.Use(cors.New(cors.Config{
		AllowHeaders: "Cache-Control",
	}))

	// Setup cache. The catalog only changes on reseed so its endpoints are
	// safe to cache; the unclaimed view must stay live.
	app.Use(cache.New(cache.Config{
		Next: func(c *fiber.Ctx) bool {

			if c.Method() != "GET" {
				return true
			}

			if strings.HasPrefix(c.Path(), "/api/playfields") {
				return false
			}
			return true
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			// Get URL with query string to use as cache key
			url := c.Request().URI().String()
			return url
		},
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(map[string]interface{}{
			"status": "ok",
		})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/api/playfields", func(c *fiber.Ctx) error {
		playfields, err := config.Reader.AllPlayfields(c.UserContext())
		if err != nil {
			log.WithFields(log.Fields{
				"error": err,
			}).Error("Error listing playfields")

			return c.Status(500).SendString("Error listing playfields")
		}

		return c.JSON(playfields)
	})

	app.Get("/api/playfields/:name/sites", func(c *fiber.Ctx) error {
		name := c.Params("name")

		playfield, err := config.Reader.PlayfieldByName(c.UserContext(), name)
		if err != nil {
			log.WithFields(log.Fields{
				"error": err,
			}).Error("Error looking up playfield")

			return c.Status(500).SendString("Error looking up playfield")
		}
		if playfield == nil {
			return c.Status(404).SendString("Unknown playfield")
		}

		sites, err := config.Reader.SitesInPlayfield(c.UserContext(), playfield.ID)
		if err != nil {
			log.WithFields(log.Fields{
				"error": err,
			}).Error("Error listing sites")

			return c.Status(500).SendString("Error listing sites")
		}

		log.WithFields(log.Fields{
			"playfield": playfield.ShortName,
			"count":     len(sites),
		}).Info("Get playfield sites")

		return c.JSON(map[string]interface{}{
			"playfield": playfield,
			"sites":     sites,
		})
	})

	// Baseline view. Serves the last committed poll outcome and never
	// triggers a poll of its own.
	app.Get("/api/unclaimed", func(c *fiber.Ctx) error {
		baseline := config.Engine.Baseline()

		// A known empty baseline serializes as []; null means unknown
		sites := baseline.Sites()
		if baseline.Known() && sites == nil {
			sites = []models.SiteKey{}
		}

		return c.JSON(map[string]interface{}{
			"state": baseline.Label(),
			"sites": sites,
		})
	})

	return app
}
