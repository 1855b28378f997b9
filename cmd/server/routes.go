package main

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"

	"github.com/aldoetobex/legal-consult-backend/internal/articles"
	"github.com/aldoetobex/legal-consult-backend/internal/attachments"
	"github.com/aldoetobex/legal-consult-backend/internal/auth"
	"github.com/aldoetobex/legal-consult-backend/internal/lawyers"
	"github.com/aldoetobex/legal-consult-backend/internal/logging"
	"github.com/aldoetobex/legal-consult-backend/internal/metrics"
	"github.com/aldoetobex/legal-consult-backend/internal/otp"
	"github.com/aldoetobex/legal-consult-backend/internal/payments"
	"github.com/aldoetobex/legal-consult-backend/internal/requests"
	"github.com/aldoetobex/legal-consult-backend/internal/store"
	"github.com/aldoetobex/legal-consult-backend/internal/users"
)

const version = "0.1.0"

// upload limit plus room for the multipart envelope
const bodyLimit = 11 * 1024 * 1024

// deps are the long-lived collaborators the routes are built from.
type deps struct {
	log         *logrus.Logger
	store       *store.Store
	codes       *otp.Authenticator
	tokens      *auth.Tokens
	policy      requests.Policy
	bucket      *attachments.Bucket
	limiter     *auth.IPRateLimiter // nil disables rate limiting
	corsOrigins string
}

func newApp(d deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "legal-consult-backend",
		ErrorHandler: auth.ErrorHandler(d.log),
		BodyLimit:    bodyLimit,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: d.corsOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
	}))
	app.Use(metrics.Middleware())
	app.Use(logging.AccessLog(d.log))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "version": version})
	})
	app.Get("/metrics", metrics.Handler())

	api := app.Group("/api")
	requireAuth := auth.RequireAuth(auth.NewResolver(d.tokens, d.store))

	// Auth
	authH := auth.NewHandler(d.codes, d.tokens)
	authG := api.Group("/auth")
	if d.limiter != nil {
		authG.Use(d.limiter.Middleware())
	}
	authG.Post("/request-code", authH.RequestCode)
	authG.Post("/verify", authH.Verify)
	authG.Get("/me", requireAuth, authH.Me)

	// Requests
	reqH := requests.NewHandler(requests.NewManager(d.store, d.policy, d.log), d.bucket)
	api.Post("/requests", requireAuth, reqH.Create)
	api.Get("/requests", requireAuth, reqH.List)
	api.Get("/requests/:id", requireAuth, reqH.Get)
	api.Get("/requests/:id/history", requireAuth, reqH.History)
	api.Patch("/requests/:id/status", requireAuth, reqH.SetStatus)
	api.Patch("/requests/:id/assign", requireAuth, reqH.Assign)
	api.Delete("/requests/:id", requireAuth, reqH.Delete)

	// Payments
	payH := payments.NewHandler(d.store)
	api.Post("/requests/:id/payment", requireAuth, payH.Create)
	api.Get("/requests/:id/payment", requireAuth, payH.GetByRequest)
	api.Patch("/payments/:id/status", requireAuth, payH.SetStatus)

	// Lawyers
	lawH := lawyers.NewHandler(d.store)
	api.Get("/lawyers", requireAuth, lawH.List)
	api.Post("/lawyers", requireAuth, lawH.Create)
	api.Get("/lawyers/:id", requireAuth, lawH.Get)

	// Users
	userH := users.NewHandler(d.store, d.bucket, d.log)
	api.Patch("/users/me", requireAuth, userH.UpdateMe)
	api.Delete("/users/me", requireAuth, userH.DeleteMe)

	// Articles (public)
	artH := articles.NewHandler(d.store)
	api.Get("/articles", artH.List)
	api.Get("/articles/:id", artH.Get)

	// Attachments
	attH := attachments.NewHandler(d.store, d.bucket, d.log)
	api.Post("/attachments", requireAuth, attH.Upload)
	api.Get("/attachments", requireAuth, attH.List)
	api.Get("/attachments/:id/signed-url", requireAuth, attH.SignedURL)

	return app
}
