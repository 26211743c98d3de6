// Package router mounts every HTTP route on a Fiber app.
package router

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"backend-queueflex/internal/auth"
	"backend-queueflex/internal/http/handler"
	"backend-queueflex/internal/http/middleware"
	"backend-queueflex/internal/realtime"
)

// Deps are the collaborators the routes need. Optional parts left nil are
// not mounted.
type Deps struct {
	Verifier auth.Verifier
	Queue    *handler.QueueHandler
	Services *handler.ServiceHandler
	Auth     *handler.AuthHandler

	Hub *realtime.Hub

	Metrics         http.Handler
	MetricsUser     string
	MetricsPassword string
}

func Setup(app *fiber.App, d Deps) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"success": true,
			"message": "queue API is running",
		})
	})

	if d.Auth != nil {
		app.Post("/auth/login", d.Auth.Login)
	}
	if d.Metrics != nil {
		app.Get("/metrics", middleware.BasicAuth(d.MetricsUser, d.MetricsPassword), adaptor.HTTPHandler(d.Metrics))
	}

	authed := middleware.Authenticate(d.Verifier)
	if d.Auth != nil {
		app.Post("/auth/logout", authed, d.Auth.Logout)
	}
	if d.Hub != nil {
		app.Use("/ws", realtime.Upgrade())
		app.Get("/ws/queue/:service_id", middleware.AuthenticateWebsocket(d.Verifier), d.Hub.Handler())
	}

	// Queue (every route needs a caller)
	q := app.Group("/queue", authed)
	q.Post("/add", d.Queue.Join)
	q.Post("/join", d.Queue.Join)
	q.Get("/get", d.Queue.List)
	q.Get("/get/:id", d.Queue.Read)
	q.Get("/service/:service_id", d.Queue.ListForService)
	q.Put("/update/:id", d.Queue.Update)
	q.Delete("/delete/:id", d.Queue.Remove)
	q.Get("/service/:service_id/status", d.Queue.Status)
	q.Post("/service/:service_id/next", middleware.RequireOperator(), d.Queue.CallNext)
	q.Post("/service/:service_id/recompute", middleware.RequireOperator(), d.Queue.Recompute)

	// Services
	app.Get("/services", authed, d.Services.GetAllServices)
	app.Get("/services/:service_id", authed, d.Services.GetServiceByID)
}
