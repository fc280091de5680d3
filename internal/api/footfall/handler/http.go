package footfallHandler

import (
	footfallService "FootfallGolang/internal/api/footfall/service"
	"FootfallGolang/internal/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type FootfallHandler struct {
	log             *logrus.Logger
	validator       *validator.Validate
	middleware      middleware.Middleware
	footfallService footfallService.IFootfallService
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	fs footfallService.IFootfallService,
) *FootfallHandler {
	return &FootfallHandler{
		log:             log,
		validator:       validator,
		middleware:      middleware,
		footfallService: fs,
	}
}

func (h *FootfallHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	footfall := srv.Group("/footfall")

	footfall.Post("/jobs", h.CreateJob)
	footfall.Get("/jobs", h.GetJobs)
	footfall.Get("/jobs/:id", h.GetJob)
	footfall.Post("/jobs/:id/cancel", h.CancelJob)
	footfall.Post("/livestream", h.ProcessLivestream)

	footfall.Use("/live/:clientKey", wsMiddleware)
	footfall.Get("/live/:clientKey", websocket.New(h.handleLiveWebSocket))
}
