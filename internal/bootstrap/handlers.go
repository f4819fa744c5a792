package bootstrap

import (
	"log/slog"

	"github.com/eleven-am/voice-translator/internal/api"
	"github.com/eleven-am/voice-translator/internal/events"
	"github.com/eleven-am/voice-translator/internal/translator"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/fx"
)

func ProvideAPIHandler(svc *translator.Service, hub *events.Hub, logger *slog.Logger) *api.Handler {
	return api.NewHandler(svc, hub, logger)
}

func RegisterRoutes(e *echo.Echo, h *api.Handler) {
	h.RegisterRoutes(e.Group("/v1"))

	e.GET("/swagger/*", echoSwagger.EchoWrapHandler())
}

var HandlersModule = fx.Options(
	fx.Provide(ProvideAPIHandler),
	fx.Invoke(RegisterRoutes),
)
