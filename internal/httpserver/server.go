package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Sean0418/Twilio-Alpha-Insurance-Agent/internal/relay"
	"github.com/Sean0418/Twilio-Alpha-Insurance-Agent/internal/telephony"
)

// New creates the configured Echo server with all routes mounted: health,
// Twilio call control, and the ConversationRelay WebSocket.
func New(tel *telephony.Service, rel *relay.Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	tel.RegisterHandlers(e)

	e.GET("/ws", func(c echo.Context) error {
		rel.ServeRelay(c.Response(), c.Request())
		return nil
	})

	return e
}
