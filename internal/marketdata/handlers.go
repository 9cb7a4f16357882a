package marketdata

import (
	"github.com/gin-gonic/gin"

	"github.com/papertrade/papertrade-api/pkg/response"
)

// PricesHandler handles GET requests for the current price snapshot.
func (f *Feed) PricesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, f.Snapshot())
	}
}

// WSHandler upgrades the request to a WebSocket tick subscription.
func (h *Hub) WSHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		h.ServeWS(c.Writer, c.Request)
	}
}
