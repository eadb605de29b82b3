package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"crypto-core/internal/events"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// websocket streams price ticks and executed orders to the client.
func (s *Server) websocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}
	defer conn.Close()

	if s.Bus == nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"bus not ready"}`))
		return
	}

	ticks, unsubTicks := s.Bus.Subscribe(events.EventPriceTick, 100)
	defer unsubTicks()
	orders, unsubOrders := s.Bus.Subscribe(events.EventOrderExecuted, 16)
	defer unsubOrders()

	for {
		select {
		case msg, ok := <-ticks:
			if !ok {
				return
			}
			if err := conn.WriteJSON(gin.H{"event": "price_tick", "data": msg}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case msg, ok := <-orders:
			if !ok {
				return
			}
			if err := conn.WriteJSON(gin.H{"event": "order_executed", "data": msg}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}
}
