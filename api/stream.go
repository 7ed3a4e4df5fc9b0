package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gin-gonic/gin"
	"weatherpush.app/scheduler"
)

// sseListener adapts a server-sent-events connection to the scheduler's
// Listener interface. Writes are mutex-serialized because the scheduler may
// deliver from a job goroutine while the handler goroutine is still alive.
type sseListener struct {
	mu     sync.Mutex
	writer gin.ResponseWriter
}

// Send writes one event as an SSE frame. Weather updates go out as plain
// data frames; fetch failures as named error events.
func (l *sseListener) Send(event scheduler.Event) error {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Type == scheduler.EventError {
		_, err = fmt.Fprintf(l.writer, "event: error\ndata: %s\n\n", data)
	} else {
		_, err = fmt.Fprintf(l.writer, "data: %s\n\n", data)
	}
	if err != nil {
		return err
	}

	l.writer.Flush()
	return nil
}

// stream handles GET /api/subscribe/stream?token=...&liveToken=...
// It registers the connection as a live listener and blocks until the client
// disconnects; the scheduler pushes each tick's record through the registry.
func (s *Server) stream(c *gin.Context) {
	token := c.Query("token")
	liveToken := c.Query("liveToken")

	subscription, err := s.subscriptionService.AuthorizeStream(token, liveToken)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	listener := &sseListener{writer: c.Writer}
	s.registry.Register(subscription.ID, listener)
	slog.Info("Live listener connected", "subscription", subscription.ID)

	// Deregistering promptly on disconnect is this layer's contract with
	// the scheduler: the next tick must not see a dead sink.
	<-c.Request.Context().Done()

	s.registry.Deregister(subscription.ID, listener)
	slog.Info("Live listener disconnected", "subscription", subscription.ID)
}
