package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/liamnightingale/OrbitSim/internal/metrics"
)

// writeWindow bounds each individual write on a stream whose overall
// deadline has been cleared.
const writeWindow = 30 * time.Second

// client manages a single SSE connection's write operations.
type client struct {
	w      http.ResponseWriter
	rc     *http.ResponseController
	ip     string
	logger *slog.Logger

	messagesSent int64
	bytesSent    int64
}

func (c *client) extendDeadline() {
	if err := c.rc.SetWriteDeadline(time.Now().Add(writeWindow)); err != nil {
		c.logger.Debug("could not set write deadline", "error", err)
	}
}

func (c *client) write(msg string) (int, error) {
	c.extendDeadline()
	n, err := fmt.Fprint(c.w, msg)
	if err != nil {
		return n, fmt.Errorf("write: %w", err)
	}
	if err := c.rc.Flush(); err != nil {
		return n, fmt.Errorf("flush: %w", err)
	}
	c.bytesSent += int64(n)
	metrics.AddStreamBytes(int64(n))
	return n, nil
}

// sendJSON sends v as an SSE "data:" message.
func (c *client) sendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	if _, err := c.write(fmt.Sprintf("data: %s\n\n", data)); err != nil {
		return err
	}
	c.messagesSent++
	metrics.IncStreamMessages()
	return nil
}

// sendRetry tells the client how long to wait before reconnecting.
func (c *client) sendRetry(ms int) error {
	_, err := c.write(fmt.Sprintf("retry: %d\n\n", ms))
	return err
}

// sendKeepalive sends an SSE comment line.
func (c *client) sendKeepalive() error {
	_, err := c.write(":\n\n")
	if err != nil {
		return fmt.Errorf("keepalive %w", err)
	}
	return nil
}
