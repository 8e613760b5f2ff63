package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/specforge/internal/core/ports/driving"
	"github.com/custodia-labs/specforge/internal/logger"
)

// doneSentinel terminates every stream.
const doneSentinel = "[DONE]"

type textFrame struct {
	Text string `json:"text"`
}

// sseWriter defers the response headers until the first frame, so an
// operation that fails before streaming can still answer with a status code.
type sseWriter struct {
	c       *gin.Context
	started bool
}

func newSSEWriter(c *gin.Context) *sseWriter {
	return &sseWriter{c: c}
}

func (w *sseWriter) start() {
	if w.started {
		return
	}
	w.started = true
	h := w.c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.c.Status(http.StatusOK)
}

// frame writes one SSE frame. An empty event name writes a data-only frame.
func (w *sseWriter) frame(event, data string) {
	w.start()
	if event != "" {
		fmt.Fprintf(w.c.Writer, "event: %s\n", event)
	}
	fmt.Fprintf(w.c.Writer, "data: %s\n\n", data)
	w.c.Writer.Flush()
}

func (w *sseWriter) json(event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Error("encode %s frame: %v", event, err)
		return
	}
	w.frame(event, string(data))
}

// chunk is a driving.ChunkFunc that relays deltas as text frames.
func (w *sseWriter) chunk(delta string) {
	w.json("", textFrame{Text: delta})
}

// finish reports err, if any, and ends the stream. Before the first frame
// an error becomes a plain JSON error response.
func (w *sseWriter) finish(err error) {
	if err != nil && !w.started {
		abortWithError(w.c, err)
		return
	}
	if err != nil {
		w.json("error", gin.H{"error": err.Error()})
	}
	w.frame("", doneSentinel)
}

// stream runs op with a chunk relay and closes the stream. result, when
// non-nil after op succeeds, is sent as an "event: result" frame.
func stream(c *gin.Context, op func(onChunk driving.ChunkFunc) (any, error)) {
	w := newSSEWriter(c)
	result, err := op(w.chunk)
	if err == nil && result != nil {
		w.json("result", result)
	}
	w.finish(err)
}
