package server

import (
	"fmt"
	"net/http"
	"time"
)

// streamInterval paces MJPEG output at roughly the active camera rate.
const streamInterval = 66 * time.Millisecond

// FrameSource provides the latest annotated JPEG frame.
type FrameSource interface {
	LatestFrame() []byte
}

// StreamHandler serves MJPEG frames from the tracking pipeline.
type StreamHandler struct {
	source FrameSource
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(source FrameSource) *StreamHandler {
	return &StreamHandler{source: source}
}

// ServeHTTP streams MJPEG frames until the client disconnects.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	var last []byte
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		frame := h.source.LatestFrame()
		if len(frame) == 0 || sameFrame(frame, last) {
			continue
		}
		last = frame

		if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(frame)); err != nil {
			return
		}
		if _, err := w.Write(frame); err != nil {
			return
		}
		if _, err := fmt.Fprint(w, "\r\n"); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// sameFrame reports whether a and b share a backing array. The pipeline
// replaces the frame slice on every update and never mutates it in place.
func sameFrame(a, b []byte) bool {
	return len(a) == len(b) && len(a) > 0 && &a[0] == &b[0]
}
