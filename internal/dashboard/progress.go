package dashboard

import (
	"encoding/json"
	"net/http"

	"github.com/alexandrevicenzi/go-sse"
	"go.uber.org/zap"
)

// Upload states pushed to the browser.
const (
	statusQueued  = "queued"
	statusParsing = "parsing"
	statusDone    = "done"
	statusCached  = "cached"
	statusSkipped = "skipped"
	statusFailed  = "failed"
)

// ProgressUpdate is one SSE message about an uploaded file.
type ProgressUpdate struct {
	File    string  `json:"file"`
	Status  string  `json:"status"`
	Percent float64 `json:"percent"`
	Error   string  `json:"error,omitempty"`
}

func progressChannel(sessionID string) string {
	return "/progress/" + sessionID
}

// progressChannelOf subscribes an EventSource to its own session's channel.
func progressChannelOf(r *http.Request) string {
	if s := sessionFrom(r); s != nil {
		return progressChannel(s.ID)
	}
	return progressChannel("anonymous")
}

func (s *Server) publish(sessionID string, u ProgressUpdate) {
	data, err := json.Marshal(u)
	if err != nil {
		s.logger.Warn("marshal progress", zap.Error(err))
		return
	}
	s.progress.SendMessage(progressChannel(sessionID), sse.SimpleMessage(string(data)))
}
