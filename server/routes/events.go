// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"codeberg.org/synthoma/reader/core/session"
)

const keepAlive = 15 * time.Second

// ReaderEvents streams the session's events as server-sent events. Each
// event's data is its JSON payload.
func ReaderEvents(w http.ResponseWriter, r *http.Request) {
	rd, ok := currentSession(r)
	if !ok {
		http.Error(w, "no reader session", http.StatusNotFound)

		return
	}

	rc := http.NewResponseController(w)

	// the stream outlives the server's write timeout
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		log.Debug().Err(err).Msg("Cannot lift the write deadline of the event stream")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	sub := rd.Subscribe()
	defer sub.Close()

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	logger := log.With().Str("sys", "http").Str("session", rd.ID).Logger()
	logger.Debug().Int("pages", rd.Subscribers()).Msg("Event stream opened")

	for {
		var err error

		select {
		case <-r.Context().Done():
			return
		case <-sub.Done:
			return
		case ev := <-sub.Events:
			err = writeEvent(w, ev)
		case ev := <-sub.Frames:
			err = writeEvent(w, ev)
		case <-ticker.C:
			_, err = io.WriteString(w, ": keep-alive\n\n")
		}

		if err == nil {
			err = rc.Flush()
		}

		if err != nil {
			logger.Debug().Err(err).Msg("Event stream closed")

			return
		}
	}
}

func writeEvent(w io.Writer, ev session.Event) error {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, data)

	return err
}
