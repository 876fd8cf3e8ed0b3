package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	sse "github.com/alexandrevicenzi/go-sse"
	"github.com/gorilla/mux"

	"github.com/cncio/gsend/command"
	"github.com/cncio/gsend/control"
	"github.com/cncio/gsend/coord"
)

type api struct {
	http.Handler
	c   *control.Controller
	sse *sse.Server
}

func newAPI(c *control.Controller) *api {
	r := mux.NewRouter()

	a := &api{
		Handler: r,
		c:       c,
		sse: sse.NewServer(&sse.Options{
			Logger: log.New(io.Discard, "", 0),
		}),
	}

	r.HandleFunc("/api/status", a.status).Methods("GET")
	r.HandleFunc("/api/append", a.append).Methods("POST")
	r.HandleFunc("/api/send", a.send).Methods("POST")
	r.HandleFunc("/api/start", a.op(c.BeginStreaming)).Methods("POST")
	r.HandleFunc("/api/pause", a.op(c.Pause)).Methods("POST")
	r.HandleFunc("/api/resume", a.op(c.Resume)).Methods("POST")
	r.HandleFunc("/api/cancel", a.op(c.Cancel)).Methods("POST")
	r.HandleFunc("/api/home", a.op(c.HomingCycle)).Methods("POST")
	r.HandleFunc("/api/return-home", a.op(c.ReturnToHome)).Methods("POST")
	r.HandleFunc("/api/zero", a.op(c.ResetCoordinatesToZero)).Methods("POST")
	r.HandleFunc("/api/unlock", a.op(c.KillAlarmLock)).Methods("POST")
	r.HandleFunc("/api/check-mode", a.op(c.ToggleCheckMode)).Methods("POST")
	r.HandleFunc("/api/soft-reset", a.op(c.SoftReset)).Methods("POST")
	r.PathPrefix("/events/").Handler(a.sse)

	c.Register(&sseListener{srv: a.sse})

	return a
}

// op adapts a parameterless controller operation to a handler.
func (a *api) op(fn func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := fn(); err != nil {
			log.Printf("ERROR: %s: %+v", req.URL.Path, err)
			http.Error(w, err.Error(), 500)
		}
	}
}

func (a *api) status(w http.ResponseWriter, req *http.Request) {
	err := json.NewEncoder(w).Encode(map[string]interface{}{
		"open":       a.c.IsOpen(),
		"streaming":  a.c.IsStreaming(),
		"paused":     a.c.IsPaused(),
		"rows":       a.c.RowsInSend(),
		"sent":       a.c.RowsSent(),
		"remaining":  a.c.RowsRemaining(),
		"durationMs": a.c.SendDuration().Milliseconds(),
	})
	if err != nil {
		log.Println("ERROR: encode:", err)
	}
}

func (a *api) append(w http.ResponseWriter, req *http.Request) {
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return
	}

	var firstErr error
	for _, line := range strings.Split(string(data), "\n") {
		if err := a.c.Append(line); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		log.Printf("ERROR: append: %+v", firstErr)
		http.Error(w, firstErr.Error(), http.StatusBadRequest)
	}
}

func (a *api) send(w http.ResponseWriter, req *http.Request) {
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		http.Error(w, "empty command", http.StatusBadRequest)
		return
	}
	if err := a.c.Send(text); err != nil {
		log.Printf("ERROR: send: %+v", err)
		http.Error(w, err.Error(), 500)
	}
}

// sseListener forwards controller events to SSE channels as JSON.
type sseListener struct {
	srv *sse.Server
}

func (l *sseListener) publish(channel string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("ERROR: marshal json: %+v", err)
		return
	}
	l.srv.SendMessage(channel, sse.SimpleMessage(string(data)))
}

func (l *sseListener) StatusUpdate(state string, machine, work coord.Point) {
	l.publish("/events/status", map[string]interface{}{
		"state":   state,
		"machine": machine,
		"work":    work,
	})
}

func (l *sseListener) ConsoleMessage(msg string, verbose bool) {
	l.publish("/events/console", map[string]interface{}{
		"message": msg,
		"verbose": verbose,
	})
}

func (l *sseListener) StreamComplete(name string, success bool) {
	l.publish("/events/stream", map[string]interface{}{
		"name":    name,
		"success": success,
	})
}

func (l *sseListener) command(event string, c *command.Command) {
	l.publish("/events/command", map[string]interface{}{
		"event":    event,
		"number":   c.Number,
		"text":     c.Text,
		"sent":     c.Sent,
		"skipped":  c.Skipped,
		"response": c.Response,
	})
}

func (l *sseListener) CommandQueued(c *command.Command)   { l.command("queued", c) }
func (l *sseListener) CommandSent(c *command.Command)     { l.command("sent", c) }
func (l *sseListener) CommandComplete(c *command.Command) { l.command("complete", c) }

func (l *sseListener) CommandComment(comment string) {
	l.publish("/events/command", map[string]interface{}{
		"event":   "comment",
		"comment": comment,
	})
}

func (l *sseListener) PostProcessCount(rows int) {
	l.publish("/events/stream", map[string]interface{}{
		"event": "postprocess",
		"rows":  rows,
	})
}
