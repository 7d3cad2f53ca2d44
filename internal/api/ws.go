package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"vrpls/internal/model"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

// statusPoll re-reads the run while streaming; broker delivery is best effort
// and a slow client may miss the terminal event.
const statusPoll = time.Second

// RunEventsWSHandler streams a run's progress events over a websocket until
// the run completes or fails.
func (s *Server) RunEventsWSHandler(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if terminal(run.Status) {
		_ = conn.WriteJSON(terminalEvent(run))
		closeNormal(conn)
		return
	}

	ch := s.Broker.Subscribe(run.ID)
	defer s.Broker.Unsubscribe(run.ID, ch)

	// The run may have finished between the lookup and Subscribe.
	if cur, err := s.Store.GetRun(r.Context(), run.ID); err == nil && terminal(cur.Status) {
		_ = conn.WriteJSON(terminalEvent(cur))
		closeNormal(conn)
		return
	}

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	poll := time.NewTicker(statusPoll)
	defer poll.Stop()
	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case evt, open := <-ch:
			if !open {
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				log.Debug().Err(err).Str("run", run.ID).Msg("websocket write")
				return
			}
			if evt.Type == EventCompleted || evt.Type == EventFailed {
				closeNormal(conn)
				return
			}
		case <-poll.C:
			cur, err := s.Store.GetRun(r.Context(), run.ID)
			if err == nil && terminal(cur.Status) {
				_ = conn.WriteJSON(terminalEvent(cur))
				closeNormal(conn)
				return
			}
		}
	}
}

func terminal(status string) bool {
	return status == model.RunSucceeded || status == model.RunFailed
}

func terminalEvent(run model.Run) model.RunEvent {
	evt := model.RunEvent{Type: EventCompleted, RunID: run.ID, Distance: run.Distance}
	if run.Status == model.RunFailed {
		evt.Type = EventFailed
	}
	if m := run.Metrics; m != nil {
		evt.Iteration = m.Iterations
		evt.ElapsedMs = m.ElapsedMs
		evt.Tolerance = m.FinalTolerance
	}
	return evt
}

func closeNormal(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}
