// Package main runs a demo WebSocket client that submits a run and streams
// its progress events.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"

	"github.com/gorilla/websocket"
)

type runEvent struct {
	Type      string  `json:"type"`
	Iteration int     `json:"iteration"`
	ElapsedMs int64   `json:"elapsedMs"`
	State     string  `json:"state"`
	Distance  float64 `json:"distance"`
	Tolerance float64 `json:"tolerance"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Submit a small coordinate instance with a short budget
	body := []byte(`{"name":"demo","instance":{"vehicles":2,"capacity":10,
		"demand":[0,3,4,2,5,3,2],"x":[0,1,2,3,-1,-2,-3],"y":[0,1,2,1,-1,-2,-1]},
		"search":{"timeoutMs":5000}}`)
	resp, err := http.Post(base+"/v1/runs", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusAccepted {
		log.Fatalf("create run: %s", resp.Status)
	}
	var run struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		log.Fatal(err)
	}
	log.Printf("Run ID: %s", run.ID)

	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/runs/" + run.ID + "/events/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	for {
		var e runEvent
		if err := c.ReadJSON(&e); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Printf("read: %v", err)
			}
			return
		}
		log.Printf("WS <- %-10s it=%d t=%dms state=%s dist=%.2f tol=%.2f",
			e.Type, e.Iteration, e.ElapsedMs, e.State, e.Distance, e.Tolerance)
	}
}
