package api

import (
	"encoding/json"
	"net/http"
)

// Problem type URIs for failures a client can act on. Anything else is
// reported as about:blank.
const (
	problemInvalidRequest  = "/problems/invalid-run-request"
	problemInvalidInstance = "/problems/invalid-instance"
	problemInfeasible      = "/problems/insufficient-fleet"
	problemRunNotFound     = "/problems/run-not-found"
	problemRequestTooLarge = "/problems/request-too-large"
	problemUnauthorized    = "/problems/unauthorized"
)

// Problem is an RFC 7807 body. RunID is an extension member set when the
// failure concerns a specific run.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	RunID    string `json:"runId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	sendProblem(w, Problem{Type: "about:blank", Title: title, Status: status, Detail: detail, Instance: instance})
}

// writeTypedProblem is writeProblem with a problem type from the list above.
func writeTypedProblem(w http.ResponseWriter, typ string, status int, title, detail, instance string) {
	sendProblem(w, Problem{Type: typ, Title: title, Status: status, Detail: detail, Instance: instance})
}

func sendProblem(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}
