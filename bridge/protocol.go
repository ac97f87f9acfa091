package bridge

import (
	"time"

	"github.com/soocke/herbscan/domain/scan"
)

// Event types pushed over /ws.
const (
	EventPhase  = "phase"
	EventResult = "result"
	EventError  = "error"
	EventDevice = "device"
)

// Event is one message on the WebSocket stream. Fields not relevant to
// Type are omitted.
type Event struct {
	Type      string    `json:"type"`
	Cycle     string    `json:"cycle,omitempty"`
	Phase     string    `json:"phase,omitempty"`
	Prev      string    `json:"prev,omitempty"`
	Text      string    `json:"text,omitempty"`
	URL       string    `json:"url,omitempty"`
	Kind      string    `json:"kind,omitempty"`
	Message   string    `json:"message,omitempty"`
	Retryable bool      `json:"retryable,omitempty"`
	Op        string    `json:"op,omitempty"`
	Path      string    `json:"path,omitempty"`
	Time      time.Time `json:"time"`
}

// ErrorBody describes the failure of the current cycle.
type ErrorBody struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// StatsBody mirrors scan.Stats with string keys.
type StatsBody struct {
	Opens     uint64            `json:"opens"`
	Results   uint64            `json:"results"`
	Fallbacks uint64            `json:"fallbacks"`
	Passes    uint64            `json:"passes"`
	Failures  map[string]uint64 `json:"failures"`
}

// Status is the body of GET /api/scan/status and of the open/close replies.
type Status struct {
	Phase  string     `json:"phase"`
	Cycle  string     `json:"cycle,omitempty"`
	Result string     `json:"result,omitempty"`
	URL    string     `json:"url,omitempty"`
	Error  *ErrorBody `json:"error,omitempty"`
	Stats  StatsBody  `json:"stats"`
}

func errorBody(d scan.ErrorDetail) *ErrorBody {
	return &ErrorBody{Kind: d.Kind.String(), Message: d.Message, Retryable: d.Retryable()}
}

func statsBody(st scan.Stats) StatsBody {
	out := StatsBody{
		Opens:     st.Opens,
		Results:   st.Results,
		Fallbacks: st.Fallbacks,
		Passes:    st.Passes,
		Failures:  make(map[string]uint64, len(st.Failures)),
	}
	for k, n := range st.Failures {
		if n > 0 {
			out.Failures[k.String()] = n
		}
	}
	return out
}
