package harness

// Trace event types.
const (
	EventSend  = "send"
	EventReply = "reply"
)

// TraceEvent is one message sent to or received from the coordinator.
type TraceEvent struct {
	Seq    int64  `json:"seq"`
	Type   string `json:"type"`             // EventSend or EventReply
	Tag    string `json:"tag,omitempty"`    // send: join, play, pile_exhausted or the raw tag
	PID    int64  `json:"pid,omitempty"`    // the player the message is from or for
	Card   string `json:"card,omitempty"`   // play, valid, invalid
	Last   bool   `json:"last,omitempty"`   // play
	Status string `json:"status,omitempty"` // reply
	Winner *int64 `json:"winner,omitempty"` // end
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expected reply arrived and every assertion held.
	Pass bool `json:"pass"`

	// Trace lists every message in the order the harness saw it.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addEvent(e TraceEvent) {
	r.Trace = append(r.Trace, e)
}
