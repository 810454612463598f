package websocket

import "github.com/studysaathi/learning-backend/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSelect  Action = "select"
	ActionSubmit  Action = "submit"
	ActionAdvance Action = "advance"
	ActionRetry   Action = "retry"
	ActionState   Action = "state"
	ActionPing    Action = "ping"
)

// Request is any client message. OptionIndex is used by select and submit;
// submit without it answers with the current selection.
type Request struct {
	Action      Action `json:"action"`
	OptionIndex *int   `json:"option_index,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState Event = "state"
	EventError Event = "error"
	EventPong  Event = "pong"
)

// StateResponse carries the session state, either as the reply to an action
// or forwarded from the session's event channel.
type StateResponse struct {
	Event    Event                      `json:"event"`
	Source   string                     `json:"source"`
	Type     string                     `json:"type,omitempty"`
	Accepted *bool                      `json:"accepted,omitempty"`
	State    model.LearningSessionState `json:"state"`
}

// State response sources.
const (
	SourceReply   = "reply"
	SourceChannel = "channel"
)

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
