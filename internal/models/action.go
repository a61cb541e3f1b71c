package models

// Action is one accepted client write, recorded for later replay and analysis.
type Action struct {
	SessionID int64                  `json:"session_id"`
	Actor     string                 `json:"actor"`
	Type      string                 `json:"action_type"`
	Payload   map[string]interface{} `json:"action_payload,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

// Action types recorded by the turn controller.
const (
	ActionStart = "session_start"
	ActionDeal  = "session_deal"
	ActionPlay  = "card_play"
	ActionDraw  = "card_draw"
	ActionLeave = "session_leave"
)
