package domain

import (
	"encoding/json"
	"time"
)

// CallbackPayload is a callback body kept field by field exactly as received.
type CallbackPayload map[string]json.RawMessage

// MerchantReference returns the payload's merchantReference, or "" when it is
// absent, null or not a string.
func (p CallbackPayload) MerchantReference() string {
	return p.String("merchantReference")
}

// String returns the named field when it holds a JSON string.
func (p CallbackPayload) String(name string) string {
	raw, ok := p[name]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Clone copies the payload so stored records cannot be changed through a caller's map.
func (p CallbackPayload) Clone() CallbackPayload {
	if p == nil {
		return nil
	}
	out := make(CallbackPayload, len(p))
	for k, v := range p {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// StatusRecord is the merchant-side view of the latest callback for a
// merchant reference. It serializes as the payload with savedAt added.
type StatusRecord struct {
	Payload CallbackPayload
	SavedAt time.Time
}

func (r StatusRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r.Payload)+1)
	for k, v := range r.Payload {
		out[k] = v
	}
	savedAt, err := json.Marshal(r.SavedAt)
	if err != nil {
		return nil, err
	}
	out["savedAt"] = savedAt
	return json.Marshal(out)
}

func (r *StatusRecord) UnmarshalJSON(data []byte) error {
	var payload CallbackPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	var savedAt time.Time
	if raw, ok := payload["savedAt"]; ok {
		if err := json.Unmarshal(raw, &savedAt); err != nil {
			return err
		}
		delete(payload, "savedAt")
	}
	r.Payload = payload
	r.SavedAt = savedAt
	return nil
}

// NotifyErrNoCallback is reported when a result has nowhere to be delivered.
const NotifyErrNoCallback = "no_callback"

// NotifyResult is the outcome of one callback delivery attempt.
type NotifyResult struct {
	Sent   bool   `json:"sent"`
	Status int    `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// StatusEvent is the message pushed to realtime subscribers.
type StatusEvent struct {
	Type    string       `json:"type"`
	Payload StatusRecord `json:"payload"`
}

// NewStatusEvent wraps a record as a "status" event.
func NewStatusEvent(rec StatusRecord) StatusEvent {
	return StatusEvent{Type: "status", Payload: rec}
}
