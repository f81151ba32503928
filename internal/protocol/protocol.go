// Package protocol defines the message tags and payloads exchanged between
// the coordinator and the players over the mailbox.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/cardstack/internal/card"
)

// Tags addressed to the coordinator. Every other tag is a player id.
const (
	TagJoin          int64 = 1
	TagPileExhausted int64 = 3
	TagPlay          int64 = 4
)

// ControlTags lists the tags the coordinator listens on.
var ControlTags = []int64{TagJoin, TagPileExhausted, TagPlay}

// ErrMalformed wraps every decoding and validation failure.
var ErrMalformed = errors.New("malformed message")

// PileExhaustedMarker is the payload sent on TagPileExhausted.
var PileExhaustedMarker = []byte("empty")

// ValidPlayerID reports whether pid can serve as a private reply tag.
func ValidPlayerID(pid int64) bool {
	return pid > TagPlay
}

// Join asks the coordinator for a seat.
type Join struct {
	PID int64 `json:"pid"`
}

// Play submits a card for adjudication.
type Play struct {
	Card       card.Card `json:"card"`
	IsLastCard bool      `json:"is_last_card"`
	PID        int64     `json:"pid"`
}

// Status is the kind of a private reply.
type Status string

const (
	StatusJoined   Status = "joined"
	StatusRejected Status = "rejected"
	StatusValid    Status = "valid"
	StatusInvalid  Status = "invalid"
	StatusEnd      Status = "end"
)

// Reply is every message the coordinator sends on a player's private tag.
// Card is set for valid and invalid; Winner is set for end when a player won.
type Reply struct {
	Status Status     `json:"status"`
	Card   *card.Card `json:"card,omitempty"`
	Winner *int64     `json:"winner,omitempty"`
}

// Joined returns the reply to an accepted join.
func Joined() Reply { return Reply{Status: StatusJoined} }

// Rejected returns the reply to a join while the lobby is full.
func Rejected() Reply { return Reply{Status: StatusRejected} }

// Valid returns the reply to an accepted play.
func Valid(c card.Card) Reply { return Reply{Status: StatusValid, Card: &c} }

// Invalid returns the reply to a rejected play; the card goes back to the
// player.
func Invalid(c card.Card) Reply { return Reply{Status: StatusInvalid, Card: &c} }

// End returns the game-end broadcast. A nil winner means nobody won.
func End(winner *int64) Reply { return Reply{Status: StatusEnd, Winner: winner} }

// Encode marshals a payload.
func Encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return b, nil
}

// DecodeJoin parses and validates a join payload.
func DecodeJoin(b []byte) (Join, error) {
	var j Join
	if err := json.Unmarshal(b, &j); err != nil {
		return Join{}, fmt.Errorf("%w: join: %v", ErrMalformed, err)
	}
	if !ValidPlayerID(j.PID) {
		return Join{}, fmt.Errorf("%w: join: player id %d is reserved", ErrMalformed, j.PID)
	}
	return j, nil
}

// DecodePlay parses and validates a play payload.
func DecodePlay(b []byte) (Play, error) {
	var p Play
	if err := json.Unmarshal(b, &p); err != nil {
		return Play{}, fmt.Errorf("%w: play: %v", ErrMalformed, err)
	}
	if !ValidPlayerID(p.PID) {
		return Play{}, fmt.Errorf("%w: play: player id %d is reserved", ErrMalformed, p.PID)
	}
	if err := p.Card.Validate(); err != nil {
		return Play{}, fmt.Errorf("%w: play: %v", ErrMalformed, err)
	}
	return p, nil
}

// DecodeReply parses and validates a private reply.
func DecodeReply(b []byte) (Reply, error) {
	var r Reply
	if err := json.Unmarshal(b, &r); err != nil {
		return Reply{}, fmt.Errorf("%w: reply: %v", ErrMalformed, err)
	}
	switch r.Status {
	case StatusJoined, StatusRejected, StatusEnd:
	case StatusValid, StatusInvalid:
		if r.Card == nil {
			return Reply{}, fmt.Errorf("%w: reply: %s without card", ErrMalformed, r.Status)
		}
		if err := r.Card.Validate(); err != nil {
			return Reply{}, fmt.Errorf("%w: reply: %v", ErrMalformed, err)
		}
	default:
		return Reply{}, fmt.Errorf("%w: reply: unknown status %q", ErrMalformed, r.Status)
	}
	return r, nil
}
