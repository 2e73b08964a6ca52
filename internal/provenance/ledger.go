// Package provenance keeps a simulated blockchain audit trail of supply-chain
// events. Hashes are fabricated locally (sha256 chained over canonical JSON);
// there is no consensus, signing, or external network.
package provenance

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

const genesisHash = "0x" + "0000000000000000000000000000000000000000000000000000000000000000"

// Event is one link in the chain.
type Event struct {
	Index        int            `json:"index"`
	EventType    string         `json:"event_type"`
	Payload      map[string]any `json:"payload"`
	Timestamp    string         `json:"timestamp"`
	PreviousHash string         `json:"previous_hash"`
	Hash         string         `json:"hash"`
}

// Ledger is an append-only in-memory chain.
type Ledger struct {
	mu     sync.Mutex
	events []Event
}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Record appends an event, chaining its hash to the previous one. The
// payload is canonicalized through JSON marshaling (sorted keys) before
// hashing so equal payloads always hash equally.
func (l *Ledger) Record(eventType string, payload map[string]any) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("canonicalize payload: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	prev := genesisHash
	if n := len(l.events); n > 0 {
		prev = l.events[n-1].Hash
	}
	event := Event{
		Index:        len(l.events),
		EventType:    eventType,
		Payload:      payload,
		Timestamp:    time.Now().UTC().Format(time.RFC3339Nano),
		PreviousHash: prev,
	}
	event.Hash = chainHash(prev, eventType, event.Timestamp, body)
	l.events = append(l.events, event)
	return event, nil
}

// Events returns a copy of the chain, oldest first, capped at limit when
// limit is positive.
func (l *Ledger) Events(limit int) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	events := l.events
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	out := make([]Event, len(events))
	copy(out, events)
	return out
}

// Verify walks the chain and recomputes every hash. It reports the first
// index whose stored hash or back-link no longer matches, or -1 when the
// chain is intact.
func (l *Ledger) Verify() (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := genesisHash
	for i, event := range l.events {
		if event.PreviousHash != prev {
			return i, false
		}
		body, err := json.Marshal(event.Payload)
		if err != nil {
			return i, false
		}
		if chainHash(event.PreviousHash, event.EventType, event.Timestamp, body) != event.Hash {
			return i, false
		}
		prev = event.Hash
	}
	return -1, true
}

// Len reports the chain length.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

func chainHash(prev, eventType, timestamp string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(prev))
	h.Write([]byte(eventType))
	h.Write([]byte(timestamp))
	h.Write(body)
	return "0x" + hex.EncodeToString(h.Sum(nil))
}
