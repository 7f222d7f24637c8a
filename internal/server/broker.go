package server

import (
	"encoding/json"
	"sync"
)

// boardTopic is the single live board's event stream. The process hosts
// one game at a time, but the broker stays keyed so every watching
// browser (host screen, shared links) gets its own subscription.
const boardTopic = "board"

// Event is the payload published to board subscribers.
type Event struct {
	Type       string `json:"type"`
	QuestionID int    `json:"questionId,omitempty"`
	PlayerID   int    `json:"playerId,omitempty"`
	PlayerName string `json:"playerName,omitempty"`
	Points     int    `json:"points,omitempty"`
	GameID     string `json:"gameId,omitempty"`
}

// Broker is an in-process pub/sub for SSE events.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded events for topic.
func (b *Broker) Subscribe(topic string) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[chan []byte]struct{})
	}
	b.subs[topic][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the topic's subscribers.
func (b *Broker) Unsubscribe(topic string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[topic], ch)
	if len(b.subs[topic]) == 0 {
		delete(b.subs, topic)
	}
	b.mu.Unlock()
}

// Publish sends an event to all subscribers of the given topic.
func (b *Broker) Publish(topic string, event Event) {
	data, _ := json.Marshal(event)
	b.mu.RLock()
	for ch := range b.subs[topic] {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}
