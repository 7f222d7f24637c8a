package server

import "testing"

func TestOpenAPISpecBuilds(t *testing.T) {
	spec := newOpenAPISpec()

	if spec.Info.Title != "TriviaBoard API" {
		t.Errorf("unexpected title %q", spec.Info.Title)
	}

	for _, path := range []string{
		"/healthz", "/api/unlock", "/api/game/state",
		"/api/game/select", "/api/game/close", "/api/game/award",
		"/api/game/save", "/api/game/new",
	} {
		if _, ok := spec.Paths.MapOfPathItemValues[path]; !ok {
			t.Errorf("path %s missing from the spec", path)
		}
	}
}

func TestBrokerDeliversAndDrops(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe(boardTopic)
	defer b.Unsubscribe(boardTopic, ch)

	b.Publish(boardTopic, Event{Type: "question_opened", QuestionID: 7})

	select {
	case data := <-ch:
		if len(data) == 0 {
			t.Error("expected a JSON payload")
		}
	default:
		t.Fatal("expected a buffered event")
	}

	// A full subscriber is skipped, not blocked on.
	for i := 0; i < 40; i++ {
		b.Publish(boardTopic, Event{Type: "board_updated"})
	}
}
