package queue

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryPublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	want := Message{Type: "validation", Body: []byte(`{"lesson_id":"abc"}`)}
	if err := q.Publish(ctx, want); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	out, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}

	select {
	case got := <-out:
		if got.Type != want.Type || string(got.Body) != string(want.Body) {
			t.Errorf("got %+v, want %+v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestInMemoryPublishCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewInMemory(0)
	cancel()
	if err := q.Publish(ctx, Message{Type: "validation"}); err == nil {
		t.Error("Publish() on cancelled context, want error")
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{name: "typed", msg: Message{Type: "validation", Body: []byte("payload")}},
		{name: "body with separator", msg: Message{Type: "validation", Body: []byte(`{"a":"b|c"}`)}},
		{name: "empty body", msg: Message{Type: "validation", Body: []byte("")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := deserialize(serialize(tt.msg))
			if got.Type != tt.msg.Type || string(got.Body) != string(tt.msg.Body) {
				t.Errorf("round trip = %+v, want %+v", got, tt.msg)
			}
		})
	}
}
