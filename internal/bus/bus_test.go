package bus

import (
	"context"
	"testing"
	"time"
)

func TestPublishConsume(t *testing.T) {
	b := New()
	b.PublishInbound(InboundEvent{ChannelID: "ch", ContactID: "555", Text: "hi"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ev, ok := b.ConsumeInbound(ctx)
	if !ok {
		t.Fatal("expected an event")
	}
	if ev.Key() != "ch|555" || ev.Text != "hi" {
		t.Errorf("got %+v", ev)
	}
}

func TestConsumeStopsOnCancel(t *testing.T) {
	b := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, ok := b.ConsumeInbound(ctx); ok {
		t.Fatal("want ok=false after cancel")
	}
}

func TestPublishDropsWhenFull(t *testing.T) {
	b := New()
	// Overfill the bounded queue; the excess must be dropped, not block.
	for i := 0; i < inboundBuffer+10; i++ {
		b.PublishInbound(InboundEvent{ChannelID: "ch", ContactID: "555"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := 0; i < inboundBuffer; i++ {
		if _, ok := b.ConsumeInbound(ctx); !ok {
			t.Fatalf("queue drained early at %d", i)
		}
	}

	drained, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	if _, ok := b.ConsumeInbound(drained); ok {
		t.Fatal("queue should be empty after the buffer is drained")
	}
}

func TestBroadcastFanout(t *testing.T) {
	b := New()
	var got1, got2 []string
	b.Subscribe("c1", func(ev Event) { got1 = append(got1, ev.Name) })
	b.Subscribe("c2", func(ev Event) { got2 = append(got2, ev.Name) })

	b.Broadcast(Event{Name: "lead.new"})

	if len(got1) != 1 || len(got2) != 1 {
		t.Fatalf("fanout = %v / %v", got1, got2)
	}

	b.Unsubscribe("c2")
	b.Broadcast(Event{Name: "lead.assigned"})

	if len(got1) != 2 {
		t.Errorf("c1 events = %v, want both", got1)
	}
	if len(got2) != 1 {
		t.Errorf("c2 events = %v, want none after unsubscribe", got2)
	}
}
