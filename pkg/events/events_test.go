package events

import (
	"testing"
	"time"
)

func TestAppendStampsAndRecords(t *testing.T) {
	j := NewJournal()

	before := time.Now().UTC()
	ev := j.Append(Event{Kind: KindMinted, TokenIDs: []uint64{1}, To: "0xabc"})

	if ev.ID == "" {
		t.Error("appended event should get an id")
	}
	if ev.At.Before(before) {
		t.Error("appended event should get a timestamp")
	}
	if j.Len() != 1 {
		t.Errorf("expected 1 event, got %d", j.Len())
	}

	list := j.List()
	if len(list) != 1 || list[0].Kind != KindMinted || list[0].ID != ev.ID {
		t.Errorf("unexpected journal contents: %+v", list)
	}
}

func TestListReturnsCopy(t *testing.T) {
	j := NewJournal()
	j.Append(Event{Kind: KindMinted})

	list := j.List()
	list[0].Kind = KindBurned

	if j.List()[0].Kind != KindMinted {
		t.Error("mutating the returned slice must not affect the journal")
	}
}

func TestSubscribeReceivesAppends(t *testing.T) {
	j := NewJournal()
	ch, cancel := j.Subscribe(4)
	defer cancel()

	j.Append(Event{Kind: KindTransferred, TokenIDs: []uint64{3}, Sequence: 1})

	select {
	case got := <-ch:
		if got.Kind != KindTransferred || got.Sequence != 1 {
			t.Errorf("unexpected event: %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive the event")
	}
}

func TestSubscribeFullBufferDropsNotBlocks(t *testing.T) {
	j := NewJournal()
	ch, cancel := j.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		j.Append(Event{Kind: KindMinted})
		j.Append(Event{Kind: KindBurned})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("append blocked on a full subscriber")
	}

	got := <-ch
	if got.Kind != KindMinted {
		t.Errorf("expected first event kept, got %+v", got)
	}
	select {
	case ev := <-ch:
		t.Errorf("second event should have been dropped, got %+v", ev)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	j := NewJournal()
	ch, cancel := j.Subscribe(1)

	cancel()
	if _, open := <-ch; open {
		t.Error("channel should be closed after unsubscribe")
	}

	// Appends after unsubscribe must not panic
	j.Append(Event{Kind: KindMinted})

	// Double cancel is a no-op
	cancel()
}
