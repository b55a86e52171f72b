package engine

import "testing"

func TestMasterQueueOrdersByDeliveryTimeThenSequence(t *testing.T) {
	mq := newMasterQueue()

	e1 := NewEngineEvent(10, noHost, "a")
	e1.sequenceNumber = 2
	e2 := NewEngineEvent(10, noHost, "b")
	e2.sequenceNumber = 1
	e3 := NewEngineEvent(5, noHost, "c")
	e3.sequenceNumber = 99

	mq.push(e1)
	mq.push(e2)
	mq.push(e3)

	drained := mq.drainBefore(11)
	if len(drained) != 3 {
		t.Fatalf("drainBefore(11) returned %d events, want 3", len(drained))
	}
	want := []string{"c", "b", "a"}
	for i, ev := range drained {
		got := ev.Payload().(string)
		if got != want[i] {
			t.Errorf("drained[%d] = %q, want %q", i, got, want[i])
		}
	}
}

func TestMasterQueueDrainBeforeIsExclusive(t *testing.T) {
	mq := newMasterQueue()
	mq.push(NewEngineEvent(100, noHost, "at-100"))

	if drained := mq.drainBefore(100); len(drained) != 0 {
		t.Errorf("drainBefore(100) should not include an event at exactly 100, got %d", len(drained))
	}
	if drained := mq.drainBefore(101); len(drained) != 1 {
		t.Errorf("drainBefore(101) should include the event at 100, got %d", len(drained))
	}
}

func TestMasterQueueLen(t *testing.T) {
	mq := newMasterQueue()
	if mq.len() != 0 {
		t.Fatalf("new queue len = %d, want 0", mq.len())
	}
	mq.push(NewEngineEvent(1, noHost, "x"))
	if mq.len() != 1 {
		t.Errorf("len after push = %d, want 1", mq.len())
	}
}
