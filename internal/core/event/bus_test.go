package event

import "testing"

func TestBusDeliversNextTick(t *testing.T) {
	b := NewBus()
	var got []BulletFired
	Subscribe(b, func(ev BulletFired) { got = append(got, ev) })

	Emit(b, BulletFired{ShipID: 1, BulletID: 2})
	if Pending[BulletFired](b) != 1 {
		t.Fatalf("pending = %d, want 1", Pending[BulletFired](b))
	}
	b.DispatchAll()
	if len(got) != 0 {
		t.Fatal("event delivered before swap")
	}

	b.SwapBuffers()
	if n := b.DispatchAll(); n != 1 {
		t.Errorf("dispatched %d, want 1", n)
	}
	if len(got) != 1 || got[0].BulletID != 2 {
		t.Errorf("got %+v", got)
	}

	// Second swap empties the front buffer.
	b.SwapBuffers()
	if n := b.DispatchAll(); n != 0 {
		t.Errorf("redispatched %d events", n)
	}
}

func TestEmitNilBus(t *testing.T) {
	Emit[EntityTerminated](nil, EntityTerminated{EntityID: 1})
}
