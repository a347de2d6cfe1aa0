package event

import "testing"

func TestEmitVisibleAfterSwap(t *testing.T) {
	b := NewBus()
	var got []MoneyEarned
	Subscribe(b, func(ev MoneyEarned) { got = append(got, ev) })

	Emit(b, MoneyEarned{PlayerID: "p1", Amount: 10})
	b.DispatchAll()
	if len(got) != 0 {
		t.Fatal("event visible before buffer swap")
	}

	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 1 || got[0].Amount != 10 {
		t.Fatalf("got %v", got)
	}

	// Already-dispatched events do not replay on the next swap.
	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 1 {
		t.Fatalf("event replayed: %v", got)
	}
}

func TestTypedRouting(t *testing.T) {
	b := NewBus()
	var money, placed int
	Subscribe(b, func(MoneyEarned) { money++ })
	Subscribe(b, func(TowerPlaced) { placed++ })

	Emit(b, MoneyEarned{})
	Emit(b, MoneyEarned{})
	Emit(b, TowerPlaced{})
	b.SwapBuffers()
	b.DispatchAll()

	if money != 2 || placed != 1 {
		t.Fatalf("money=%d placed=%d", money, placed)
	}
}

func TestMultipleHandlers(t *testing.T) {
	b := NewBus()
	var a, c int
	Subscribe(b, func(PlayerWoke) { a++ })
	Subscribe(b, func(PlayerWoke) { c++ })

	Emit(b, PlayerWoke{PlayerID: "p1"})
	b.SwapBuffers()
	b.DispatchAll()
	if a != 1 || c != 1 {
		t.Fatalf("a=%d c=%d", a, c)
	}
}
