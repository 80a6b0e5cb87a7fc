package vocab

import (
	"sync"
	"testing"

	"domo/internal/domain"
)

func testDevices() []domain.DeviceRecord {
	return []domain.DeviceRecord{
		{
			DeviceKey: "luz_sala",
			Name:      "Luz de la sala",
			Category:  domain.CategoryLight,
			Room:      "sala",
			Aliases:   []string{"luz", "lampara de la sala"},
		},
		{
			DeviceKey: "luz_comedor",
			Name:      "Luz del comedor",
			Category:  domain.CategoryLight,
			Room:      "comedor",
			Aliases:   []string{"luz", "luz del comedor"},
		},
		{
			DeviceKey: "ventilador_sala",
			Name:      "Ventilador de la sala",
			Category:  domain.CategoryFan,
			Room:      "sala",
			Aliases:   []string{"ventilador de la sala"},
		},
		{
			DeviceKey: "puerta_garage",
			Name:      "Puerta del garage",
			Category:  domain.CategoryDoor,
			Room:      "garage",
			Aliases:   []string{"porton"},
		},
	}
}

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	table, err := NewTable(testDevices(), nil)
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	return NewResolver(table)
}

func TestMatchExact(t *testing.T) {
	r := newTestResolver(t)

	got := r.Match("enciende la luz del comedor")
	if got.DeviceKey != "luz_comedor" {
		t.Fatalf("device = %q, want luz_comedor", got.DeviceKey)
	}
	if got.Strategy != domain.StrategyExact || got.Confidence != 0.95 {
		t.Fatalf("strategy=%s confidence=%v, want exact 0.95", got.Strategy, got.Confidence)
	}
}

func TestMatchExactSingleWordAlias(t *testing.T) {
	r := newTestResolver(t)

	got := r.Match("abre el porton")
	if got.DeviceKey != "puerta_garage" || got.Strategy != domain.StrategyExact {
		t.Fatalf("got %q via %s, want puerta_garage via exact", got.DeviceKey, got.Strategy)
	}
}

func TestMatchNGramDropsParticles(t *testing.T) {
	r := newTestResolver(t)

	// "lampara sala" is not a registered surface form; the particle-free
	// window matches "lampara de la sala".
	got := r.Match("prende la lampara sala")
	if got.DeviceKey != "luz_sala" {
		t.Fatalf("device = %q, want luz_sala", got.DeviceKey)
	}
	if got.Strategy != domain.StrategyNGram || got.Confidence != 0.85 {
		t.Fatalf("strategy=%s confidence=%v, want ngram 0.85", got.Strategy, got.Confidence)
	}
}

func TestMatchPartialToken(t *testing.T) {
	r := newTestResolver(t)

	got := r.Match("apaga el ventilador")
	if got.DeviceKey != "ventilador_sala" {
		t.Fatalf("device = %q, want ventilador_sala", got.DeviceKey)
	}
	if got.Strategy != domain.StrategyPartial || got.Confidence != 0.70 {
		t.Fatalf("strategy=%s confidence=%v, want partial 0.70", got.Strategy, got.Confidence)
	}
}

func TestRoomOverridesRegistrationOrder(t *testing.T) {
	r := newTestResolver(t)

	// Bare "luz" belongs to both rooms; without a room the first registered
	// device wins, with a room the co-located device wins.
	bare := r.Match("enciende la luz")
	if bare.DeviceKey != "luz_sala" {
		t.Fatalf("bare alias = %q, want luz_sala (registration order)", bare.DeviceKey)
	}

	scoped := r.Match("enciende la luz en el comedor")
	if scoped.DeviceKey != "luz_comedor" {
		t.Fatalf("room-scoped alias = %q, want luz_comedor", scoped.DeviceKey)
	}
	if scoped.Room != "comedor" {
		t.Fatalf("room = %q, want comedor", scoped.Room)
	}
}

func TestRoomOverrideCanonicalizesDeclaredRoom(t *testing.T) {
	// "living" is a synonym of "sala" in the room vocabulary. A device
	// declared in "living" must still win a match scoped to that room even
	// though detection reports the canonical name.
	table, err := NewTable([]domain.DeviceRecord{
		{DeviceKey: "luz_cocina", Name: "Luz uno", Category: domain.CategoryLight, Room: "cocina", Aliases: []string{"luz"}},
		{DeviceKey: "luz_living", Name: "Luz dos", Category: domain.CategoryLight, Room: "living", Aliases: []string{"luz"}},
	}, nil)
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	r := NewResolver(table)

	got := r.Match("enciende la luz del living")
	if got.DeviceKey != "luz_living" {
		t.Fatalf("device = %q (room %q), want luz_living", got.DeviceKey, got.Room)
	}
	if got.Room != "sala" {
		t.Fatalf("room = %q, want the canonical sala", got.Room)
	}

	scoped := r.Match("apaga la luz de la sala")
	if scoped.DeviceKey != "luz_living" {
		t.Fatalf("canonical room reference resolved %q, want luz_living", scoped.DeviceKey)
	}
}

func TestMatchRoomAliases(t *testing.T) {
	r := newTestResolver(t)

	room, ok := r.MatchRoom("apaga todo en el living")
	if !ok || room != "sala" {
		t.Fatalf("MatchRoom living = (%q,%v), want (sala,true)", room, ok)
	}
	room, ok = r.MatchRoom("cierra la sala de estar")
	if !ok || room != "sala" {
		t.Fatalf("MatchRoom multi-word = (%q,%v), want (sala,true)", room, ok)
	}
	if _, ok := r.MatchRoom("enciende algo"); ok {
		t.Fatalf("MatchRoom matched where no room is referenced")
	}
}

func TestMatchNothing(t *testing.T) {
	r := newTestResolver(t)

	got := r.Match("pon musica tranquila")
	if got.DeviceKey != "" || got.Confidence != 0 || got.Strategy != domain.StrategyNone {
		t.Fatalf("expected empty match, got %+v", got)
	}
}

func TestReloadSwapsVocabulary(t *testing.T) {
	table, err := NewTable(testDevices(), nil)
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	r := NewResolver(table)

	err = table.Reload([]domain.DeviceRecord{
		{DeviceKey: "persiana_cocina", Name: "Persiana de la cocina", Category: domain.CategoryCurtain, Room: "cocina", Aliases: []string{"persiana"}},
	}, nil)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	if got := r.Match("sube la persiana"); got.DeviceKey != "persiana_cocina" {
		t.Fatalf("new vocabulary not visible, got %q", got.DeviceKey)
	}
	if got := r.Match("abre el porton"); got.DeviceKey != "" {
		t.Fatalf("old vocabulary still visible, got %q", got.DeviceKey)
	}
}

func TestReloadConcurrentWithMatches(t *testing.T) {
	genA := []domain.DeviceRecord{
		{DeviceKey: "luz_vieja", Name: "Luz antigua", Category: domain.CategoryLight, Room: "sala", Aliases: []string{"luz"}},
	}
	genB := []domain.DeviceRecord{
		{DeviceKey: "luz_nueva", Name: "Luz nueva", Category: domain.CategoryLight, Room: "sala", Aliases: []string{"luz"}},
	}

	table, err := NewTable(genA, nil)
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	r := NewResolver(table)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	errCh := make(chan string, 1)

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				got := r.Match("enciende la luz")
				// Every read must land on a complete snapshot: one of the
				// two generations, never empty, never a blend.
				if got.DeviceKey != "luz_vieja" && got.DeviceKey != "luz_nueva" {
					select {
					case errCh <- got.DeviceKey:
					default:
					}
					return
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		gen := genA
		if i%2 == 0 {
			gen = genB
		}
		if err := table.Reload(gen, nil); err != nil {
			t.Fatalf("Reload failed: %v", err)
		}
	}
	close(stop)
	wg.Wait()

	select {
	case key := <-errCh:
		t.Fatalf("reader observed inconsistent snapshot, device = %q", key)
	default:
	}
}

func TestReloadRejectsBadSnapshotKeepsOld(t *testing.T) {
	table, err := NewTable(testDevices(), nil)
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	r := NewResolver(table)

	if err := table.Reload([]domain.DeviceRecord{
		{DeviceKey: "luz_sala", Name: "a"},
		{DeviceKey: "luz_sala", Name: "b"},
	}, nil); err == nil {
		t.Fatalf("Reload accepted duplicate device_key")
	}
	if err := table.Reload([]domain.DeviceRecord{{DeviceKey: "  ", Name: "anon"}}, nil); err == nil {
		t.Fatalf("Reload accepted empty device_key")
	}

	if got := r.Match("abre el porton"); got.DeviceKey != "puerta_garage" {
		t.Fatalf("previous vocabulary lost after rejected reload, got %q", got.DeviceKey)
	}
}
