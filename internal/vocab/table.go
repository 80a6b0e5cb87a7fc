package vocab

import (
	"fmt"
	"strings"
	"sync/atomic"

	"domo/internal/domain"
	"domo/internal/nlp"
)

// Table holds the inverted alias→device index and the room vocabulary. The
// whole index lives in one immutable snapshot behind an atomic pointer:
// lookups are lock-free, and Reload swaps the snapshot in one step so an
// in-flight interpretation observes either the old table in full or the new
// one in full, never a mix.
type Table struct {
	norm *nlp.Normalizer
	snap atomic.Pointer[snapshot]
}

type candidate struct {
	key      string
	room     string
	category domain.DeviceCategory
}

type multiWordAlias struct {
	alias  string
	tokens []string
	cand   candidate
}

type snapshot struct {
	devices   []domain.DeviceRecord
	exact     map[string][]candidate // full normalized alias -> devices
	gram      map[string][]candidate // skip-word-filtered alias -> devices
	partial   []multiWordAlias       // multi-word aliases, for token matches
	rooms     map[string]string      // normalized alias -> canonical room
	maxAliasN int
}

// Articles and prepositions dropped when building the n-gram index and when
// sliding windows over the utterance.
var skipWords = map[string]struct{}{
	"del": {}, "de": {}, "la": {}, "el": {}, "los": {}, "las": {},
	"un": {}, "una": {}, "unos": {}, "unas": {}, "en": {}, "al": {},
}

// Built-in room vocabulary (canonical -> surface forms), extended at reload
// time by the room records and device rooms of the snapshot.
var builtinRooms = map[string][]string{
	"sala":                  {"living", "salon", "sala de estar", "estancia", "living room", "lounge"},
	"cocina":                {"kitchen", "cocineta", "kitchenette"},
	"comedor":               {"dining", "dining room", "antecomedor"},
	"dormitorio":            {"habitacion", "cuarto", "recamara", "bedroom", "alcoba", "pieza"},
	"dormitorio_principal":  {"habitacion principal", "cuarto principal", "recamara principal", "master bedroom", "suite principal", "cuarto matrimonial"},
	"dormitorio_invitados":  {"habitacion de invitados", "cuarto de invitados", "guest room"},
	"bano":                  {"baño", "bathroom", "sanitario", "aseo", "toilette", "toilet", "wc", "lavabo"},
	"oficina":               {"office", "despacho", "estudio", "home office"},
	"garage":                {"garaje", "cochera", "parking", "estacionamiento"},
	"jardin":                {"garden", "exterior", "afuera", "quincho"},
	"terraza":               {"terrace", "azotea", "rooftop", "balcon"},
	"patio":                 {"patio trasero", "backyard", "patio delantero", "front yard"},
	"lavanderia":            {"laundry", "cuarto de lavado", "lavadero"},
	"pasillo":               {"corredor", "hallway", "hall", "vestibulo", "recibidor", "foyer"},
	"sotano":                {"basement", "subsuelo"},
	"planta_baja":           {"primer piso", "ground floor", "abajo"},
	"segundo_piso":          {"planta alta", "second floor", "arriba", "piso de arriba"},
}

func NewTable(devices []domain.DeviceRecord, rooms []domain.RoomRecord) (*Table, error) {
	t := &Table{norm: nlp.NewNormalizer()}
	if err := t.Reload(devices, rooms); err != nil {
		return nil, err
	}
	return t, nil
}

// Reload validates the snapshot and atomically swaps the whole table. On a
// malformed snapshot the previous table keeps serving and an error is
// returned; the index is never left partially applied.
func (t *Table) Reload(devices []domain.DeviceRecord, rooms []domain.RoomRecord) error {
	seen := make(map[string]struct{}, len(devices))
	for _, d := range devices {
		if strings.TrimSpace(d.DeviceKey) == "" {
			return fmt.Errorf("device with empty device_key (name=%q)", d.Name)
		}
		if _, dup := seen[d.DeviceKey]; dup {
			return fmt.Errorf("duplicate device_key %q", d.DeviceKey)
		}
		seen[d.DeviceKey] = struct{}{}
	}

	snap := t.build(devices, rooms)
	t.snap.Store(snap)
	return nil
}

// Devices returns the records of the current snapshot.
func (t *Table) Devices() []domain.DeviceRecord {
	snap := t.snap.Load()
	out := make([]domain.DeviceRecord, len(snap.devices))
	copy(out, snap.devices)
	return out
}

func (t *Table) build(devices []domain.DeviceRecord, rooms []domain.RoomRecord) *snapshot {
	snap := &snapshot{
		devices: append([]domain.DeviceRecord{}, devices...),
		exact:   make(map[string][]candidate),
		gram:    make(map[string][]candidate),
		rooms:   make(map[string]string),
	}

	for canonical, aliases := range builtinRooms {
		t.indexRoom(snap, canonical, canonical)
		for _, alias := range aliases {
			t.indexRoom(snap, alias, canonical)
		}
	}
	for _, r := range rooms {
		t.indexRoom(snap, r.RoomKey, r.RoomKey)
		if r.Name != "" {
			t.indexRoom(snap, r.Name, r.RoomKey)
		}
		for _, alias := range r.Aliases {
			t.indexRoom(snap, alias, r.RoomKey)
		}
	}

	for _, d := range devices {
		// The declared room is canonicalized through the room index so a
		// device registered in "living" compares equal to a detected "sala".
		room := d.Room
		if d.Room != "" {
			roomNorm := t.norm.Normalize(d.Room)
			if _, ok := snap.rooms[roomNorm]; !ok {
				t.indexRoom(snap, d.Room, d.Room)
			}
			if canonical, ok := snap.rooms[roomNorm]; ok {
				room = canonical
			}
		}
		cand := candidate{key: d.DeviceKey, room: room, category: d.Category}
		surfaces := append([]string{d.DeviceKey, d.Name}, d.Aliases...)
		for _, surface := range surfaces {
			t.index(snap, surface, cand)
		}
	}
	return snap
}

// indexRoom adds a room surface under its full and skip-word-filtered
// spellings, so "sala de estar" also answers to the window "sala estar".
func (t *Table) indexRoom(snap *snapshot, surface, canonical string) {
	alias := t.norm.Normalize(surface)
	if alias == "" {
		return
	}
	if _, taken := snap.rooms[alias]; !taken {
		snap.rooms[alias] = canonical
	}
	filtered := strings.Join(dropSkipWords(strings.Fields(alias)), " ")
	if filtered != "" && filtered != alias {
		if _, taken := snap.rooms[filtered]; !taken {
			snap.rooms[filtered] = canonical
		}
	}
}

// index adds one surface form under its full and skip-word-filtered spellings,
// deduplicating so a canonical key never sits redundantly next to an
// identical alias form.
func (t *Table) index(snap *snapshot, surface string, cand candidate) {
	alias := t.norm.Normalize(surface)
	if alias == "" {
		return
	}
	tokens := strings.Fields(alias)
	if len(tokens) > snap.maxAliasN {
		snap.maxAliasN = len(tokens)
	}

	snap.exact[alias] = addCandidate(snap.exact[alias], cand)

	filtered := strings.Join(dropSkipWords(tokens), " ")
	if filtered != "" {
		snap.gram[filtered] = addCandidate(snap.gram[filtered], cand)
	}
	if filtered != alias {
		snap.gram[alias] = addCandidate(snap.gram[alias], cand)
	}

	if len(tokens) > 1 {
		for _, existing := range snap.partial {
			if existing.alias == alias && existing.cand.key == cand.key {
				return
			}
		}
		snap.partial = append(snap.partial, multiWordAlias{alias: alias, tokens: tokens, cand: cand})
	}
}

func addCandidate(list []candidate, cand candidate) []candidate {
	for _, existing := range list {
		if existing.key == cand.key {
			return list
		}
	}
	return append(list, cand)
}

func dropSkipWords(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, skip := skipWords[tok]; skip {
			continue
		}
		out = append(out, tok)
	}
	return out
}
