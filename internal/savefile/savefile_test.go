package savefile

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/talgya/heartweek/internal/booking"
	"github.com/talgya/heartweek/internal/calendar"
	"github.com/talgya/heartweek/internal/engine"
	"github.com/talgya/heartweek/internal/neglect"
	"github.com/talgya/heartweek/internal/stats"
)

func sampleState() engine.State {
	art := "art_club"
	study := "study"
	return engine.State{
		Version: engine.SaveVersion,
		Date:    calendar.NewDate(3, 12, calendar.Sun),
		Phase:   calendar.PhaseSundayDay,
		Stats:   map[stats.Stat]int{stats.Art: 210, stats.Stamina: 40},
		Command: engine.CommandState{Current: &art, Previous: &study},
		Affection: map[string]int{
			"npc_max": 5,
		},
		Neglect: map[string]neglect.Record{
			"npc_max": {Weeks: 8, Armed: true, Fuse: 3},
		},
		Bookings: []booking.Entry{
			{Date: calendar.NewDate(3, 13, calendar.Sat), Booking: booking.Booking{CharacterID: "npc_max", Venue: "aquarium"}},
		},
	}
}

func TestWriteRead_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saves", "slot1.hwk")
	want := sampleState()

	h, err := Write(path, want)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if h.SaveID == "" || h.Date != want.Date || h.Phase != want.Phase {
		t.Fatalf("header = %+v", h)
	}

	gotH, got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if gotH.SaveID != h.SaveID || !gotH.CreatedAt.Equal(h.CreatedAt) {
		t.Fatalf("header mismatch: got %+v want %+v", gotH, h)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("state mismatch:\n got %+v\nwant %+v", got, want)
	}

	only, err := ReadHeader(path)
	if err != nil || only.SaveID != h.SaveID {
		t.Fatalf("ReadHeader = %+v, %v", only, err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestWrite_FreshIDEachTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slot.hwk")
	a, err := Write(path, sampleState())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	b, err := Write(path, sampleState())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if a.SaveID == b.SaveID {
		t.Fatalf("save id reused: %s", a.SaveID)
	}
}

func TestRead_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.hwk")
	if err := os.WriteFile(path, []byte("definitely not zstd"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Read(path); !errors.Is(err, ErrFormat) {
		t.Fatalf("err = %v, want ErrFormat", err)
	}
}

func TestRead_RejectsNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.hwk")
	st := sampleState()
	st.Version = engine.SaveVersion + 1
	if _, err := Write(path, st); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, _, err := Read(path); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestRead_MissingFile(t *testing.T) {
	if _, _, err := Read(filepath.Join(t.TempDir(), "nope.hwk")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v", err)
	}
}
