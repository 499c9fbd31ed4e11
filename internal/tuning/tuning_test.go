package tuning

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/talgya/heartweek/internal/stats"
)

func TestLoad_EmptyPathIsDefault(t *testing.T) {
	tn, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tn.Bomb.WeeksToArm != 8 || tn.Bomb.FuseWeeks != 3 || tn.Bomb.GlobalPenalty != 4 {
		t.Fatalf("bomb defaults = %+v", tn.Bomb)
	}
	if tn.MaxYear != 4 || tn.WeeksPerYear != 42 || len(tn.Cast) != 3 {
		t.Fatalf("defaults = %+v", tn)
	}
}

func TestLoad_OverridesKeepUnsetDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	raw := []byte(`
max_year: 2
bomb:
  weeks_to_arm: 3
  fuse_weeks: 2
  global_penalty: 4
cast:
  - id: npc_kai
    name: Kai
    initial_affection: 12
starting_stats:
  charm: 30
`)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tn, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tn.MaxYear != 2 || tn.WeeksPerYear != 42 {
		t.Fatalf("year knobs = %d/%d", tn.MaxYear, tn.WeeksPerYear)
	}
	if len(tn.Cast) != 1 || tn.Cast[0].ID != "npc_kai" || tn.Cast[0].InitialAffection != 12 {
		t.Fatalf("cast = %+v", tn.Cast)
	}
	st, err := tn.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st[stats.Charm] != 30 || st[stats.Stamina] != 100 {
		t.Fatalf("starting stats = %v", st)
	}
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"bad fuse":      "bomb: {weeks_to_arm: 1, fuse_weeks: 0, global_penalty: 1}",
		"unknown stat":  "starting_stats: {luck: 3}",
		"duplicate npc": "cast: [{id: a}, {id: a}]",
		"not yaml":      "max_year: [",
	}
	for name, raw := range cases {
		if _, err := Parse([]byte(raw)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit path")
	}
}
