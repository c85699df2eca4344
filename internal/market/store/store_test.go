package store

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tradepost.gg/internal/market"
	"tradepost.gg/internal/sim/items"
	"tradepost.gg/internal/sim/world"
)

func discard() *log.Logger { return log.New(io.Discard, "", 0) }

func sampleShops() []*market.Shop {
	sharp := items.New("DIAMOND_SWORD", 1, items.Modifier{ID: "SHARPNESS", Level: 3})
	return []*market.Shop{
		market.NewShop(world.Pos{World: "overworld", X: 10, Y: 64, Z: 10},
			"owner-1", "alice", items.New("DIAMOND", 1), items.New("IRON_INGOT", 10)),
		market.NewShop(world.Pos{World: "nether", X: -3, Y: 40, Z: 7},
			"owner-2", "bob", sharp, items.New("DIAMOND", 5)),
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st := New(t.TempDir(), 0, discard())
	in := sampleShops()
	if err := st.Save(in); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := st.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("loaded %d shops, want %d", len(out), len(in))
	}
	byID := make(map[string]*market.Shop, len(out))
	for _, sh := range out {
		byID[sh.ID.String()] = sh
	}
	for _, want := range in {
		got, ok := byID[want.ID.String()]
		if !ok {
			t.Fatalf("shop %s missing after reload", want.ID)
		}
		if got.Position != want.Position || got.OwnerID != want.OwnerID ||
			got.OwnerName != want.OwnerName || got.CreatedAt != want.CreatedAt {
			t.Fatalf("shop %s changed: got %+v want %+v", want.ID, got, want)
		}
		if !got.Offered.EquivalentTo(want.Offered) || got.Offered.Count != want.Offered.Count {
			t.Fatalf("offered changed: got %v want %v", got.Offered, want.Offered)
		}
		if !got.Asked.EquivalentTo(want.Asked) || got.Asked.Count != want.Asked.Count {
			t.Fatalf("asked changed: got %v want %v", got.Asked, want.Asked)
		}
	}
}

func TestLoadFreshInstall(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "never-created"), 0, discard())
	shops, err := st.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if shops != nil {
		t.Fatalf("fresh install should load nil, got %v", shops)
	}
}

func TestSaveKeepsPriorFileLoadable(t *testing.T) {
	dir := t.TempDir()
	st := New(dir, 0, discard())
	first := sampleShops()[:1]
	if err := st.Save(first); err != nil {
		t.Fatalf("save: %v", err)
	}

	// A crash mid-save leaves at worst a stale temp file next to the target.
	if err := os.WriteFile(filepath.Join(dir, fileName+tmpSuffix),
		[]byte("{torn"), 0o644); err != nil {
		t.Fatalf("write torn temp: %v", err)
	}

	shops, err := st.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(shops) != 1 || shops[0].ID != first[0].ID {
		t.Fatalf("prior save not loadable: %v", shops)
	}
}

func TestLoadFallsBackToBackupAndPromotes(t *testing.T) {
	dir := t.TempDir()
	st := New(dir, 0, discard())
	in := sampleShops()[:1]
	if err := st.Save(in); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Simulate a crash after the backup copy but before the rename finished
	// cleanly: the target is torn, the backup holds the good prior state.
	good, err := os.ReadFile(filepath.Join(dir, fileName))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, fileName+bakSuffix), good, 0o644); err != nil {
		t.Fatalf("write backup: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, fileName), []byte("{torn"), 0o644); err != nil {
		t.Fatalf("corrupt target: %v", err)
	}

	shops, err := st.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(shops) != 1 || shops[0].ID != in[0].ID {
		t.Fatalf("backup not used: %v", shops)
	}

	// The backup must have been promoted over the torn target.
	promoted, err := os.ReadFile(filepath.Join(dir, fileName))
	if err != nil {
		t.Fatalf("read promoted: %v", err)
	}
	if string(promoted) != string(good) {
		t.Fatalf("target was not restored from backup")
	}
}

func TestLoadSkipsMalformedRecords(t *testing.T) {
	dir := t.TempDir()
	st := New(dir, 0, discard())
	good := sampleShops()[:1]
	if err := st.Save(good); err != nil {
		t.Fatalf("save: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, fileName))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var recs []json.RawMessage
	if err := json.Unmarshal(raw, &recs); err != nil {
		t.Fatalf("parse: %v", err)
	}
	recs = append(recs,
		json.RawMessage(`{"id":"not-a-uuid","position":{"world":"overworld"}}`),
		json.RawMessage(`{"id":"`+good[0].ID.String()+`","position":{"world":""}}`),
		json.RawMessage(`{"id":"`+good[0].ID.String()+`","position":{"world":"overworld"},"offeredItem":{"kind":"DIRT","amount":0},"askedItem":{"kind":"DIRT","amount":1}}`),
	)
	merged, err := json.Marshal(recs)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, fileName), merged, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	shops, err := st.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(shops) != 1 {
		t.Fatalf("loaded %d shops, want the 1 valid record", len(shops))
	}
}

func TestLoadAcceptsLegacyAmountFields(t *testing.T) {
	// Older files carry the quantity only inside the item object.
	dir := t.TempDir()
	st := New(dir, 0, discard())
	rec := `[{"id":"6f1c2a34-9f4b-4c7e-9be1-0a2b3c4d5e6f",
		"position":{"world":"overworld","x":1,"y":64,"z":2},
		"ownerId":"o","ownerName":"alice",
		"offeredItem":{"kind":"DIAMOND","amount":1},
		"askedItem":{"kind":"COAL","amount":8},
		"createdAt":1700000000000}]`
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, fileName), []byte(rec), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	shops, err := st.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(shops) != 1 {
		t.Fatalf("loaded %d shops", len(shops))
	}
	if shops[0].Offered.Count != 1 || shops[0].Asked.Count != 8 {
		t.Fatalf("amounts = %v / %v", shops[0].Offered, shops[0].Asked)
	}
}

func TestSaveRemovesBackupOnSuccess(t *testing.T) {
	dir := t.TempDir()
	st := New(dir, 0, discard())
	if err := st.Save(sampleShops()[:1]); err != nil {
		t.Fatalf("save 1: %v", err)
	}
	if err := st.Save(sampleShops()); err != nil {
		t.Fatalf("save 2: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, fileName+bakSuffix)); !os.IsNotExist(err) {
		t.Fatalf("backup should be deleted after a clean save")
	}
	if _, err := os.Stat(filepath.Join(dir, fileName+tmpSuffix)); !os.IsNotExist(err) {
		t.Fatalf("temp should be gone after a clean save")
	}
}

func TestArchiveRotation(t *testing.T) {
	dir := t.TempDir()
	st := New(dir, 2, discard())
	in := sampleShops()

	for i := 0; i < 4; i++ {
		if err := st.Save(in); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		time.Sleep(2 * time.Millisecond) // distinct archive timestamps
	}

	names, err := filepath.Glob(filepath.Join(dir, archiveDir, "shops-*.json.zst"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("archives = %d, want 2", len(names))
	}

	// The newest archive decompresses to the current registry file.
	raw, err := ReadArchive(names[len(names)-1])
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	current, err := os.ReadFile(filepath.Join(dir, fileName))
	if err != nil {
		t.Fatalf("read current: %v", err)
	}
	if string(raw) != string(current) {
		t.Fatalf("archive content diverges from the registry file")
	}
}
