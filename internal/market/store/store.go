// Package store persists the shop registry to a single JSON file with a
// temp/backup/rename dance that survives a crash at any step: after any
// completed save, a load yields either the pre-save or post-save record set,
// never a torn file.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"tradepost.gg/internal/market"
	"tradepost.gg/internal/sim/items"
	"tradepost.gg/internal/sim/world"
)

const (
	fileName  = "shops.json"
	tmpSuffix = ".tmp"
	bakSuffix = ".bak"
)

// Store is not internally synchronized: Save must have a single caller (the
// engine's saver goroutine) because concurrent saves would corrupt the
// temp/backup sequence.
type Store struct {
	dir string
	log *log.Logger

	keepArchives int
}

func New(dir string, keepArchives int, logger *log.Logger) *Store {
	return &Store{dir: dir, log: logger, keepArchives: keepArchives}
}

func (s *Store) path() string { return filepath.Join(s.dir, fileName) }
func (s *Store) tmp() string  { return s.path() + tmpSuffix }
func (s *Store) bak() string  { return s.path() + bakSuffix }

type posRecord struct {
	World string `json:"world"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Z     int    `json:"z"`
}

type itemRecord struct {
	Kind      string           `json:"kind"`
	Amount    int              `json:"amount"`
	Modifiers []items.Modifier `json:"modifiers,omitempty"`
}

type shopRecord struct {
	ID            string     `json:"id"`
	Position      posRecord  `json:"position"`
	OwnerID       string     `json:"ownerId"`
	OwnerName     string     `json:"ownerName"`
	OfferedItem   itemRecord `json:"offeredItem"`
	OfferedAmount int        `json:"offeredAmount"`
	AskedItem     itemRecord `json:"askedItem"`
	AskedAmount   int        `json:"askedAmount"`
	CreatedAt     int64      `json:"createdAt"`
}

func encodeShop(sh *market.Shop) shopRecord {
	return shopRecord{
		ID: sh.ID.String(),
		Position: posRecord{
			World: sh.Position.World,
			X:     sh.Position.X, Y: sh.Position.Y, Z: sh.Position.Z,
		},
		OwnerID:   sh.OwnerID,
		OwnerName: sh.OwnerName,
		OfferedItem: itemRecord{
			Kind: sh.Offered.Kind, Amount: sh.Offered.Count, Modifiers: sh.Offered.Mods,
		},
		OfferedAmount: sh.Offered.Count,
		AskedItem: itemRecord{
			Kind: sh.Asked.Kind, Amount: sh.Asked.Count, Modifiers: sh.Asked.Mods,
		},
		AskedAmount: sh.Asked.Count,
		CreatedAt:   sh.CreatedAt,
	}
}

func decodeShop(rec shopRecord) (*market.Shop, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return nil, fmt.Errorf("bad id %q: %w", rec.ID, err)
	}
	if rec.Position.World == "" {
		return nil, errors.New("empty world")
	}
	if rec.OfferedItem.Kind == "" || rec.AskedItem.Kind == "" {
		return nil, errors.New("empty item kind")
	}
	offeredN := rec.OfferedAmount
	if offeredN == 0 {
		offeredN = rec.OfferedItem.Amount
	}
	askedN := rec.AskedAmount
	if askedN == 0 {
		askedN = rec.AskedItem.Amount
	}
	if offeredN < 1 || askedN < 1 {
		return nil, errors.New("non-positive amount")
	}
	return &market.Shop{
		ID: id,
		Position: world.Pos{
			World: rec.Position.World,
			X:     rec.Position.X, Y: rec.Position.Y, Z: rec.Position.Z,
		},
		OwnerID:   rec.OwnerID,
		OwnerName: rec.OwnerName,
		Offered:   items.New(rec.OfferedItem.Kind, offeredN, rec.OfferedItem.Modifiers...),
		Asked:     items.New(rec.AskedItem.Kind, askedN, rec.AskedItem.Modifiers...),
		CreatedAt: rec.CreatedAt,
	}, nil
}

// Save writes the record set: temp file first, existing target copied to the
// backup, temp renamed over the target, backup deleted only after the rename
// succeeded. A failure at any step leaves the prior target intact or
// restorable from the backup.
func (s *Store) Save(shops []*market.Shop) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	recs := make([]shopRecord, 0, len(shops))
	for _, sh := range shops {
		recs = append(recs, encodeShop(sh))
	}
	raw, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return err
	}

	tmp, bak, target := s.tmp(), s.bak(), s.path()
	defer os.Remove(tmp)

	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	if _, err := os.Stat(target); err == nil {
		if err := copyFile(target, bak); err != nil {
			return fmt.Errorf("backup: %w", err)
		}
	}
	if err := os.Rename(tmp, target); err != nil {
		s.restoreBackup()
		return fmt.Errorf("rename: %w", err)
	}
	_ = os.Remove(bak)

	if err := s.archive(raw); err != nil {
		// Archives are a convenience; the registry file is already durable.
		s.log.Printf("archive shops: %v", err)
	}
	return nil
}

func (s *Store) restoreBackup() {
	bak, target := s.bak(), s.path()
	if _, err := os.Stat(target); err == nil {
		return
	}
	if _, err := os.Stat(bak); err != nil {
		return
	}
	if err := os.Rename(bak, target); err != nil {
		s.log.Printf("restore backup: %v", err)
	}
}

// Load reads the registry file, falling back to the backup when the target is
// missing or unparsable; a valid backup is promoted back to the target.
// Malformed individual records are logged and skipped, never fatal.
func (s *Store) Load() ([]*market.Shop, error) {
	shops, err := s.loadFile(s.path())
	if err == nil {
		return shops, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		if _, bakErr := os.Stat(s.bak()); errors.Is(bakErr, os.ErrNotExist) {
			return nil, nil // fresh install
		}
	} else {
		s.log.Printf("load %s: %v; trying backup", fileName, err)
	}

	shops, bakErr := s.loadFile(s.bak())
	if bakErr != nil {
		if errors.Is(err, os.ErrNotExist) && errors.Is(bakErr, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("load shops: %w (backup: %v)", err, bakErr)
	}
	// Promote the good backup so the next save has a sane starting point.
	if err := copyFile(s.bak(), s.path()); err != nil {
		s.log.Printf("promote backup: %v", err)
	}
	return shops, nil
}

func (s *Store) loadFile(path string) ([]*market.Shop, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rawRecs []json.RawMessage
	if err := json.Unmarshal(raw, &rawRecs); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	shops := make([]*market.Shop, 0, len(rawRecs))
	for i, rr := range rawRecs {
		var rec shopRecord
		if err := json.Unmarshal(rr, &rec); err != nil {
			s.log.Printf("skipping shop record %d: %v", i, err)
			continue
		}
		sh, err := decodeShop(rec)
		if err != nil {
			s.log.Printf("skipping shop record %d: %v", i, err)
			continue
		}
		shops = append(shops, sh)
	}
	return shops, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
