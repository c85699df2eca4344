package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/zstd"
)

const archiveDir = "archives"

// archive writes a zstd-compressed copy of a just-saved registry file and
// prunes old ones down to keepArchives. Rotated archives are a recovery
// convenience beyond the .bak file, not part of the durability contract.
func (s *Store) archive(raw []byte) error {
	if s.keepArchives <= 0 {
		return nil
	}
	dir := filepath.Join(s.dir, archiveDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	name := fmt.Sprintf("shops-%d.json.zst", time.Now().UnixMilli())
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		f.Close()
		return err
	}
	if _, err := enc.Write(raw); err != nil {
		enc.Close()
		f.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return s.pruneArchives(dir)
}

func (s *Store) pruneArchives(dir string) error {
	names, err := filepath.Glob(filepath.Join(dir, "shops-*.json.zst"))
	if err != nil {
		return err
	}
	if len(names) <= s.keepArchives {
		return nil
	}
	sort.Strings(names) // timestamps in the name sort oldest first
	for _, name := range names[:len(names)-s.keepArchives] {
		if err := os.Remove(name); err != nil {
			return err
		}
	}
	return nil
}

// ReadArchive decompresses one rotated archive (admin tooling and tests).
func ReadArchive(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(raw, nil)
}
