package grammarcache

import (
	"os"
	"path/filepath"

	"github.com/OneOfOne/xxhash"
	"github.com/pkg/errors"
)

// FileName is the side-car index's name within a grammar directory.
const FileName = ".guesscalc-index.msgp"

// Fingerprint hashes a terminal file's contents for cache invalidation.
func Fingerprint(data []byte) uint64 {
	return xxhash.Checksum64(data)
}

// Load reads the side-car index for a grammar directory. A missing
// file is not an error: it returns an empty Index, since a grammar
// directory is perfectly usable without one (the cache is purely an
// accelerator).
func Load(dir string) (*Index, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if os.IsNotExist(err) {
		return &Index{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "grammarcache: reading index")
	}
	idx := &Index{}
	if _, err := idx.UnmarshalMsg(data); err != nil {
		// A corrupt or foreign-format index is treated the same as a
		// missing one: callers fall back to a full parse.
		return &Index{}, nil
	}
	return idx, nil
}

// Save writes idx to dir's side-car index file.
func Save(dir string, idx *Index) error {
	b, err := idx.MarshalMsg(nil)
	if err != nil {
		return errors.Wrap(err, "grammarcache: encoding index")
	}
	path := filepath.Join(dir, FileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return errors.Wrap(err, "grammarcache: writing index")
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrap(err, "grammarcache: installing index")
	}
	return nil
}

// Find returns the record for fileStem, or nil if absent.
func (idx *Index) Find(fileStem string) *NonterminalRecord {
	for i := range idx.Nonterminals {
		if idx.Nonterminals[i].FileStem == fileStem {
			return &idx.Nonterminals[i]
		}
	}
	return nil
}

// Put replaces (or adds) the record for rec.FileStem.
func (idx *Index) Put(rec NonterminalRecord) {
	for i := range idx.Nonterminals {
		if idx.Nonterminals[i].FileStem == rec.FileStem {
			idx.Nonterminals[i] = rec
			return
		}
	}
	idx.Nonterminals = append(idx.Nonterminals, rec)
}
