// Package grammarcache persists a side-car index of a loaded grammar's
// nonterminal group boundaries, so that reopening the same grammar
// directory does not repeat the byte-by-byte group-boundary scan over
// every terminal file. The index is written as
// "<grammar-dir>/.guesscalc-index.msgp" and is invalidated whenever a
// terminal file's content no longer matches its recorded fingerprint.
//
// Marshaling is hand-written against the low-level msgp.AppendXxx /
// msgp.ReadXxxBytes primitives rather than struct-tag codegen: the
// record shapes here are internal and few, and writing them directly
// keeps this package dependency-free of `go generate` tooling.
package grammarcache

import "github.com/tinylib/msgp/msgp"

// LineRecord is one seen-terminal line's byte offset within its
// nonterminal's mapped file.
type LineRecord struct {
	Start int64
}

// SeenGroupRecord caches one Seen TerminalGroup's probability and the
// offsets of the lines it spans.
type SeenGroupRecord struct {
	Probability float64
	Lines       []LineRecord
}

// UnseenGroupRecord caches one Unseen TerminalGroup's probability and
// the generator masks of the entries it bundles.
type UnseenGroupRecord struct {
	Probability float64
	Masks       []string
}

// NonterminalRecord is the cached group layout for one terminal file,
// keyed by file stem and guarded by a content fingerprint.
type NonterminalRecord struct {
	FileStem    string
	Fingerprint uint64
	Seen        []SeenGroupRecord
	Unseen      []UnseenGroupRecord

	// SeenBeforeUnseen records whether a Seen or Unseen group record came first in
	// file order, since Seen and Unseen are stored in separate slices
	// above but the terminal file format always groups every Seen line
	// before every Unseen line — recorded explicitly so readers don't
	// have to assume it.
	SeenBeforeUnseen bool
}

// Index is the full side-car cache for one grammar directory.
type Index struct {
	Nonterminals []NonterminalRecord
}

// MarshalMsg appends the msgpack encoding of idx to b.
func (idx *Index) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendArrayHeader(b, uint32(len(idx.Nonterminals)))
	for i := range idx.Nonterminals {
		b = idx.Nonterminals[i].appendMsg(b)
	}
	return b, nil
}

// UnmarshalMsg decodes idx from b, returning unconsumed bytes.
func (idx *Index) UnmarshalMsg(b []byte) ([]byte, error) {
	sz, o, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return b, err
	}
	idx.Nonterminals = make([]NonterminalRecord, sz)
	for i := uint32(0); i < sz; i++ {
		o, err = idx.Nonterminals[i].readMsg(o)
		if err != nil {
			return o, err
		}
	}
	return o, nil
}

func (r *NonterminalRecord) appendMsg(b []byte) []byte {
	b = msgp.AppendMapHeader(b, 5)

	b = msgp.AppendString(b, "stem")
	b = msgp.AppendString(b, r.FileStem)

	b = msgp.AppendString(b, "fp")
	b = msgp.AppendUint64(b, r.Fingerprint)

	b = msgp.AppendString(b, "order")
	b = msgp.AppendBool(b, r.SeenBeforeUnseen)

	b = msgp.AppendString(b, "seen")
	b = msgp.AppendArrayHeader(b, uint32(len(r.Seen)))
	for i := range r.Seen {
		b = r.Seen[i].appendMsg(b)
	}

	b = msgp.AppendString(b, "unseen")
	b = msgp.AppendArrayHeader(b, uint32(len(r.Unseen)))
	for i := range r.Unseen {
		b = r.Unseen[i].appendMsg(b)
	}
	return b
}

func (r *NonterminalRecord) readMsg(b []byte) ([]byte, error) {
	sz, o, err := msgp.ReadMapHeaderBytes(b)
	if err != nil {
		return b, err
	}
	for i := uint32(0); i < sz; i++ {
		var key string
		key, o, err = msgp.ReadStringBytes(o)
		if err != nil {
			return o, err
		}
		switch key {
		case "stem":
			r.FileStem, o, err = msgp.ReadStringBytes(o)
		case "fp":
			r.Fingerprint, o, err = msgp.ReadUint64Bytes(o)
		case "order":
			r.SeenBeforeUnseen, o, err = msgp.ReadBoolBytes(o)
		case "seen":
			var n uint32
			n, o, err = msgp.ReadArrayHeaderBytes(o)
			if err != nil {
				return o, err
			}
			r.Seen = make([]SeenGroupRecord, n)
			for i := uint32(0); i < n && err == nil; i++ {
				o, err = r.Seen[i].readMsg(o)
			}
		case "unseen":
			var n uint32
			n, o, err = msgp.ReadArrayHeaderBytes(o)
			if err != nil {
				return o, err
			}
			r.Unseen = make([]UnseenGroupRecord, n)
			for i := uint32(0); i < n && err == nil; i++ {
				o, err = r.Unseen[i].readMsg(o)
			}
		default:
			o, err = msgp.Skip(o)
		}
		if err != nil {
			return o, err
		}
	}
	return o, nil
}

func (g *SeenGroupRecord) appendMsg(b []byte) []byte {
	b = msgp.AppendMapHeader(b, 2)
	b = msgp.AppendString(b, "p")
	b = msgp.AppendFloat64(b, g.Probability)
	b = msgp.AppendString(b, "lines")
	b = msgp.AppendArrayHeader(b, uint32(len(g.Lines)))
	for _, ln := range g.Lines {
		b = msgp.AppendInt64(b, ln.Start)
	}
	return b
}

func (g *SeenGroupRecord) readMsg(b []byte) ([]byte, error) {
	sz, o, err := msgp.ReadMapHeaderBytes(b)
	if err != nil {
		return b, err
	}
	for i := uint32(0); i < sz; i++ {
		var key string
		key, o, err = msgp.ReadStringBytes(o)
		if err != nil {
			return o, err
		}
		switch key {
		case "p":
			g.Probability, o, err = msgp.ReadFloat64Bytes(o)
		case "lines":
			var n uint32
			n, o, err = msgp.ReadArrayHeaderBytes(o)
			if err != nil {
				return o, err
			}
			g.Lines = make([]LineRecord, n)
			for i := uint32(0); i < n && err == nil; i++ {
				g.Lines[i].Start, o, err = msgp.ReadInt64Bytes(o)
			}
		default:
			o, err = msgp.Skip(o)
		}
		if err != nil {
			return o, err
		}
	}
	return o, nil
}

func (g *UnseenGroupRecord) appendMsg(b []byte) []byte {
	b = msgp.AppendMapHeader(b, 2)
	b = msgp.AppendString(b, "p")
	b = msgp.AppendFloat64(b, g.Probability)
	b = msgp.AppendString(b, "masks")
	b = msgp.AppendArrayHeader(b, uint32(len(g.Masks)))
	for _, m := range g.Masks {
		b = msgp.AppendString(b, m)
	}
	return b
}

func (g *UnseenGroupRecord) readMsg(b []byte) ([]byte, error) {
	sz, o, err := msgp.ReadMapHeaderBytes(b)
	if err != nil {
		return b, err
	}
	for i := uint32(0); i < sz; i++ {
		var key string
		key, o, err = msgp.ReadStringBytes(o)
		if err != nil {
			return o, err
		}
		switch key {
		case "p":
			g.Probability, o, err = msgp.ReadFloat64Bytes(o)
		case "masks":
			var n uint32
			n, o, err = msgp.ReadArrayHeaderBytes(o)
			if err != nil {
				return o, err
			}
			g.Masks = make([]string, n)
			for i := uint32(0); i < n && err == nil; i++ {
				g.Masks[i], o, err = msgp.ReadStringBytes(o)
			}
		default:
			o, err = msgp.Skip(o)
		}
		if err != nil {
			return o, err
		}
	}
	return o, nil
}
