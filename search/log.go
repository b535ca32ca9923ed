package search

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"mfmodell/reduction"
)

type digest [32]byte

// apDigest hashes an ap list with SHAKE-256 under a fixed label. The
// length goes in first so lists of different precision never share a
// preimage.
func apDigest(ap []uint64) digest {
	h := sha3.NewShake256()
	h.Write([]byte("mfmodell/ap"))
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(len(ap)))
	h.Write(buf[:])
	for _, v := range ap {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	var d digest
	h.Read(d[:])
	return d
}

// Log is the append-only record list of one ℓ. It assigns each appended
// record its multiplicity index: one more than the number of earlier
// records whose ap mapping is exactly equal. A Log is owned by a single
// goroutine.
type Log struct {
	ell      uint64
	records  []reduction.Record
	distinct int

	// positions of earlier records by ap digest
	byDigest map[digest][]int
}

// NewLog returns an empty log for ℓ.
func NewLog(ell uint64) *Log {
	return &Log{ell: ell, byDigest: make(map[digest][]int)}
}

// Append sets r.Index, stores r and returns the stored copy.
func (l *Log) Append(r reduction.Record) reduction.Record {
	d := apDigest(r.AP)
	var prior int
	for _, i := range l.byDigest[d] {
		if reduction.APEqual(l.records[i].AP, r.AP) {
			prior++
		}
	}

	r.Index = prior + 1
	if r.Index == 1 {
		l.distinct++
	}
	l.byDigest[d] = append(l.byDigest[d], len(l.records))
	l.records = append(l.records, r)
	return r
}

// Ell returns the prime this log belongs to.
func (l *Log) Ell() uint64 { return l.ell }

// Len returns the number of records appended so far.
func (l *Log) Len() int { return len(l.records) }

// Distinct returns the number of records with index 1.
func (l *Log) Distinct() int { return l.distinct }

// Records returns a copy of the records in append order.
func (l *Log) Records() []reduction.Record {
	return append([]reduction.Record(nil), l.records...)
}
