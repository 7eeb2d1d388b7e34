package party

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
)

// ID identifies a party taking part in a computation. Valid IDs are in [1, n].
type ID uint16

// String implements fmt.Stringer.
func (id ID) String() string {
	return fmt.Sprintf("P%d", uint16(id))
}

// WriteTo makes ID implement the io.WriterTo interface.
// 实现io.WriterTo接口，把ID写入w
func (id ID) WriteTo(w io.Writer) (int64, error) {
	if id == 0 {
		return 0, io.ErrUnexpectedEOF
	}
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], uint16(id))
	n, err := w.Write(buf[:])
	return int64(n), err
}

// Domain implements hash.WriterToWithDomain, and separates this type within hash.Hash.
func (ID) Domain() string {
	return "ID"
}

// IDSlice is a sorted list of party IDs.
type IDSlice []ID

var (
	ErrZeroID      = errors.New("party: ID 0 is not a valid party")
	ErrDuplicateID = errors.New("party: duplicate ID")
	ErrTooFew      = errors.New("party: at least two parties are required")
)

// NewIDSlice returns a sorted copy of ids.
func NewIDSlice(ids []ID) IDSlice {
	out := make(IDSlice, len(ids))
	copy(out, ids)
	sort.Sort(out)
	return out
}

// Sequential returns the IDs 1, …, n.
func Sequential(n int) IDSlice {
	out := make(IDSlice, n)
	for i := range out {
		out[i] = ID(i + 1)
	}
	return out
}

// Valid returns an error if the slice contains fewer than two parties, the zero ID, or duplicates.
func (ids IDSlice) Valid() error {
	if len(ids) < 2 {
		return ErrTooFew
	}
	sorted := NewIDSlice(ids)
	for i, id := range sorted {
		if id == 0 {
			return ErrZeroID
		}
		if i > 0 && sorted[i-1] == id {
			return fmt.Errorf("%w: %v", ErrDuplicateID, id)
		}
	}
	return nil
}

// Contains returns true if all ids are included in the slice.
func (ids IDSlice) Contains(idsToFind ...ID) bool {
	for _, id := range idsToFind {
		if ids.Index(id) < 0 {
			return false
		}
	}
	return true
}

// Index returns the position of id in the sorted slice, or -1.
func (ids IDSlice) Index(id ID) int {
	i := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
	if i < len(ids) && ids[i] == id {
		return i
	}
	return -1
}

// Remove returns a copy of the slice without id.
func (ids IDSlice) Remove(id ID) IDSlice {
	out := make(IDSlice, 0, len(ids))
	for _, other := range ids {
		if other != id {
			out = append(out, other)
		}
	}
	return out
}

// Copy returns an identical copy of the slice.
func (ids IDSlice) Copy() IDSlice {
	out := make(IDSlice, len(ids))
	copy(out, ids)
	return out
}

// WriteTo implements io.WriterTo interface.
func (ids IDSlice) WriteTo(w io.Writer) (int64, error) {
	var total int64
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(len(ids)))
	n, err := w.Write(buf[:])
	total += int64(n)
	if err != nil {
		return total, err
	}
	for _, id := range ids {
		m, err := id.WriteTo(w)
		total += m
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Domain implements hash.WriterToWithDomain.
func (IDSlice) Domain() string {
	return "IDSlice"
}

func (ids IDSlice) Len() int           { return len(ids) }
func (ids IDSlice) Less(i, j int) bool { return ids[i] < ids[j] }
func (ids IDSlice) Swap(i, j int)      { ids[i], ids[j] = ids[j], ids[i] }
