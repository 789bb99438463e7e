package vmem

import "github.com/lylythechosenone/kraken/internal/bitfield"

// traceWord is the compact per-tag debug word a caller can log or record
// in a ring buffer without touching the tag's memory layout directly:
// kind, the freelist/allocation-table bucket it currently lives in, and
// its base address in quantum units, packed via internal/bitfield the
// same way the teacher packed per-page flags into a single word.
type traceWord struct {
	Kind      uint8  `bitfield:",2"`
	Bucket    uint8  `bitfield:",6"`
	BaseUnits uint64 `bitfield:",56"`
}

var traceConfig = &bitfield.Config{NumBits: 64}

// Trace packs t's kind, bucket, and quantum-normalized base address into a
// single uint64, suitable for compact tracing/logging of arena state.
func (t *BoundaryTag) Trace(quantum uintptr) (uint64, error) {
	var bucket uint8
	switch t.Kind {
	case KindFree:
		bucket = uint8(bucketForLen(t.Len / quantum))
	case KindUsed:
		bucket = uint8(allocTableBucket(t.Base))
	}
	tw := traceWord{
		Kind:      uint8(t.Kind),
		Bucket:    bucket,
		BaseUnits: uint64(t.Base / quantum),
	}
	return bitfield.Pack(&tw, traceConfig)
}

// DecodeTrace is the inverse of Trace, recovering the kind, bucket, and
// base address a trace word encoded.
func DecodeTrace(word uint64, quantum uintptr) (kind Kind, bucket uint8, base uintptr, err error) {
	var tw traceWord
	if err := bitfield.Unpack(&tw, word, traceConfig); err != nil {
		return 0, 0, 0, err
	}
	return Kind(tw.Kind), tw.Bucket, uintptr(tw.BaseUnits) * quantum, nil
}
