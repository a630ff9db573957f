package packet

import (
    "github.com/google/uuid"
)

// Fragment is one independently-transmittable chunk of a transfer. A complete
// set is exactly Total fragments with distinct indices 0..Total-1, in any
// order.
type Fragment struct {
    TransferID string
    Index      int
    Total      int
    Chunk      []byte
}

// Split slices data into fragments of at most maxChunk bytes sharing one
// transfer id. Data that already fits yields a single-element list. A chunk
// size below 1 or nil data yields nil.
func Split(data []byte, maxChunk int) []Fragment {
    if data == nil || maxChunk < 1 { return nil }
    tid := uuid.NewString()
    if len(data) <= maxChunk {
        return []Fragment{{TransferID: tid, Index: 0, Total: 1, Chunk: append([]byte(nil), data...)}}
    }
    total := (len(data) + maxChunk - 1) / maxChunk
    out := make([]Fragment, 0, total)
    for i := 0; i < total; i++ {
        start := i * maxChunk
        end := start + maxChunk
        if end > len(data) { end = len(data) }
        out = append(out, Fragment{
            TransferID: tid,
            Index:      i,
            Total:      total,
            Chunk:      append([]byte(nil), data[start:end]...),
        })
    }
    return out
}

// Reassemble merges a fragment set back into the original bytes. Fragments
// may arrive in any order. Returns nil unless the set holds exactly the
// indices 0..Total-1 of a single transfer: gaps, duplicates, mixed transfers
// and mismatched totals all reject rather than producing a partial
// reconstruction.
func Reassemble(frags []Fragment) []byte {
    if len(frags) == 0 { return nil }
    total := frags[0].Total
    tid := frags[0].TransferID
    if total < 1 || len(frags) != total { return nil }

    ordered := make([][]byte, total)
    seen := make([]bool, total)
    size := 0
    for _, f := range frags {
        if f.Total != total || f.TransferID != tid { return nil }
        if f.Index < 0 || f.Index >= total { return nil }
        if seen[f.Index] { return nil } // duplicate index
        seen[f.Index] = true
        ordered[f.Index] = f.Chunk
        size += len(f.Chunk)
    }
    out := make([]byte, 0, size)
    for _, chunk := range ordered {
        out = append(out, chunk...)
    }
    return out
}
