package protocol

import (
    "encoding/binary"
    "errors"
    "hash/fnv"
)

// Mesh header wire layout (16 bytes), combined with the 48-byte opaque
// unit-metadata header for a fixed 64-byte per-packet overhead.
// All integer fields are little-endian.
//
//  0 ..3   SourceHash u32 (FNV-1a of source node id)
//  4 ..7   DestHash   u32
//  8 ..11  ShortHash  u32 (leading 4 bytes of the content hash)
//  12      TTL        u8
//  13      Flags      u8
//  14      FragIndex  u8
//  15      FragTotal  u8

// MeshHeader carries routing metadata for one packet. The string ids and the
// full content hash live only in memory; the wire form carries their compact
// projections above.
type MeshHeader struct {
    SourceID    string
    DestID      string
    ContentHash []byte
    TTL         uint8
    Flags       Flag
    FragIndex   uint8
    FragTotal   uint8

    // wire projections, filled by MarshalBinary/UnmarshalBinary
    SourceHash uint32
    DestHash   uint32
    ShortHash  uint32
}

// NewMeshHeader builds a header, clamping ttl into [0,255].
func NewMeshHeader(src, dst string, contentHash []byte, ttl int, flags Flag) MeshHeader {
    if ttl < 0 { ttl = 0 }
    if ttl > 255 { ttl = 255 }
    return MeshHeader{
        SourceID:    src,
        DestID:      dst,
        ContentHash: contentHash,
        TTL:         uint8(ttl),
        Flags:       flags,
    }
}

// Fragmented reports whether the header describes one fragment of a transfer.
func (h *MeshHeader) Fragmented() bool { return h.Flags.Has(FlagFragment) }

// MarshalBinary encodes the header to its 16-byte wire form.
func (h *MeshHeader) MarshalBinary() ([]byte, error) {
    h.SourceHash = idHash(h.SourceID)
    h.DestHash = idHash(h.DestID)
    h.ShortHash = shortHash(h.ContentHash)
    buf := make([]byte, MeshHeaderSize)
    binary.LittleEndian.PutUint32(buf[0:4], h.SourceHash)
    binary.LittleEndian.PutUint32(buf[4:8], h.DestHash)
    binary.LittleEndian.PutUint32(buf[8:12], h.ShortHash)
    buf[12] = h.TTL
    buf[13] = byte(h.Flags)
    buf[14] = h.FragIndex
    buf[15] = h.FragTotal
    return buf, nil
}

// UnmarshalBinary decodes the 16-byte wire form. Only the compact projections
// of the ids and hash can be recovered.
func (h *MeshHeader) UnmarshalBinary(buf []byte) error {
    if len(buf) < MeshHeaderSize {
        return errors.New("short mesh header")
    }
    h.SourceHash = binary.LittleEndian.Uint32(buf[0:4])
    h.DestHash = binary.LittleEndian.Uint32(buf[4:8])
    h.ShortHash = binary.LittleEndian.Uint32(buf[8:12])
    h.TTL = buf[12]
    h.Flags = Flag(buf[13])
    h.FragIndex = buf[14]
    h.FragTotal = buf[15]
    return nil
}

func idHash(id string) uint32 {
    f := fnv.New32a()
    _, _ = f.Write([]byte(id))
    return f.Sum32()
}

func shortHash(h []byte) uint32 {
    if len(h) < 4 { return 0 }
    return binary.LittleEndian.Uint32(h[:4])
}
