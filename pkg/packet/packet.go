// Package packet builds mesh packets from application data units and splits
// oversized ones into fragments sized for the weakest link.
package packet

import (
    "bytes"
    "crypto/sha256"

    "github.com/google/uuid"

    "meshrelay/pkg/protocol"
    "meshrelay/pkg/protocol/codec"
)

// Status is the delivery state of a packet.
type Status string

const (
    StatusPending   Status = "pending"
    StatusDelivered Status = "delivered"
    StatusExpired   Status = "expired"
    StatusFailed    Status = "failed"
)

// Packet is the mesh delivery envelope: header + canonical payload + content
// hash. The hash covers the canonical CBOR bytes, so delivery over any channel
// can be verified end to end.
type Packet struct {
    ID            string
    Header        protocol.MeshHeader
    Payload       []byte
    ContentHash   []byte
    PayloadBytes  int
    TotalBytes    int
    Status        Status
    PriorityClass protocol.PriorityClass
}

// DefaultTTL is the hop budget given to new packets.
const DefaultTTL = 64

// Build wraps one data unit for delivery to dst. The unit is serialized with
// the canonical codec and hashed with SHA-256. A nil unit yields nil.
// class may be ClassUnset; the relay queue then falls back to its legacy
// keyword shim.
func Build(unit any, src, dst string, class protocol.PriorityClass) *Packet {
    if unit == nil { return nil }
    payload, err := codec.Canonical().Marshal(unit)
    if err != nil { return nil }
    sum := sha256.Sum256(payload)

    var flags protocol.Flag
    if class == protocol.ClassThreat { flags = flags.With(protocol.FlagPriorityBoost) }
    p := &Packet{
        ID:            uuid.NewString(),
        Header:        protocol.NewMeshHeader(src, dst, sum[:], DefaultTTL, flags),
        Payload:       payload,
        ContentHash:   sum[:],
        Status:        StatusPending,
        PriorityClass: class,
    }
    p.PayloadBytes = len(payload)
    p.TotalBytes = p.Total()
    return p
}

// Total recomputes the full size from the current payload. Routing decisions
// read this, never a cached field.
func (p *Packet) Total() int { return len(p.Payload) + protocol.PacketOverhead }

// Verify recomputes the payload hash and compares it to the stored content
// hash. False means tampering or corruption in transit.
func (p *Packet) Verify() bool {
    if p == nil { return false }
    sum := sha256.Sum256(p.Payload)
    return bytes.Equal(sum[:], p.ContentHash)
}

// Unit decodes the payload back into a data unit.
func (p *Packet) Unit() (any, error) {
    var v any
    if err := codec.Canonical().Unmarshal(p.Payload, &v); err != nil { return nil, err }
    return v, nil
}
