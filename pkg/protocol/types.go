package protocol

// Wire constants shared by every channel. These must stay bit-exact for
// interoperability with deployed nodes.
const (
    FrameMagic      = uint16(0xCD01)
    ProtocolVersion = uint8(1)

    // FrameOverhead is the fixed frame header size in bytes.
    FrameOverhead = 20
    // MeshHeaderSize is the wire size of the mesh routing header.
    MeshHeaderSize = 16
    // UnitMetaSize is the opaque unit-metadata header carried next to the
    // mesh header on every packet.
    UnitMetaSize = 48
    // PacketOverhead is the total fixed per-packet overhead.
    PacketOverhead = MeshHeaderSize + UnitMetaSize
)

// Urgency is the single 8-level priority scheme shared by frames and mesh
// headers: 0 is the most urgent, 7 the least.
type Urgency uint8

const (
    UrgencyEmergency Urgency = iota // life/safety traffic
    UrgencyThreat                   // threat reports
    UrgencyTransaction              // transactional traffic
    UrgencyEntity                   // entity state exchange
    UrgencyKnowledge                // knowledge sync
    UrgencyRoutine
    UrgencyBackground
    UrgencyBulk
)

// ClampUrgency forces any integer into the valid 0..7 range.
func ClampUrgency(p int) Urgency {
    if p < 0 { return UrgencyEmergency }
    if p > int(UrgencyBulk) { return UrgencyBulk }
    return Urgency(p)
}

// Emergency reports whether the level bypasses gossip sampling and channel
// reservations.
func (u Urgency) Emergency() bool { return u <= UrgencyThreat }

// Flag is the single bitset shared by the frame envelope and the mesh header.
type Flag uint8

const (
    FlagFragment      Flag = 1 << 0 // payload is one fragment of a transfer
    FlagRelay         Flag = 1 << 1 // frame travels via store-and-forward
    FlagEmergency     Flag = 1 << 2 // emergency/threat urgency
    FlagEncrypted     Flag = 1 << 3 // payload encrypted by the application
    FlagPriorityBoost Flag = 1 << 4 // header requests elevated handling
    FlagStoreForward  Flag = 1 << 5 // packet was queued at least once
)

// Has checks whether a flag is set.
func (f Flag) Has(flag Flag) bool { return (f & flag) != 0 }

// With returns f with flag set.
func (f Flag) With(flag Flag) Flag { return f | flag }

// PriorityClass orders relay-queue entries: 1 dequeues first, 5 last.
type PriorityClass int

const (
    ClassUnset       PriorityClass = 0 // caller did not classify; legacy shim applies
    ClassThreat      PriorityClass = 1
    ClassTransaction PriorityClass = 2
    ClassEntity      PriorityClass = 3
    ClassKnowledge   PriorityClass = 4
    ClassGeneral     PriorityClass = 5
)

// Valid reports whether c is an explicit class.
func (c PriorityClass) Valid() bool { return c >= ClassThreat && c <= ClassGeneral }

// UrgencyFor maps a relay class onto the shared urgency scale.
func (c PriorityClass) UrgencyFor() Urgency {
    switch c {
    case ClassThreat:
        return UrgencyThreat
    case ClassTransaction:
        return UrgencyTransaction
    case ClassEntity:
        return UrgencyEntity
    case ClassKnowledge:
        return UrgencyKnowledge
    default:
        return UrgencyRoutine
    }
}
