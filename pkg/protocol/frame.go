package protocol

import (
    "encoding/binary"
    "fmt"
    "time"

    "meshrelay/pkg/protocol/codec"
)

// Fixed frame layout (20 bytes) for integrity-checked exchange over any
// channel. All integer fields are little-endian.
//
//  0 ..1   Magic    0xCD01
//  2       Version  u8
//  3       Priority u8 (0 most urgent .. 7)
//  4       Flags    u8
//  5       Reserved u8
//  6 ..7   Checksum u16 (CRC-16/CCITT-FALSE of payload)
//  8 ..11  PayloadLen u32
//  12..19  Timestamp  i64 unix ms

// Frame is the low-level envelope wrapping one canonically-serialized unit.
type Frame struct {
    Magic       uint16
    Version     uint8
    Priority    Urgency
    Flags       Flag
    Checksum    uint16
    PayloadLen  uint32
    TimestampMS int64
    Payload     []byte
}

// FrameOptions selects priority and flags at encode time.
type FrameOptions struct {
    Priority  int
    Fragment  bool
    Relay     bool
    Emergency bool
    Encrypted bool
}

// EncodeFrame wraps a unit into a checksummed frame. The unit is serialized
// with the canonical CBOR codec so the checksum is stable across nodes.
// Priority is clamped into [0,7]; emergency and threat urgency always carry
// the emergency flag. A nil unit encodes to nil.
func EncodeFrame(unit any, opts FrameOptions) (*Frame, error) {
    if unit == nil { return nil, nil }
    payload, err := codec.Canonical().Marshal(unit)
    if err != nil {
        return nil, fmt.Errorf("encode frame payload: %w", err)
    }
    prio := ClampUrgency(opts.Priority)
    var flags Flag
    if opts.Fragment { flags = flags.With(FlagFragment) }
    if opts.Relay { flags = flags.With(FlagRelay) }
    if opts.Encrypted { flags = flags.With(FlagEncrypted) }
    if opts.Emergency || prio.Emergency() { flags = flags.With(FlagEmergency) }
    return &Frame{
        Magic:       FrameMagic,
        Version:     ProtocolVersion,
        Priority:    prio,
        Flags:       flags,
        Checksum:    Checksum16(payload),
        PayloadLen:  uint32(len(payload)),
        TimestampMS: time.Now().UnixMilli(),
        Payload:     payload,
    }, nil
}

// DecodedFrame is the result of a successful DecodeFrame.
type DecodedFrame struct {
    Unit      any
    Priority  Urgency
    Fragment  bool
    Relay     bool
    Emergency bool
    Encrypted bool
}

// DecodeFrame validates a frame and unwraps its unit. A nil frame is an
// error, never a panic; corruption is reported as ErrInvalidMagic or
// ErrCRCMismatch and is fatal to this frame only.
func DecodeFrame(f *Frame) (*DecodedFrame, error) {
    if f == nil { return nil, ErrMissingInput }
    if f.Magic != FrameMagic { return nil, ErrInvalidMagic }
    if Checksum16(f.Payload) != f.Checksum { return nil, ErrCRCMismatch }
    var unit any
    if err := codec.Canonical().Unmarshal(f.Payload, &unit); err != nil {
        return nil, fmt.Errorf("decode frame payload: %w", err)
    }
    return &DecodedFrame{
        Unit:      unit,
        Priority:  f.Priority,
        Fragment:  f.Flags.Has(FlagFragment),
        Relay:     f.Flags.Has(FlagRelay),
        Emergency: f.Flags.Has(FlagEmergency),
        Encrypted: f.Flags.Has(FlagEncrypted),
    }, nil
}

// TotalBytes is the full on-wire size of the frame.
func (f *Frame) TotalBytes() int { return FrameOverhead + len(f.Payload) }

// MarshalBinary encodes header + payload to a single buffer.
func (f *Frame) MarshalBinary() ([]byte, error) {
    f.PayloadLen = uint32(len(f.Payload))
    buf := make([]byte, FrameOverhead+len(f.Payload))
    binary.LittleEndian.PutUint16(buf[0:2], f.Magic)
    buf[2] = f.Version
    buf[3] = byte(f.Priority)
    buf[4] = byte(f.Flags)
    // buf[5] reserved
    binary.LittleEndian.PutUint16(buf[6:8], f.Checksum)
    binary.LittleEndian.PutUint32(buf[8:12], f.PayloadLen)
    binary.LittleEndian.PutUint64(buf[12:20], uint64(f.TimestampMS))
    copy(buf[FrameOverhead:], f.Payload)
    return buf, nil
}

// UnmarshalBinary decodes header + payload from buf. It only checks framing;
// magic and checksum validation happen in DecodeFrame.
func (f *Frame) UnmarshalBinary(buf []byte) error {
    if len(buf) < FrameOverhead { return fmt.Errorf("short frame: %d bytes", len(buf)) }
    f.Magic = binary.LittleEndian.Uint16(buf[0:2])
    f.Version = buf[2]
    f.Priority = Urgency(buf[3])
    f.Flags = Flag(buf[4])
    f.Checksum = binary.LittleEndian.Uint16(buf[6:8])
    f.PayloadLen = binary.LittleEndian.Uint32(buf[8:12])
    f.TimestampMS = int64(binary.LittleEndian.Uint64(buf[12:20]))
    need := int(f.PayloadLen)
    if FrameOverhead+need > len(buf) { return fmt.Errorf("truncated frame: want %d payload bytes", need) }
    f.Payload = append(f.Payload[:0], buf[FrameOverhead:FrameOverhead+need]...)
    return nil
}
