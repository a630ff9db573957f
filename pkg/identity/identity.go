package identity

import (
    "crypto/rand"
    "encoding/hex"
    "sync"
    "time"

    "go.uber.org/zap"

    "meshrelay/pkg/channel"
    "meshrelay/pkg/protocol"
)

// Identity is the stable self-identifier of one runtime. The id is derived
// once per process lifetime and memoized; every call to SelfID returns the
// same value.
type Identity struct {
    once sync.Once
    id   string

    relayCapable bool
}

// New builds an identity. When fixed is non-empty it is used verbatim
// (operators pin node ids in config); otherwise a random id is derived on
// first use.
func New(fixed string, relayCapable bool) *Identity {
    ident := &Identity{relayCapable: relayCapable}
    if fixed != "" {
        ident.once.Do(func() { ident.id = fixed })
    }
    return ident
}

// SelfID returns the memoized node id, prefixed "node_".
func (i *Identity) SelfID() string {
    i.once.Do(func() {
        var b [6]byte
        if _, err := rand.Read(b[:]); err != nil {
            // fall back to a time-derived id; still stable for this process
            now := time.Now().UnixNano()
            for j := range b { b[j] = byte(now >> (8 * j)) }
        }
        i.id = "node_" + hex.EncodeToString(b[:])
        zap.L().Info("derived node identity", zap.String("node_id", i.id))
    })
    return i.id
}

// RelayCapable reports whether this node forwards traffic for others.
func (i *Identity) RelayCapable() bool { return i.relayCapable }

// Beacon is the periodic presence announcement.
type Beacon struct {
    NodeID          string   `json:"node_id"`
    Timestamp       int64    `json:"timestamp_unix_ms"`
    ActiveChannels  []string `json:"active_channels"`
    RelayCapable    bool     `json:"relay_capable"`
    ProtocolVersion uint8    `json:"protocol_version"`
}

// Beacon regenerates the presence beacon from the registry's current
// availability.
func (i *Identity) Beacon(reg *channel.Registry) Beacon {
    b := Beacon{
        NodeID:          i.SelfID(),
        Timestamp:       time.Now().UnixMilli(),
        RelayCapable:    i.relayCapable,
        ProtocolVersion: protocol.ProtocolVersion,
    }
    if reg != nil { b.ActiveChannels = reg.ActiveNames() }
    return b
}
