// Package routing chooses a channel (or store-and-forward) per packet and
// spreads multi-component transfers across the usable channels.
package routing

import (
    "go.uber.org/zap"

    "meshrelay/pkg/channel"
    "meshrelay/pkg/protocol"
)

// Mode is the delivery mode of a selected route.
const (
    ModeDirect       = "direct"
    ModeStoreForward = "store_forward"
)

// Route is the outcome of a selection. Channel is nil when the packet must be
// queued for later delivery.
type Route struct {
    Channel            *channel.Spec
    Mode               string
    NeedsFragmentation bool
}

// Options tune a selection.
type Options struct {
    // Proximity "near" prefers short-range channels when usable.
    Proximity string
    // PriorityClass unlocks emergency-reserved channels for threat traffic.
    PriorityClass protocol.PriorityClass
}

// Engine selects channels against the registry's live availability.
type Engine struct {
    reg *channel.Registry
}

// NewEngine builds an engine over reg.
func NewEngine(reg *channel.Registry) *Engine { return &Engine{reg: reg} }

// SelectRoute picks the usable channel with the lowest priority number.
// Telephone and packet radio stay locked unless the send is threat-class.
// Payloads above the channel cap are flagged for fragmentation rather than
// excluded. Selection is total: an empty channel set yields a
// store-and-forward route, never an error.
func (e *Engine) SelectRoute(payloadSize int, opts Options) Route {
    usable := e.reg.Usable()
    candidates := make([]channel.Spec, 0, len(usable))
    for _, s := range usable {
        if channel.Reserved(s.Kind) && opts.PriorityClass != protocol.ClassThreat { continue }
        candidates = append(candidates, s)
    }

    if opts.Proximity == "near" {
        for _, s := range candidates {
            if channel.ShortRange(s.Kind) {
                return routeFor(s, payloadSize)
            }
        }
    }
    if len(candidates) > 0 {
        return routeFor(candidates[0], payloadSize)
    }

    zap.L().Debug("no usable channel, falling back to store-and-forward",
        zap.Int("payload_bytes", payloadSize))
    return Route{Mode: ModeStoreForward}
}

func routeFor(s channel.Spec, payloadSize int) Route {
    spec := s
    return Route{
        Channel:            &spec,
        Mode:               ModeDirect,
        NeedsFragmentation: payloadSize > s.MaxPayload,
    }
}
