// Package channel models the seven transport kinds as capability descriptors.
// Channels are not physical drivers; availability is fed by an injected probe.
package channel

import (
    "sort"
    "sync"

    "go.uber.org/zap"
)

// Kind identifies one of the seven fixed transport kinds.
type Kind int

const (
    KindUnknown Kind = iota
    KindInternet
    KindWifiDirect
    KindBluetooth
    KindLoRa
    KindPacketRadio
    KindTelephone
    KindNFC
)

func (k Kind) String() string {
    switch k {
    case KindInternet:
        return "internet"
    case KindWifiDirect:
        return "wifi_direct"
    case KindBluetooth:
        return "bluetooth"
    case KindLoRa:
        return "lora"
    case KindPacketRadio:
        return "packet_radio"
    case KindTelephone:
        return "telephone"
    case KindNFC:
        return "nfc"
    default:
        return "unknown"
    }
}

// Kinds lists every channel kind in declaration order.
func Kinds() []Kind {
    return []Kind{KindInternet, KindWifiDirect, KindBluetooth, KindLoRa, KindPacketRadio, KindTelephone, KindNFC}
}

// Spec is the immutable capability profile of one channel kind.
type Spec struct {
    Kind       Kind
    Name       string
    Protocol   string
    Range      string
    Speed      string
    Bandwidth  string
    Priority   int // lower number is preferred by routing
    MaxPayload int // bytes per transmission before fragmentation
}

// Payload caps follow link-class reality rather than the best device on the
// market: LoRa and telephone (SMS-class) are the weakest links the
// fragmentation engine must size for.
var specs = map[Kind]Spec{
    KindInternet:    {Kind: KindInternet, Name: "internet", Protocol: "tcp/ip", Range: "global", Speed: "high", Bandwidth: "high", Priority: 1, MaxPayload: 10 << 20},
    KindWifiDirect:  {Kind: KindWifiDirect, Name: "wifi_direct", Protocol: "802.11", Range: "200m", Speed: "high", Bandwidth: "high", Priority: 2, MaxPayload: 1 << 20},
    KindBluetooth:   {Kind: KindBluetooth, Name: "bluetooth", Protocol: "ble", Range: "30m", Speed: "medium", Bandwidth: "medium", Priority: 3, MaxPayload: 64 << 10},
    KindLoRa:        {Kind: KindLoRa, Name: "lora", Protocol: "lorawan", Range: "15km", Speed: "low", Bandwidth: "low", Priority: 4, MaxPayload: 222},
    KindPacketRadio: {Kind: KindPacketRadio, Name: "packet_radio", Protocol: "ax.25", Range: "500km", Speed: "low", Bandwidth: "low", Priority: 5, MaxPayload: 2048},
    KindTelephone:   {Kind: KindTelephone, Name: "telephone", Protocol: "pstn/sms", Range: "global", Speed: "low", Bandwidth: "low", Priority: 6, MaxPayload: 160},
    KindNFC:         {Kind: KindNFC, Name: "nfc", Protocol: "iso14443", Range: "0.1m", Speed: "medium", Bandwidth: "low", Priority: 7, MaxPayload: 8 << 10},
}

// SpecFor returns the capability profile for a kind.
func SpecFor(k Kind) (Spec, bool) {
    s, ok := specs[k]
    return s, ok
}

// KindByName resolves a channel name back to its kind.
func KindByName(name string) Kind {
    for k, s := range specs {
        if s.Name == name { return k }
    }
    return KindUnknown
}

// Reserved reports whether a kind is held back for emergency traffic.
// Telephone and packet radio are scarce shared media; routing only unlocks
// them for threat-class sends.
func Reserved(k Kind) bool { return k == KindTelephone || k == KindPacketRadio }

// ShortRange reports whether a kind only reaches nearby peers; used by the
// routing proximity hint.
func ShortRange(k Kind) bool {
    return k == KindNFC || k == KindBluetooth || k == KindWifiDirect
}

// ProbeFunc answers whether one channel kind is currently usable. It is the
// seam where platform capability checks (socket reachability, radio presence)
// plug in.
type ProbeFunc func(Kind) bool

// DefaultProbe models the baseline local environment: the network-based
// channel is usable, nothing else is.
func DefaultProbe(k Kind) bool { return k == KindInternet }

// Registry exposes the channel specs plus their mutable availability.
type Registry struct {
    mu    sync.RWMutex
    probe ProbeFunc
    avail map[Kind]bool
}

// NewRegistry builds a registry around probe (DefaultProbe when nil) and runs
// an initial probe pass.
func NewRegistry(probe ProbeFunc) *Registry {
    if probe == nil { probe = DefaultProbe }
    r := &Registry{probe: probe, avail: make(map[Kind]bool, len(specs))}
    r.Probe()
    return r
}

// Probe re-checks every channel and returns the fresh availability map.
func (r *Registry) Probe() map[Kind]bool {
    r.mu.Lock()
    defer r.mu.Unlock()
    out := make(map[Kind]bool, len(specs))
    for _, k := range Kinds() {
        ok := r.probe(k)
        r.avail[k] = ok
        out[k] = ok
    }
    zap.L().Debug("channel probe", zap.Int("usable", countTrue(out)))
    return out
}

// Available reports the last probed availability for a kind.
func (r *Registry) Available(k Kind) bool {
    r.mu.RLock(); defer r.mu.RUnlock()
    return r.avail[k]
}

// SetAvailable overrides availability for one kind until the next probe.
// Operators use this to force a channel up or down.
func (r *Registry) SetAvailable(k Kind, ok bool) {
    r.mu.Lock(); r.avail[k] = ok; r.mu.Unlock()
}

// Usable returns the specs of the currently usable channels in ascending
// priority order.
func (r *Registry) Usable() []Spec {
    r.mu.RLock()
    out := make([]Spec, 0, len(specs))
    for k, ok := range r.avail {
        if ok { out = append(out, specs[k]) }
    }
    r.mu.RUnlock()
    sort.Slice(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
    return out
}

// ActiveNames lists the names of usable channels, for beacons and diagnostics.
func (r *Registry) ActiveNames() []string {
    u := r.Usable()
    out := make([]string, len(u))
    for i := range u { out[i] = u[i].Name }
    return out
}

// Status pairs a spec with its current availability.
type Status struct {
    Spec
    Available bool
}

// StatusReport returns all seven specs annotated with availability, in
// ascending priority order. Diagnostics only; routing reads Usable.
func (r *Registry) StatusReport() []Status {
    r.mu.RLock()
    out := make([]Status, 0, len(specs))
    for _, k := range Kinds() {
        out = append(out, Status{Spec: specs[k], Available: r.avail[k]})
    }
    r.mu.RUnlock()
    sort.Slice(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
    return out
}

func countTrue(m map[Kind]bool) int {
    n := 0
    for _, ok := range m { if ok { n++ } }
    return n
}
