// Package mesh composes the transport core into one injectable runtime:
// send/receive pipeline, store-and-forward draining, heartbeat and metrics.
package mesh

import (
    "context"
    "encoding/hex"
    "math/rand"
    "sync/atomic"
    "time"

    "github.com/benbjohnson/clock"
    "go.uber.org/zap"

    "meshrelay/pkg/channel"
    "meshrelay/pkg/gossip"
    "meshrelay/pkg/identity"
    "meshrelay/pkg/packet"
    "meshrelay/pkg/peers"
    "meshrelay/pkg/protocol"
    "meshrelay/pkg/relay"
    "meshrelay/pkg/routing"
)

// Persister receives verified units for durable storage. It is an external
// collaborator; the core does not define its schema.
type Persister interface {
    Persist(id string, unit any, contentHash []byte) error
}

// DefaultPeerStaleness is the sweep window for peers that stopped beaconing.
const DefaultPeerStaleness = 2 * time.Hour

// Heartbeat cadence: every tick drains, every 10th beacons, every 50th sweeps.
const (
    beaconEvery = 10
    sweepEvery  = 50
)

// Options configure one runtime instance.
type Options struct {
    // NodeID pins the node identity; empty derives a random one.
    NodeID string
    // RelayCapable marks this node as willing to forward for others.
    RelayCapable bool
    // Relay is the store-and-forward policy (clamped on construction).
    Relay relay.Config
    // SeenCapacity bounds the dedup set; 0 uses the package default.
    SeenCapacity int
    // PeerStaleness is the heartbeat sweep window; 0 uses the default.
    PeerStaleness time.Duration
    // Probe supplies per-channel availability; nil uses channel.DefaultProbe.
    Probe channel.ProbeFunc
    // Clock is injected for tests; nil uses the wall clock.
    Clock clock.Clock
    // Persister receives verified inbound units; may be nil.
    Persister Persister
    // Sample draws gossip sampling values in [0,1); nil uses math/rand.
    Sample func() float64
}

// Runtime owns the shared mutable state of one mesh node: channel registry,
// peer directory, relay queue, dedup set and counters. Instances are
// independent; several can coexist in one process.
type Runtime struct {
    ident   *identity.Identity
    reg     *channel.Registry
    engine  *routing.Engine
    dir     *peers.Directory
    queue   *relay.Queue
    seen    *gossip.SeenSet
    metrics *Metrics
    clk     clock.Clock
    persist Persister
    sample  func() float64

    staleness time.Duration
    tick      atomic.Uint64
}

// New builds a runtime from opts.
func New(opts Options) *Runtime {
    clk := opts.Clock
    if clk == nil { clk = clock.New() }
    staleness := opts.PeerStaleness
    if staleness <= 0 { staleness = DefaultPeerStaleness }
    sample := opts.Sample
    if sample == nil { sample = rand.Float64 }

    ident := identity.New(opts.NodeID, opts.RelayCapable)
    reg := channel.NewRegistry(opts.Probe)
    r := &Runtime{
        ident:     ident,
        reg:       reg,
        engine:    routing.NewEngine(reg),
        dir:       peers.NewDirectory(ident.SelfID(), clk),
        queue:     relay.NewQueue(opts.Relay, clk),
        seen:      gossip.NewSeenSet(opts.SeenCapacity),
        metrics:   &Metrics{},
        clk:       clk,
        persist:   opts.Persister,
        sample:    sample,
        staleness: staleness,
    }
    zap.L().Info("mesh runtime ready", zap.String("node_id", ident.SelfID()),
        zap.Bool("relay_capable", opts.RelayCapable),
        zap.Strings("active_channels", reg.ActiveNames()))
    return r
}

// SelfID returns the stable node id.
func (r *Runtime) SelfID() string { return r.ident.SelfID() }

// Registry exposes the channel registry for probing and diagnostics.
func (r *Runtime) Registry() *channel.Registry { return r.reg }

// Directory exposes the peer table.
func (r *Runtime) Directory() *peers.Directory { return r.dir }

// Queue exposes the relay queue, mainly for configuration.
func (r *Runtime) Queue() *relay.Queue { return r.queue }

// Metrics exposes the counters (also a prometheus.Collector).
func (r *Runtime) Metrics() *Metrics { return r.metrics }

// Beacon regenerates the presence beacon from current channel state.
func (r *Runtime) Beacon() identity.Beacon { return r.ident.Beacon(r.reg) }

// RegisterPeer records a peer sighting and keeps the discovery counter.
func (r *Runtime) RegisterPeer(info peers.Peer) *peers.Peer {
    before := r.dir.Discovered()
    p := r.dir.Register(info)
    if r.dir.Discovered() > before { r.metrics.peersSighted.Add(1) }
    return p
}

// PlanMultiPath spreads a multi-component transfer across usable channels.
func (r *Runtime) PlanMultiPath(componentSizes []int) routing.Plan {
    return r.engine.PlanMultiPath(componentSizes)
}

// ShouldGossip decides re-broadcast for an inbound frame.
func (r *Runtime) ShouldGossip(f *protocol.Frame) bool {
    return gossip.ShouldGossip(f, r.sample())
}

// SendResult is the structured outcome of a send. OK is false only for bad
// input, never for the mere absence of a live channel.
type SendResult struct {
    OK             bool
    Err            string
    TransmissionID string
    Mode           string
    Channel        string
    TotalBytes     int
    Fragments      int
    RelayID        string
    Dropped        bool
}

// Send wraps a unit into a packet and transmits it toward dst, falling back
// to store-and-forward when no live channel reaches anywhere useful.
func (r *Runtime) Send(unit any, dst string) SendResult {
    return r.SendClassified(unit, dst, protocol.ClassUnset)
}

// SendClassified is Send with an explicit priority class. Threat-class sends
// may unlock emergency-reserved channels.
func (r *Runtime) SendClassified(unit any, dst string, class protocol.PriorityClass) SendResult {
    if unit == nil {
        return SendResult{Err: protocol.ErrMissingInput.Error()}
    }
    p := packet.Build(unit, r.SelfID(), dst, class)
    if p == nil {
        return SendResult{Err: protocol.ErrMissingInput.Error()}
    }

    route := r.engine.SelectRoute(p.Total(), routing.Options{PriorityClass: class})
    if route.Channel == nil {
        return r.storeForward(p, dst)
    }

    res := SendResult{
        OK:             true,
        TransmissionID: p.ID,
        Mode:           routing.ModeDirect,
        Channel:        route.Channel.Name,
        TotalBytes:     p.Total(),
        Fragments:      1,
    }
    if route.NeedsFragmentation {
        frags := packet.Split(p.Payload, route.Channel.MaxPayload)
        res.Fragments = len(frags)
        p.Header.Flags = p.Header.Flags.With(protocol.FlagFragment)
    }
    p.Status = packet.StatusDelivered
    r.metrics.transmissions.Add(1)
    r.metrics.bytesSent.Add(uint64(res.TotalBytes))
    zap.L().Debug("packet sent", zap.String("dest", dst), zap.String("channel", res.Channel),
        zap.Int("bytes", res.TotalBytes), zap.Int("fragments", res.Fragments))
    return res
}

func (r *Runtime) storeForward(p *packet.Packet, dst string) SendResult {
    p.Header.Flags = p.Header.Flags.With(protocol.FlagStoreForward)
    res := SendResult{OK: true, Mode: routing.ModeStoreForward, TotalBytes: p.Total()}
    e, err := r.queue.Enqueue(p, dst)
    if err != nil {
        // relaying off or saturated: the packet is dropped, observable via
        // the drop counter, and the send still resolves
        r.metrics.relayDropped.Add(1)
        res.Dropped = true
        zap.L().Warn("store-and-forward unavailable, packet dropped",
            zap.String("dest", dst), zap.Error(err))
        return res
    }
    r.metrics.relayEnqueued.Add(1)
    res.RelayID = e.ID
    zap.L().Debug("packet queued for relay", zap.String("dest", dst), zap.String("relay_id", e.ID))
    return res
}

// ReceiveResult is the structured outcome of a receive.
type ReceiveResult struct {
    OK        bool
    Err       string
    Duplicate bool
    PacketID  string
}

// Receive verifies an inbound packet end to end: content hash recomputation,
// dedup, then handoff to the persistence collaborator. Corrupt input rejects
// with integrity_check_failed; a duplicate resolves OK without re-persisting.
func (r *Runtime) Receive(p *packet.Packet) ReceiveResult {
    if p == nil {
        return ReceiveResult{Err: protocol.ErrMissingInput.Error()}
    }
    if !p.Verify() {
        r.metrics.integrityFails.Add(1)
        p.Status = packet.StatusFailed
        zap.L().Warn("inbound packet failed integrity check", zap.String("packet", p.ID))
        return ReceiveResult{Err: protocol.ErrIntegrityCheckFailed.Error(), PacketID: p.ID}
    }
    if r.seen.CheckAndMark(hex.EncodeToString(p.ContentHash)) {
        r.metrics.duplicates.Add(1)
        return ReceiveResult{OK: true, Duplicate: true, PacketID: p.ID}
    }

    r.metrics.receptions.Add(1)
    r.metrics.bytesReceived.Add(uint64(p.Total()))
    p.Status = packet.StatusDelivered

    if r.persist != nil {
        unit, err := p.Unit()
        if err == nil {
            err = r.persist.Persist(p.ID, unit, p.ContentHash)
        }
        if err != nil {
            // the packet was verified; persistence trouble is the
            // collaborator's to retry and must not fail the receive
            zap.L().Warn("persist handoff failed", zap.String("packet", p.ID), zap.Error(err))
        }
    }
    return ReceiveResult{OK: true, PacketID: p.ID}
}

// TickStats summarizes one heartbeat tick.
type TickStats struct {
    Tick     uint64
    Drain    relay.DrainStats
    Beaconed bool
    Swept    int
}

// Tick runs one heartbeat: always drain the relay queue; every 10th tick emit
// a presence beacon; every 50th tick sweep stale peers. Ticks never panic on
// missing collaborators.
func (r *Runtime) Tick() TickStats {
    n := r.tick.Add(1)
    r.metrics.ticks.Add(1)

    stats := TickStats{Tick: n}
    stats.Drain = r.queue.Drain(r.deliverEntry)
    r.metrics.relayDelivered.Add(uint64(stats.Drain.Delivered))
    r.metrics.expired.Add(uint64(stats.Drain.Expired))

    if n%beaconEvery == 0 {
        b := r.Beacon()
        stats.Beaconed = true
        zap.L().Debug("presence beacon", zap.String("node_id", b.NodeID),
            zap.Strings("channels", b.ActiveChannels))
    }
    if n%sweepEvery == 0 {
        stats.Swept = r.dir.SweepStale(r.staleness)
    }
    return stats
}

// deliverEntry is the relay drain gate: an entry is deliverable when its
// destination is a known peer sharing a currently usable channel.
func (r *Runtime) deliverEntry(e *relay.Entry) bool {
    if e == nil { return false }
    if !r.dir.Reachable(e.DestinationID, r.reg.ActiveNames()) { return false }
    r.metrics.transmissions.Add(1)
    if e.Packet != nil { r.metrics.bytesSent.Add(uint64(e.Packet.Total())) }
    zap.L().Debug("relayed packet delivered", zap.String("entry", e.ID),
        zap.String("dest", e.DestinationID))
    return true
}

// Run drives the heartbeat until ctx is done. interval must be positive.
func (r *Runtime) Run(ctx context.Context, interval time.Duration) {
    t := r.clk.Ticker(interval)
    defer t.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-t.C:
            r.Tick()
        }
    }
}
