// Package peers tracks known remote nodes, their channels and relay
// capability.
package peers

import (
    "sort"
    "sync"
    "time"

    "github.com/benbjohnson/clock"
    "go.uber.org/zap"
)

// Peer is one known remote node. FirstSeen is fixed at discovery; LastSeen
// refreshes on every re-sighting.
type Peer struct {
    NodeID          string    `json:"node_id"`
    Channels        []string  `json:"channels"`
    RelayCapable    bool      `json:"relay_capable"`
    DiscoveryMethod string    `json:"discovery_method,omitempty"`
    FirstSeen       time.Time `json:"first_seen"`
    LastSeen        time.Time `json:"last_seen"`
}

// Directory is the mutable peer table of one runtime. All methods are safe
// for concurrent use; the directory holds its own lock and nothing else.
type Directory struct {
    mu    sync.RWMutex
    self  string
    peers map[string]*Peer
    clk   clock.Clock

    discovered uint64
}

// NewDirectory builds a directory for the node with id self. A nil clk uses
// the wall clock.
func NewDirectory(self string, clk clock.Clock) *Directory {
    if clk == nil { clk = clock.New() }
    return &Directory{self: self, peers: make(map[string]*Peer), clk: clk}
}

// Register records a sighting of a peer. Empty info and self-registration are
// rejected with nil: a node never appears in its own peer table. On first
// sight the peer is created; afterwards the channel list is unioned, FirstSeen
// preserved and LastSeen refreshed. The returned copy is safe to retain.
func (d *Directory) Register(info Peer) *Peer {
    if info.NodeID == "" || info.NodeID == d.self { return nil }
    now := d.clk.Now()

    d.mu.Lock()
    defer d.mu.Unlock()
    p, ok := d.peers[info.NodeID]
    if !ok {
        p = &Peer{
            NodeID:          info.NodeID,
            Channels:        dedupe(info.Channels),
            RelayCapable:    info.RelayCapable,
            DiscoveryMethod: info.DiscoveryMethod,
            FirstSeen:       now,
            LastSeen:        now,
        }
        d.peers[info.NodeID] = p
        d.discovered++
        zap.L().Info("peer discovered", zap.String("peer", p.NodeID),
            zap.Strings("channels", p.Channels), zap.String("via", p.DiscoveryMethod))
    } else {
        p.Channels = dedupe(append(p.Channels, info.Channels...))
        p.RelayCapable = p.RelayCapable || info.RelayCapable
        p.LastSeen = now
        zap.L().Debug("peer re-sighted", zap.String("peer", p.NodeID), zap.Strings("channels", p.Channels))
    }
    cp := *p
    cp.Channels = append([]string(nil), p.Channels...)
    return &cp
}

// Remove deletes a peer and reports whether it existed.
func (d *Directory) Remove(id string) bool {
    d.mu.Lock()
    _, ok := d.peers[id]
    delete(d.peers, id)
    d.mu.Unlock()
    if ok { zap.L().Info("peer removed", zap.String("peer", id)) }
    return ok
}

// Get returns a copy of the peer record.
func (d *Directory) Get(id string) (Peer, bool) {
    d.mu.RLock()
    defer d.mu.RUnlock()
    p, ok := d.peers[id]
    if !ok { return Peer{}, false }
    cp := *p
    cp.Channels = append([]string(nil), p.Channels...)
    return cp, true
}

// Reachable reports whether the peer shares at least one channel with the
// given usable set. Relay draining uses this as its delivery gate.
func (d *Directory) Reachable(id string, usable []string) bool {
    p, ok := d.Get(id)
    if !ok { return false }
    for _, c := range p.Channels {
        for _, u := range usable {
            if c == u { return true }
        }
    }
    return false
}

// Count returns the number of known peers.
func (d *Directory) Count() int {
    d.mu.RLock(); defer d.mu.RUnlock()
    return len(d.peers)
}

// Discovered returns the monotonic count of first sightings.
func (d *Directory) Discovered() uint64 {
    d.mu.RLock(); defer d.mu.RUnlock()
    return d.discovered
}

// Topology is a snapshot of the local node plus everything it knows about.
type Topology struct {
    Self  string `json:"self"`
    Peers []Peer `json:"peers"`
}

// Topology returns the self id and all known peers with their channel sets,
// sorted by node id for stable diagnostics output.
func (d *Directory) Topology() Topology {
    d.mu.RLock()
    out := Topology{Self: d.self, Peers: make([]Peer, 0, len(d.peers))}
    for _, p := range d.peers {
        cp := *p
        cp.Channels = append([]string(nil), p.Channels...)
        out.Peers = append(out.Peers, cp)
    }
    d.mu.RUnlock()
    sort.Slice(out.Peers, func(i, j int) bool { return out.Peers[i].NodeID < out.Peers[j].NodeID })
    return out
}

// SweepStale removes peers whose LastSeen is older than window and returns
// how many were dropped.
func (d *Directory) SweepStale(window time.Duration) int {
    cutoff := d.clk.Now().Add(-window)
    d.mu.Lock()
    defer d.mu.Unlock()
    n := 0
    for id, p := range d.peers {
        if p.LastSeen.Before(cutoff) {
            delete(d.peers, id)
            n++
        }
    }
    if n > 0 { zap.L().Info("stale peers swept", zap.Int("count", n)) }
    return n
}

func dedupe(in []string) []string {
    seen := make(map[string]struct{}, len(in))
    out := make([]string, 0, len(in))
    for _, s := range in {
        if s == "" { continue }
        if _, ok := seen[s]; ok { continue }
        seen[s] = struct{}{}
        out = append(out, s)
    }
    return out
}
