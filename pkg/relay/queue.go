// Package relay implements the priority-ordered store-and-forward buffer.
package relay

import (
    "errors"
    "sort"
    "sync"
    "time"

    "github.com/benbjohnson/clock"
    "github.com/google/uuid"
    "go.uber.org/zap"

    "meshrelay/pkg/packet"
    "meshrelay/pkg/protocol"
)

// Operator-facing bounds. The ceiling keeps a flooded node from hoarding
// memory; the floor keeps a misconfigured node from expiring entries
// instantly.
const (
    MaxQueueCeiling = 10_000
    HoldTimeFloor   = 60 * time.Second
)

// Defaults applied when config leaves a field zero.
const (
    DefaultMaxQueue = 1_000
    DefaultHoldTime = 24 * time.Hour
)

// Config is the operator-tunable queue policy.
type Config struct {
    MaxQueueSize int
    HoldTime     time.Duration
    Enabled      bool
}

// Clamped returns the effective config after applying the ceiling and floor.
func (c Config) Clamped() Config {
    out := c
    if out.MaxQueueSize <= 0 { out.MaxQueueSize = DefaultMaxQueue }
    if out.MaxQueueSize > MaxQueueCeiling { out.MaxQueueSize = MaxQueueCeiling }
    if out.HoldTime <= 0 { out.HoldTime = DefaultHoldTime }
    if out.HoldTime < HoldTimeFloor { out.HoldTime = HoldTimeFloor }
    return out
}

// EntryStatus is the lifecycle state of a queued entry.
type EntryStatus string

const (
    EntryPending   EntryStatus = "pending"
    EntryDelivered EntryStatus = "delivered"
    EntryExpired   EntryStatus = "expired"
)

// Entry is one queued packet awaiting a live path to its destination.
type Entry struct {
    ID            string
    Packet        *packet.Packet
    DestinationID string
    Class         protocol.PriorityClass
    QueuedAt      time.Time
    ExpiresAt     time.Time
    Status        EntryStatus
}

// ErrQueueFull is returned when the queue is at its configured bound.
var ErrQueueFull = errors.New("relay queue full")

// ErrDisabled is returned when relaying is switched off.
var ErrDisabled = errors.New("relay disabled")

// Queue is a bounded, priority-ordered store-and-forward buffer. Lower class
// numbers always dequeue first; entries expire by TTL, never by blocking
// waits. The queue guards itself with one mutex and shares no locks with the
// peer directory or the dedup set.
type Queue struct {
    mu      sync.Mutex
    cfg     Config
    entries []*Entry
    clk     clock.Clock

    expiredTotal uint64
}

// NewQueue builds a queue with cfg (clamped). A nil clk uses the wall clock.
func NewQueue(cfg Config, clk clock.Clock) *Queue {
    if clk == nil { clk = clock.New() }
    return &Queue{cfg: cfg.Clamped(), clk: clk}
}

// Configure replaces the queue policy at runtime and returns the effective,
// clamped values.
func (q *Queue) Configure(cfg Config) Config {
    eff := cfg.Clamped()
    q.mu.Lock()
    q.cfg = eff
    q.mu.Unlock()
    zap.L().Info("relay configured", zap.Int("max_queue", eff.MaxQueueSize),
        zap.Duration("hold", eff.HoldTime), zap.Bool("enabled", eff.Enabled))
    return eff
}

// Effective returns the current clamped config.
func (q *Queue) Effective() Config {
    q.mu.Lock(); defer q.mu.Unlock()
    return q.cfg
}

// Enqueue stores pkt for later delivery to dst using the configured hold
// time. The priority class is the packet's explicit class when set, otherwise
// the legacy keyword shim classifies the payload.
func (q *Queue) Enqueue(pkt *packet.Packet, dst string) (*Entry, error) {
    return q.enqueue(pkt, dst, 0)
}

// EnqueueWithHold is Enqueue with a per-entry hold override. Zero means the
// configured hold; a negative hold produces an already-expired entry, which
// exists so expiry accounting can be exercised deterministically.
func (q *Queue) EnqueueWithHold(pkt *packet.Packet, dst string, hold time.Duration) (*Entry, error) {
    return q.enqueue(pkt, dst, hold)
}

func (q *Queue) enqueue(pkt *packet.Packet, dst string, hold time.Duration) (*Entry, error) {
    if pkt == nil { return nil, protocol.ErrMissingInput }

    q.mu.Lock()
    defer q.mu.Unlock()
    if !q.cfg.Enabled { return nil, ErrDisabled }
    if len(q.entries) >= q.cfg.MaxQueueSize { return nil, ErrQueueFull }

    if hold == 0 { hold = q.cfg.HoldTime }
    class := pkt.PriorityClass
    if !class.Valid() { class = ClassifyPriority(pkt.Payload) }
    now := q.clk.Now()
    e := &Entry{
        ID:            uuid.NewString(),
        Packet:        pkt,
        DestinationID: dst,
        Class:         class,
        QueuedAt:      now,
        ExpiresAt:     now.Add(hold),
        Status:        EntryPending,
    }
    // insert before the first entry of a strictly higher class; stable within
    // a class so equal-priority entries keep arrival order
    idx := sort.Search(len(q.entries), func(i int) bool { return q.entries[i].Class > class })
    q.entries = append(q.entries, nil)
    copy(q.entries[idx+1:], q.entries[idx:])
    q.entries[idx] = e

    zap.L().Debug("relay enqueued", zap.String("entry", e.ID), zap.String("dest", dst),
        zap.Int("class", int(class)), zap.Int("pending", len(q.entries)))
    return e, nil
}

// Len returns the number of pending entries.
func (q *Queue) Len() int {
    q.mu.Lock(); defer q.mu.Unlock()
    return len(q.entries)
}

// Pending returns a snapshot of queued entries in dequeue order.
func (q *Queue) Pending() []Entry {
    q.mu.Lock()
    defer q.mu.Unlock()
    out := make([]Entry, len(q.entries))
    for i, e := range q.entries { out[i] = *e }
    return out
}

// ExpiredTotal returns the monotonic count of entries dropped by TTL.
func (q *Queue) ExpiredTotal() uint64 {
    q.mu.Lock(); defer q.mu.Unlock()
    return q.expiredTotal
}

// DeliverFunc attempts delivery of one entry and reports success. It must not
// call back into the queue.
type DeliverFunc func(e *Entry) bool

// DrainStats summarizes one drain pass.
type DrainStats struct {
    Delivered int
    Remaining int
    Expired   int
}

// Drain walks the queue once in priority order. Entries past their ExpiresAt
// are counted and dropped without a delivery attempt; the rest are offered to
// deliver. A failed attempt leaves the entry queued for the next pass.
func (q *Queue) Drain(deliver DeliverFunc) DrainStats {
    q.mu.Lock()
    snapshot := q.entries
    q.entries = nil
    now := q.clk.Now()
    q.mu.Unlock()

    var stats DrainStats
    var keep []*Entry
    for _, e := range snapshot {
        if !now.Before(e.ExpiresAt) {
            e.Status = EntryExpired
            if e.Packet != nil { e.Packet.Status = packet.StatusExpired }
            stats.Expired++
            continue
        }
        if deliver != nil && deliver(e) {
            e.Status = EntryDelivered
            if e.Packet != nil { e.Packet.Status = packet.StatusDelivered }
            stats.Delivered++
            continue
        }
        keep = append(keep, e)
    }

    q.mu.Lock()
    // new entries may have arrived mid-drain; merge keeping class order
    q.entries = mergeByClass(keep, q.entries)
    q.expiredTotal += uint64(stats.Expired)
    stats.Remaining = len(q.entries)
    q.mu.Unlock()

    if stats.Delivered > 0 || stats.Expired > 0 {
        zap.L().Debug("relay drained", zap.Int("delivered", stats.Delivered),
            zap.Int("expired", stats.Expired), zap.Int("remaining", stats.Remaining))
    }
    return stats
}

func mergeByClass(a, b []*Entry) []*Entry {
    if len(b) == 0 { return a }
    if len(a) == 0 { return b }
    out := make([]*Entry, 0, len(a)+len(b))
    i, j := 0, 0
    for i < len(a) && j < len(b) {
        if b[j].Class < a[i].Class {
            out = append(out, b[j]); j++
        } else {
            out = append(out, a[i]); i++
        }
    }
    out = append(out, a[i:]...)
    return append(out, b[j:]...)
}
