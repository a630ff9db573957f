package relay

import (
    "testing"
    "time"

    "github.com/benbjohnson/clock"
    "github.com/stretchr/testify/require"

    "meshrelay/pkg/packet"
    "meshrelay/pkg/protocol"
)

func newTestQueue(clk clock.Clock) *Queue {
    return NewQueue(Config{Enabled: true}, clk)
}

func mustEnqueue(t *testing.T, q *Queue, unit any, class protocol.PriorityClass) *Entry {
    t.Helper()
    p := packet.Build(unit, "node_src", "node_dst", class)
    require.NotNil(t, p)
    e, err := q.Enqueue(p, "node_dst")
    require.NoError(t, err)
    return e
}

func TestConfigClamps(t *testing.T) {
    eff := Config{MaxQueueSize: 99_999, HoldTime: time.Second, Enabled: true}.Clamped()
    require.Equal(t, 10_000, eff.MaxQueueSize)
    require.Equal(t, 60*time.Second, eff.HoldTime)

    q := newTestQueue(nil)
    eff = q.Configure(Config{MaxQueueSize: 99_999, HoldTime: 1000 * time.Millisecond, Enabled: true})
    require.Equal(t, 10_000, eff.MaxQueueSize)
    require.Equal(t, 60*time.Second, eff.HoldTime)
    require.Equal(t, eff, q.Effective())
}

func TestConfigDefaults(t *testing.T) {
    eff := Config{Enabled: true}.Clamped()
    require.Equal(t, DefaultMaxQueue, eff.MaxQueueSize)
    require.Equal(t, DefaultHoldTime, eff.HoldTime)
}

func TestEnqueueOrdering(t *testing.T) {
    q := newTestQueue(nil)
    mustEnqueue(t, q, map[string]any{"note": "plain general payload"}, protocol.ClassGeneral)
    mustEnqueue(t, q, map[string]any{"note": "knowledge sync"}, protocol.ClassKnowledge)
    first := mustEnqueue(t, q, map[string]any{"note": "incoming threat"}, protocol.ClassThreat)
    mustEnqueue(t, q, map[string]any{"note": "another general"}, protocol.ClassGeneral)

    pending := q.Pending()
    require.Len(t, pending, 4)
    require.Equal(t, first.ID, pending[0].ID, "threat dequeues first")
    for i := 1; i < len(pending); i++ {
        require.LessOrEqual(t, pending[i-1].Class, pending[i].Class,
            "class order must be non-decreasing")
    }
}

func TestEnqueueStableWithinClass(t *testing.T) {
    q := newTestQueue(nil)
    a := mustEnqueue(t, q, "general a", protocol.ClassGeneral)
    b := mustEnqueue(t, q, "general b", protocol.ClassGeneral)
    pending := q.Pending()
    require.Equal(t, a.ID, pending[0].ID)
    require.Equal(t, b.ID, pending[1].ID)
}

func TestEnqueueUsesLegacyShimWhenUnset(t *testing.T) {
    q := newTestQueue(nil)
    e := mustEnqueue(t, q, map[string]any{"kind": "threat", "detail": "intrusion"}, protocol.ClassUnset)
    require.Equal(t, protocol.ClassThreat, e.Class)
    e = mustEnqueue(t, q, map[string]any{"kind": "weather"}, protocol.ClassUnset)
    require.Equal(t, protocol.ClassGeneral, e.Class)
}

func TestEnqueueBounds(t *testing.T) {
    q := NewQueue(Config{MaxQueueSize: 2, Enabled: true}, nil)
    mustEnqueue(t, q, "one", protocol.ClassGeneral)
    mustEnqueue(t, q, "two", protocol.ClassGeneral)
    p := packet.Build("three", "node_src", "node_dst", protocol.ClassGeneral)
    _, err := q.Enqueue(p, "node_dst")
    require.ErrorIs(t, err, ErrQueueFull)
}

func TestEnqueueDisabledAndNil(t *testing.T) {
    q := NewQueue(Config{Enabled: false}, nil)
    p := packet.Build("unit", "node_src", "node_dst", protocol.ClassGeneral)
    _, err := q.Enqueue(p, "node_dst")
    require.ErrorIs(t, err, ErrDisabled)

    q = newTestQueue(nil)
    _, err = q.Enqueue(nil, "node_dst")
    require.ErrorIs(t, err, protocol.ErrMissingInput)
}

func TestDrainDeliversReachable(t *testing.T) {
    q := newTestQueue(nil)
    e := mustEnqueue(t, q, "unit", protocol.ClassGeneral)
    stats := q.Drain(func(entry *Entry) bool {
        require.Equal(t, e.ID, entry.ID)
        return true
    })
    require.Equal(t, DrainStats{Delivered: 1, Remaining: 0, Expired: 0}, stats)
    require.Equal(t, packet.StatusDelivered, e.Packet.Status)
}

func TestDrainKeepsUndeliverable(t *testing.T) {
    q := newTestQueue(nil)
    mustEnqueue(t, q, "unit", protocol.ClassGeneral)
    stats := q.Drain(func(*Entry) bool { return false })
    require.Equal(t, DrainStats{Delivered: 0, Remaining: 1, Expired: 0}, stats)
    require.Equal(t, 1, q.Len())
}

func TestDrainExpiresWithoutAttempt(t *testing.T) {
    q := newTestQueue(nil)
    p := packet.Build("unit", "node_src", "node_dst", protocol.ClassGeneral)
    _, err := q.EnqueueWithHold(p, "node_dst", -time.Second)
    require.NoError(t, err)

    attempts := 0
    stats := q.Drain(func(*Entry) bool { attempts++; return true })
    require.Equal(t, DrainStats{Delivered: 0, Remaining: 0, Expired: 1}, stats)
    require.Zero(t, attempts, "expired entries get no delivery attempt")
    require.EqualValues(t, 1, q.ExpiredTotal())
    require.Equal(t, packet.StatusExpired, p.Status)
}

func TestDrainExpiryByClockAdvance(t *testing.T) {
    clk := clock.NewMock()
    q := NewQueue(Config{HoldTime: 2 * time.Minute, Enabled: true}, clk)
    p := packet.Build("unit", "node_src", "node_dst", protocol.ClassGeneral)
    _, err := q.Enqueue(p, "node_dst")
    require.NoError(t, err)

    clk.Add(time.Minute)
    stats := q.Drain(func(*Entry) bool { return false })
    require.Equal(t, 1, stats.Remaining)

    clk.Add(2 * time.Minute)
    stats = q.Drain(func(*Entry) bool { return false })
    require.Equal(t, DrainStats{Delivered: 0, Remaining: 0, Expired: 1}, stats)
}

func TestClassifyPriorityMarkers(t *testing.T) {
    cases := map[string]protocol.PriorityClass{
        "THREAT detected at perimeter": protocol.ClassThreat,
        "payment of 12 units":          protocol.ClassTransaction,
        "entity state delta":           protocol.ClassEntity,
        "knowledge article sync":       protocol.ClassKnowledge,
        "weather reading 17C":          protocol.ClassGeneral,
    }
    for payload, want := range cases {
        require.Equal(t, want, ClassifyPriority([]byte(payload)), "payload %q", payload)
    }
}
