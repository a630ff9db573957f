package mesh

import (
    "testing"
    "time"

    "github.com/stretchr/testify/require"

    "meshrelay/pkg/channel"
    "meshrelay/pkg/packet"
    "meshrelay/pkg/peers"
    "meshrelay/pkg/protocol"
    "meshrelay/pkg/relay"
)

func noChannels(channel.Kind) bool { return false }

func newRuntime(t *testing.T, opts Options) *Runtime {
    t.Helper()
    if opts.Relay == (relay.Config{}) {
        opts.Relay = relay.Config{Enabled: true}
    }
    return New(opts)
}

type capturePersister struct {
    ids   []string
    units []any
}

func (c *capturePersister) Persist(id string, unit any, _ []byte) error {
    c.ids = append(c.ids, id)
    c.units = append(c.units, unit)
    return nil
}

func TestSendOverLiveChannel(t *testing.T) {
    r := newRuntime(t, Options{})
    res := r.Send(map[string]any{"reading": 21.5}, "node_dst")
    require.True(t, res.OK)
    require.Equal(t, "direct", res.Mode)
    require.Equal(t, "internet", res.Channel)
    require.NotEmpty(t, res.TransmissionID)
    require.GreaterOrEqual(t, res.TotalBytes, 64)
    require.Equal(t, 1, res.Fragments)

    s := r.Metrics().Snapshot()
    require.EqualValues(t, 1, s.Transmissions)
    require.EqualValues(t, res.TotalBytes, s.BytesSent)
}

func TestSendNilUnit(t *testing.T) {
    r := newRuntime(t, Options{})
    res := r.Send(nil, "node_dst")
    require.False(t, res.OK)
    require.Equal(t, "missing_required_input", res.Err)
}

func TestSendFallsBackToStoreForward(t *testing.T) {
    r := newRuntime(t, Options{Probe: noChannels})
    res := r.Send("unit", "node_dst")
    require.True(t, res.OK, "send never fails just because no channel is live")
    require.Equal(t, "store_forward", res.Mode)
    require.NotEmpty(t, res.RelayID)
    require.False(t, res.Dropped)
    require.Equal(t, 1, r.Queue().Len())
}

func TestSendDropsWhenRelayDisabled(t *testing.T) {
    r := New(Options{Probe: noChannels, Relay: relay.Config{Enabled: false}})
    res := r.Send("unit", "node_dst")
    require.True(t, res.OK)
    require.Equal(t, "store_forward", res.Mode)
    require.True(t, res.Dropped)
    require.EqualValues(t, 1, r.Metrics().Snapshot().RelayDropped)
}

func TestSendFragmentsForNarrowChannel(t *testing.T) {
    r := newRuntime(t, Options{Probe: func(k channel.Kind) bool { return k == channel.KindLoRa }})
    big := map[string]any{"blob": make([]byte, 2000)}
    res := r.Send(big, "node_dst")
    require.True(t, res.OK)
    require.Equal(t, "lora", res.Channel)
    require.Greater(t, res.Fragments, 1)
}

func TestThreatSendUnlocksReservedChannel(t *testing.T) {
    r := newRuntime(t, Options{Probe: func(k channel.Kind) bool { return k == channel.KindTelephone }})
    res := r.Send("routine report", "node_dst")
    require.Equal(t, "store_forward", res.Mode, "ordinary traffic stays off reserved channels")

    res = r.SendClassified("threat inbound", "node_dst", protocol.ClassThreat)
    require.True(t, res.OK)
    require.Equal(t, "telephone", res.Channel)
}

func TestReceiveVerifiedUnit(t *testing.T) {
    sink := &capturePersister{}
    r := newRuntime(t, Options{Persister: sink})
    p := packet.Build(map[string]any{"name": "obs"}, "node_remote", r.SelfID(), protocol.ClassUnset)
    res := r.Receive(p)
    require.True(t, res.OK)
    require.False(t, res.Duplicate)
    require.Equal(t, packet.StatusDelivered, p.Status)
    require.Equal(t, []string{p.ID}, sink.ids)

    s := r.Metrics().Snapshot()
    require.EqualValues(t, 1, s.Receptions)
    require.EqualValues(t, p.Total(), s.BytesReceived)
}

func TestReceiveTamperedPacket(t *testing.T) {
    r := newRuntime(t, Options{})
    p := packet.Build(map[string]any{"amount": 10}, "node_remote", r.SelfID(), protocol.ClassUnset)
    p.Payload[2] ^= 0x80
    res := r.Receive(p)
    require.False(t, res.OK)
    require.Equal(t, "integrity_check_failed", res.Err)
    require.Equal(t, packet.StatusFailed, p.Status)
    require.EqualValues(t, 1, r.Metrics().Snapshot().IntegrityFails)
}

func TestReceiveNilPacket(t *testing.T) {
    r := newRuntime(t, Options{})
    res := r.Receive(nil)
    require.False(t, res.OK)
    require.Equal(t, "missing_required_input", res.Err)
}

func TestReceiveDuplicateSuppressed(t *testing.T) {
    sink := &capturePersister{}
    r := newRuntime(t, Options{Persister: sink})
    p := packet.Build("unit", "node_remote", r.SelfID(), protocol.ClassUnset)
    require.True(t, r.Receive(p).OK)

    again := packet.Build("unit", "node_remote", r.SelfID(), protocol.ClassUnset)
    res := r.Receive(again)
    require.True(t, res.OK)
    require.True(t, res.Duplicate)
    require.Len(t, sink.ids, 1, "duplicate not re-persisted")
    require.EqualValues(t, 1, r.Metrics().Snapshot().Duplicates)
}

func TestRelayDeliveryScenario(t *testing.T) {
    // no channels at send time, so the packet queues; the peer is known on
    // internet, and once internet comes back a drain delivers it
    r := newRuntime(t, Options{Probe: noChannels})
    require.NotNil(t, r.RegisterPeer(peers.Peer{NodeID: "node_remote", Channels: []string{"internet"}}))

    res := r.Send("hello out there", "node_remote")
    require.Equal(t, "store_forward", res.Mode)

    stats := r.Tick()
    require.Equal(t, relay.DrainStats{Delivered: 0, Remaining: 1, Expired: 0}, stats.Drain)

    r.Registry().SetAvailable(channel.KindInternet, true)
    stats = r.Tick()
    require.Equal(t, relay.DrainStats{Delivered: 1, Remaining: 0, Expired: 0}, stats.Drain)
    require.EqualValues(t, 1, r.Metrics().Snapshot().RelayDelivered)
}

func TestExpiredEntryCountedOnDrain(t *testing.T) {
    r := newRuntime(t, Options{Probe: noChannels})
    p := packet.Build("stale", r.SelfID(), "node_remote", protocol.ClassUnset)
    _, err := r.Queue().EnqueueWithHold(p, "node_remote", -time.Second)
    require.NoError(t, err)

    stats := r.Tick()
    require.Equal(t, relay.DrainStats{Delivered: 0, Remaining: 0, Expired: 1}, stats.Drain)
    require.EqualValues(t, 1, r.Metrics().Snapshot().Expired)
}

func TestRegisterPeerSelfRejected(t *testing.T) {
    r := newRuntime(t, Options{})
    require.Nil(t, r.RegisterPeer(peers.Peer{NodeID: r.SelfID()}))
    require.Zero(t, r.Metrics().Snapshot().PeersSighted)
}

func TestHeartbeatCadence(t *testing.T) {
    r := newRuntime(t, Options{})
    var beacons, sweeps int
    for i := 0; i < 100; i++ {
        st := r.Tick()
        if st.Beaconed { beacons++ }
        if st.Tick%sweepEvery == 0 { sweeps++ }
    }
    require.Equal(t, 10, beacons)
    require.Equal(t, 2, sweeps)
    require.EqualValues(t, 100, r.Metrics().Snapshot().Ticks)
}

func TestRuntimesAreIndependent(t *testing.T) {
    a := newRuntime(t, Options{})
    b := newRuntime(t, Options{})
    require.NotEqual(t, a.SelfID(), b.SelfID())
    a.Send("only a", "node_x")
    require.Zero(t, b.Metrics().Snapshot().Transmissions)
}

func TestShouldGossipUsesInjectedSample(t *testing.T) {
    low := newRuntime(t, Options{Sample: func() float64 { return 0.0 }})
    high := newRuntime(t, Options{Sample: func() float64 { return 0.99 }})
    f, err := protocol.EncodeFrame("routine", protocol.FrameOptions{Priority: 6})
    require.NoError(t, err)
    require.True(t, low.ShouldGossip(f))
    require.False(t, high.ShouldGossip(f))
    require.False(t, low.ShouldGossip(nil))
}
