package mesh

import (
    "sync/atomic"

    "github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the monotonic counters of one runtime. Counters are plain
// atomics so they are queryable at any time without a registry; the type also
// implements prometheus.Collector for scraping.
type Metrics struct {
    transmissions  atomic.Uint64
    receptions     atomic.Uint64
    peersSighted   atomic.Uint64
    bytesSent      atomic.Uint64
    bytesReceived  atomic.Uint64
    relayEnqueued  atomic.Uint64
    relayDelivered atomic.Uint64
    relayDropped   atomic.Uint64
    expired        atomic.Uint64
    integrityFails atomic.Uint64
    duplicates     atomic.Uint64
    ticks          atomic.Uint64
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
    Transmissions  uint64 `json:"transmissions"`
    Receptions     uint64 `json:"receptions"`
    PeersSighted   uint64 `json:"peers_sighted"`
    BytesSent      uint64 `json:"bytes_sent"`
    BytesReceived  uint64 `json:"bytes_received"`
    RelayEnqueued  uint64 `json:"relay_enqueued"`
    RelayDelivered uint64 `json:"relay_delivered"`
    RelayDropped   uint64 `json:"relay_dropped"`
    Expired        uint64 `json:"expired"`
    IntegrityFails uint64 `json:"integrity_fails"`
    Duplicates     uint64 `json:"duplicates"`
    Ticks          uint64 `json:"ticks"`
}

// Snapshot returns current counter values.
func (m *Metrics) Snapshot() Snapshot {
    return Snapshot{
        Transmissions:  m.transmissions.Load(),
        Receptions:     m.receptions.Load(),
        PeersSighted:   m.peersSighted.Load(),
        BytesSent:      m.bytesSent.Load(),
        BytesReceived:  m.bytesReceived.Load(),
        RelayEnqueued:  m.relayEnqueued.Load(),
        RelayDelivered: m.relayDelivered.Load(),
        RelayDropped:   m.relayDropped.Load(),
        Expired:        m.expired.Load(),
        IntegrityFails: m.integrityFails.Load(),
        Duplicates:     m.duplicates.Load(),
        Ticks:          m.ticks.Load(),
    }
}

var (
    descTransmissions  = prometheus.NewDesc("meshrelay_transmissions_total", "Packets sent over a live channel.", nil, nil)
    descReceptions     = prometheus.NewDesc("meshrelay_receptions_total", "Packets received and verified.", nil, nil)
    descPeersSighted   = prometheus.NewDesc("meshrelay_peers_sighted_total", "First sightings of remote peers.", nil, nil)
    descBytesSent      = prometheus.NewDesc("meshrelay_bytes_sent_total", "Total bytes sent including overhead.", nil, nil)
    descBytesReceived  = prometheus.NewDesc("meshrelay_bytes_received_total", "Total bytes received including overhead.", nil, nil)
    descRelayEnqueued  = prometheus.NewDesc("meshrelay_relay_enqueued_total", "Packets deferred to store-and-forward.", nil, nil)
    descRelayDelivered = prometheus.NewDesc("meshrelay_relay_delivered_total", "Queued packets delivered by drains.", nil, nil)
    descRelayDropped   = prometheus.NewDesc("meshrelay_relay_dropped_total", "Packets dropped because relaying was unavailable.", nil, nil)
    descExpired        = prometheus.NewDesc("meshrelay_relay_expired_total", "Queued packets dropped by TTL.", nil, nil)
    descIntegrityFails = prometheus.NewDesc("meshrelay_integrity_failures_total", "Inbound packets failing the content hash check.", nil, nil)
    descDuplicates     = prometheus.NewDesc("meshrelay_duplicate_frames_total", "Inbound frames suppressed by dedup.", nil, nil)
    descTicks          = prometheus.NewDesc("meshrelay_heartbeat_ticks_total", "Heartbeat ticks executed.", nil, nil)
)

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
    ch <- descTransmissions
    ch <- descReceptions
    ch <- descPeersSighted
    ch <- descBytesSent
    ch <- descBytesReceived
    ch <- descRelayEnqueued
    ch <- descRelayDelivered
    ch <- descRelayDropped
    ch <- descExpired
    ch <- descIntegrityFails
    ch <- descDuplicates
    ch <- descTicks
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
    s := m.Snapshot()
    counter := func(d *prometheus.Desc, v uint64) {
        ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
    }
    counter(descTransmissions, s.Transmissions)
    counter(descReceptions, s.Receptions)
    counter(descPeersSighted, s.PeersSighted)
    counter(descBytesSent, s.BytesSent)
    counter(descBytesReceived, s.BytesReceived)
    counter(descRelayEnqueued, s.RelayEnqueued)
    counter(descRelayDelivered, s.RelayDelivered)
    counter(descRelayDropped, s.RelayDropped)
    counter(descExpired, s.Expired)
    counter(descIntegrityFails, s.IntegrityFails)
    counter(descDuplicates, s.Duplicates)
    counter(descTicks, s.Ticks)
}
