package packet

import (
    "testing"

    "github.com/stretchr/testify/require"

    "meshrelay/pkg/protocol"
)

func TestBuildOverheadInvariant(t *testing.T) {
    units := []any{
        "tiny",
        map[string]any{"kind": "observation", "value": 12.5},
        map[string]any{"blob": make([]byte, 4096)},
    }
    for _, u := range units {
        p := Build(u, "node_src", "node_dst", protocol.ClassGeneral)
        require.NotNil(t, p)
        require.GreaterOrEqual(t, p.TotalBytes, p.PayloadBytes+64)
        require.Equal(t, p.TotalBytes, p.Total())
        require.Equal(t, p.PayloadBytes, len(p.Payload))
    }
}

func TestBuildNilUnit(t *testing.T) {
    require.Nil(t, Build(nil, "node_src", "node_dst", protocol.ClassGeneral))
}

func TestBuildFields(t *testing.T) {
    p := Build(map[string]any{"k": "v"}, "node_src", "node_dst", protocol.ClassThreat)
    require.NotNil(t, p)
    require.NotEmpty(t, p.ID)
    require.Equal(t, StatusPending, p.Status)
    require.Equal(t, "node_src", p.Header.SourceID)
    require.Equal(t, "node_dst", p.Header.DestID)
    require.EqualValues(t, DefaultTTL, p.Header.TTL)
    require.Len(t, p.ContentHash, 32)
    require.True(t, p.Header.Flags.Has(protocol.FlagPriorityBoost))
    require.Equal(t, protocol.ClassThreat, p.PriorityClass)
}

func TestTotalRecomputedAfterPayloadChange(t *testing.T) {
    p := Build("unit", "node_src", "node_dst", protocol.ClassUnset)
    before := p.Total()
    p.Payload = append(p.Payload, 0x00)
    require.Equal(t, before+1, p.Total())
}

func TestVerifyDetectsTamper(t *testing.T) {
    p := Build(map[string]any{"amount": 100}, "node_src", "node_dst", protocol.ClassTransaction)
    require.True(t, p.Verify())
    p.Payload[0] ^= 0xFF
    require.False(t, p.Verify())
}

func TestUnitRoundtrip(t *testing.T) {
    p := Build(map[string]any{"name": "sensor-7"}, "node_src", "node_dst", protocol.ClassUnset)
    u, err := p.Unit()
    require.NoError(t, err)
    m, ok := u.(map[any]any)
    require.True(t, ok, "unit decoded to %T", u)
    require.Equal(t, "sensor-7", m["name"])
}
