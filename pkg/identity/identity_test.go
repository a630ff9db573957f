package identity

import (
    "strings"
    "testing"

    "github.com/stretchr/testify/require"

    "meshrelay/pkg/channel"
)

func TestSelfIDStableAndPrefixed(t *testing.T) {
    ident := New("", true)
    id := ident.SelfID()
    require.True(t, strings.HasPrefix(id, "node_"), "id = %q", id)
    require.Len(t, id, len("node_")+12)
    for i := 0; i < 10; i++ {
        require.Equal(t, id, ident.SelfID())
    }
}

func TestSelfIDDistinctAcrossInstances(t *testing.T) {
    a, b := New("", false), New("", false)
    require.NotEqual(t, a.SelfID(), b.SelfID())
}

func TestFixedID(t *testing.T) {
    ident := New("node_pinned01", false)
    require.Equal(t, "node_pinned01", ident.SelfID())
}

func TestBeaconReflectsChannelState(t *testing.T) {
    reg := channel.NewRegistry(nil)
    ident := New("", true)

    b := ident.Beacon(reg)
    require.Equal(t, ident.SelfID(), b.NodeID)
    require.True(t, b.RelayCapable)
    require.EqualValues(t, 1, b.ProtocolVersion)
    require.Equal(t, []string{"internet"}, b.ActiveChannels)
    require.Positive(t, b.Timestamp)

    reg.SetAvailable(channel.KindBluetooth, true)
    b = ident.Beacon(reg)
    require.Equal(t, []string{"internet", "bluetooth"}, b.ActiveChannels)
}

func TestBeaconNilRegistry(t *testing.T) {
    b := New("", false).Beacon(nil)
    require.Empty(t, b.ActiveChannels)
    require.False(t, b.RelayCapable)
}
