package packet

import (
    "bytes"
    "math/rand"
    "testing"

    "github.com/stretchr/testify/require"
)

func TestSplitFitsInOneChunk(t *testing.T) {
    data := []byte("short payload")
    frags := Split(data, 1024)
    require.Len(t, frags, 1)
    require.Equal(t, 0, frags[0].Index)
    require.Equal(t, 1, frags[0].Total)
    require.Equal(t, data, frags[0].Chunk)
}

func TestSplitReassembleRoundtrip(t *testing.T) {
    data := bytes.Repeat([]byte{0xA5, 0x5A, 0x01}, 700)
    for _, chunk := range []int{1, 7, 64, 222, 2048, len(data), len(data) * 2} {
        frags := Split(data, chunk)
        require.NotEmpty(t, frags, "chunk=%d", chunk)
        for i, f := range frags {
            require.Equal(t, i, f.Index)
            require.Equal(t, len(frags), f.Total)
            require.Equal(t, frags[0].TransferID, f.TransferID)
            require.LessOrEqual(t, len(f.Chunk), chunk)
        }
        require.Equal(t, data, Reassemble(frags), "chunk=%d", chunk)
    }
}

func TestReassembleOrderIndependent(t *testing.T) {
    data := bytes.Repeat([]byte("0123456789"), 50)
    frags := Split(data, 37)
    require.Greater(t, len(frags), 2)
    shuffled := append([]Fragment(nil), frags...)
    rand.New(rand.NewSource(1)).Shuffle(len(shuffled), func(i, j int) {
        shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
    })
    require.Equal(t, data, Reassemble(shuffled))
}

func TestReassembleRejectsIncompleteSets(t *testing.T) {
    data := bytes.Repeat([]byte{0xEE}, 500)
    frags := Split(data, 100)
    require.Len(t, frags, 5)

    require.Nil(t, Reassemble(nil))
    require.Nil(t, Reassemble([]Fragment{}))
    // missing one index
    require.Nil(t, Reassemble(frags[:4]))
    require.Nil(t, Reassemble(append(append([]Fragment(nil), frags[:2]...), frags[3:]...)))
    // duplicate index standing in for a missing one
    dup := append([]Fragment(nil), frags[:4]...)
    dup = append(dup, frags[2])
    require.Nil(t, Reassemble(dup))
    // foreign fragment mixed in
    other := Split(data, 100)
    mixed := append([]Fragment(nil), frags[:4]...)
    mixed = append(mixed, other[4])
    require.Nil(t, Reassemble(mixed))
    // inconsistent total
    bad := append([]Fragment(nil), frags...)
    bad[1].Total = 6
    require.Nil(t, Reassemble(bad))
}

func TestSplitInvalidInputs(t *testing.T) {
    require.Nil(t, Split(nil, 10))
    require.Nil(t, Split([]byte("data"), 0))
    require.Nil(t, Split([]byte("data"), -3))
}
