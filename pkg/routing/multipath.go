package routing

import (
    "github.com/google/uuid"
    "go.uber.org/zap"

    "meshrelay/pkg/channel"
)

// TransferStatus tracks a multi-component send.
type TransferStatus string

const (
    TransferPending    TransferStatus = "pending"
    TransferInProgress TransferStatus = "in_progress"
    TransferCompleted  TransferStatus = "completed"
    TransferFailed     TransferStatus = "failed"
    TransferPartial    TransferStatus = "partial"
)

// Transfer is the bookkeeping record for one multi-path send.
type Transfer struct {
    ID              string
    TotalComponents int
    SentComponents  int
    ChannelsUsed    []string
    Status          TransferStatus
}

// Path assigns a subset of components (by input index) to one channel.
type Path struct {
    Channel    channel.Spec
    Components []int
}

// Plan is the result of PlanMultiPath.
type Plan struct {
    OK       bool
    Reason   string
    Transfer Transfer
    Paths    []Path
}

// PlanMultiPath spreads componentSizes across the usable channels round-robin,
// in ascending channel priority. Every component lands on exactly one path.
// An empty component list is rejected; a single usable channel still yields a
// valid one-path plan; zero usable channels defer the whole transfer to
// store-and-forward.
func (e *Engine) PlanMultiPath(componentSizes []int) Plan {
    if len(componentSizes) == 0 {
        return Plan{Reason: "no components to transfer"}
    }
    usable := e.reg.Usable()
    if len(usable) == 0 {
        return Plan{Reason: "no usable channels", Transfer: Transfer{
            ID:              uuid.NewString(),
            TotalComponents: len(componentSizes),
            Status:          TransferPending,
        }}
    }

    paths := make([]Path, len(usable))
    for i := range usable { paths[i] = Path{Channel: usable[i]} }
    for i := range componentSizes {
        p := &paths[i%len(paths)]
        p.Components = append(p.Components, i)
    }
    // drop channels that received nothing (fewer components than channels)
    used := paths[:0]
    names := make([]string, 0, len(paths))
    for _, p := range paths {
        if len(p.Components) == 0 { continue }
        used = append(used, p)
        names = append(names, p.Channel.Name)
    }

    zap.L().Debug("multi-path plan",
        zap.Int("components", len(componentSizes)), zap.Strings("channels", names))
    return Plan{
        OK:    true,
        Paths: used,
        Transfer: Transfer{
            ID:              uuid.NewString(),
            TotalComponents: len(componentSizes),
            ChannelsUsed:    names,
            Status:          TransferInProgress,
        },
    }
}

// MarkSent records one completed component send and resolves the final status
// when everything has been attempted.
func (t *Transfer) MarkSent(ok bool) {
    if ok { t.SentComponents++ }
    if t.SentComponents >= t.TotalComponents {
        t.Status = TransferCompleted
    } else if !ok {
        t.Status = TransferPartial
    }
}
