package relay

import (
    "bytes"

    "meshrelay/pkg/protocol"
)

// ClassifyPriority is the legacy-compatibility shim for packets whose caller
// did not set an explicit priority class: it inspects the serialized payload
// for well-known markers. The keyword set is heuristic; new callers should
// set PriorityClass at packet construction instead.
func ClassifyPriority(payload []byte) protocol.PriorityClass {
    lower := bytes.ToLower(payload)
    switch {
    case containsAny(lower, "threat", "emergency", "alert"):
        return protocol.ClassThreat
    case containsAny(lower, "transaction", "payment", "ledger", "royalty"):
        return protocol.ClassTransaction
    case containsAny(lower, "consciousness", "entity", "affect"):
        return protocol.ClassEntity
    case containsAny(lower, "knowledge", "wisdom", "learning"):
        return protocol.ClassKnowledge
    default:
        return protocol.ClassGeneral
    }
}

func containsAny(payload []byte, markers ...string) bool {
    for _, m := range markers {
        if bytes.Contains(payload, []byte(m)) { return true }
    }
    return false
}
