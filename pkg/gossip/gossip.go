// Package gossip suppresses re-processing of already-seen frames and decides
// which frames are worth re-broadcasting.
package gossip

import (
    lru "github.com/hashicorp/golang-lru/v2"

    "meshrelay/pkg/protocol"
)

// DefaultCapacity bounds the seen set; the LRU evicts the oldest hashes when
// a long-lived node has processed more than this many distinct frames.
const DefaultCapacity = 8192

// GossipProbability is the sampling rate for ordinary (non-emergency)
// re-broadcast decisions.
const GossipProbability = 0.3

// SeenSet is a bounded membership set of content hashes already processed.
type SeenSet struct {
    cache *lru.Cache[string, struct{}]
}

// NewSeenSet builds a seen set with the given capacity (DefaultCapacity when
// size <= 0).
func NewSeenSet(size int) *SeenSet {
    if size <= 0 { size = DefaultCapacity }
    cache, err := lru.New[string, struct{}](size)
    if err != nil {
        // lru.New only fails on size < 1, which is excluded above
        panic("gossip: seen set init: " + err.Error())
    }
    return &SeenSet{cache: cache}
}

// Seen reports prior membership without mutating the set.
func (s *SeenSet) Seen(hash string) bool { return s.cache.Contains(hash) }

// Mark records a hash as processed.
func (s *SeenSet) Mark(hash string) { s.cache.Add(hash, struct{}{}) }

// CheckAndMark atomically records the hash and returns whether it was already
// present, so concurrent receivers of the same frame agree on exactly one
// first sighting.
func (s *SeenSet) CheckAndMark(hash string) bool {
    prior, _ := s.cache.ContainsOrAdd(hash, struct{}{})
    return prior
}

// Len returns the current number of tracked hashes.
func (s *SeenSet) Len() int { return s.cache.Len() }

// ShouldGossip decides whether a frame is re-broadcast. Emergency and threat
// traffic always propagates; everything else is sampled so gossip stays
// bounded. sample is an externally drawn uniform value in [0,1), injected so
// the decision is testable. A nil frame never gossips.
func ShouldGossip(f *protocol.Frame, sample float64) bool {
    if f == nil { return false }
    if f.Flags.Has(protocol.FlagEmergency) || f.Priority.Emergency() { return true }
    return sample < GossipProbability
}
