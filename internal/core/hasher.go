package core

import (
	"TrancheAllocator/internal/ledger"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

const hashSeed = "TrancheAllocator:rounds:v1"

// RoundHasher chains a SHA-256 over the ledger after every round:
//
//	tip(n) = SHA-256(tip(n-1) || n || path, balance for each account)
//
// Accounts are folded in path order, so two runs over the same input end on
// the same tip.
type RoundHasher struct {
	tip [32]byte
}

func NewRoundHasher() *RoundHasher {
	return &RoundHasher{tip: sha256.Sum256([]byte(hashSeed))}
}

// Chain folds the tracker's balances for round into the tip and returns it.
func (h *RoundHasher) Chain(round int, tracker *ledger.BalanceTracker) [32]byte {
	accounts := tracker.Accounts()
	buf := make([]byte, 0, len(h.tip)+4+len(accounts)*24)

	buf = append(buf, h.tip[:]...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(round))
	for _, key := range accounts {
		path := key.AccountPath()
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(path)))
		buf = append(buf, path...)
		buf = binary.BigEndian.AppendUint64(buf, uint64(tracker.Balance(key)))
	}

	h.tip = sha256.Sum256(buf)
	return h.tip
}

func (h *RoundHasher) Tip() [32]byte {
	return h.tip
}

// HashString hex-encodes a state hash.
func HashString(hash [32]byte) string {
	return hex.EncodeToString(hash[:])
}
