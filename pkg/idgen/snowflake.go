package idgen

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// ============================================================================
// Snowflake ID generator
// ============================================================================
//
// Business reference numbers must be globally unique, trend upward for
// index locality, and survive concurrent generation without coordination.
//
// 64-bit layout:
//
//   0 - 41-bit timestamp - 10-bit worker ID - 12-bit sequence
//   |   |                  |                  |
//   |   |                  |                  +-- per-millisecond sequence (0-4095)
//   |   |                  +-- worker ID (0-1023)
//   |   +-- millisecond timestamp (~69 years of range)
//   +-- sign bit, always 0
//
// ============================================================================

const (
	epoch          = int64(1704067200000) // 2024-01-01 00:00:00 UTC
	workerIDBits   = 10
	sequenceBits   = 12
	maxWorkerID    = -1 ^ (-1 << workerIDBits)
	maxSequence    = -1 ^ (-1 << sequenceBits)
	workerIDShift  = sequenceBits
	timestampShift = sequenceBits + workerIDBits
)

type Snowflake struct {
	mu        sync.Mutex
	timestamp int64
	workerID  int64
	sequence  int64
}

var (
	defaultGenerator *Snowflake
	once             sync.Once
)

// Init sets up the default generator. workerID must be unique per
// running instance.
func Init(workerID int64) {
	once.Do(func() {
		if workerID < 0 || workerID > maxWorkerID {
			log.Fatalf("workerID must be between 0 and %d", maxWorkerID)
		}
		defaultGenerator = &Snowflake{
			workerID:  workerID,
			timestamp: 0,
			sequence:  0,
		}
	})
}

func NextID() int64 {
	if defaultGenerator == nil {
		Init(1)
	}
	return defaultGenerator.Generate()
}

func (s *Snowflake) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()

	if now == s.timestamp {
		s.sequence = (s.sequence + 1) & maxSequence
		if s.sequence == 0 {
			// sequence exhausted, spin to the next millisecond
			for now <= s.timestamp {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		s.sequence = 0
	}

	s.timestamp = now

	id := ((now - epoch) << timestampShift) |
		(s.workerID << workerIDShift) |
		s.sequence

	return id
}

func numberWithPrefix(prefix string) string {
	id := NextID()
	timestamp := time.Now().Format("20060102150405")
	return fmt.Sprintf("%s%s%08d", prefix, timestamp, id%100000000)
}

// GenerateDepositNo returns a deposit reference, e.g. DEP2026011514305212345678.
func GenerateDepositNo() string {
	return numberWithPrefix("DEP")
}

// GenerateWithdrawalNo returns a withdrawal reference.
func GenerateWithdrawalNo() string {
	return numberWithPrefix("WDR")
}

// GenerateNodeNo returns a node contract reference.
func GenerateNodeNo() string {
	return numberWithPrefix("NOD")
}

// GenerateBonusNo returns a referral bonus reference.
func GenerateBonusNo() string {
	return numberWithPrefix("BON")
}

// GenerateTransactionNo returns a balance ledger entry reference.
func GenerateTransactionNo() string {
	return numberWithPrefix("TXN")
}

// GenerateAdjustNo returns a reference for an administrative adjustment.
func GenerateAdjustNo() string {
	return numberWithPrefix("ADJ")
}
