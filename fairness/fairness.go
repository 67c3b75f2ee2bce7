// Package fairness recomputes draw outcomes from revealed seeds so anyone can
// check that winning numbers were not chosen after the fact.
package fairness

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strconv"
)

// byteStream yields an unbounded deterministic byte sequence derived from a
// seed digest, one sha256 block at a time.
type byteStream struct {
	seed    [sha256.Size]byte
	counter uint64
	block   [sha256.Size]byte
	offset  int
}

func newByteStream(seed [sha256.Size]byte) *byteStream {
	s := &byteStream{seed: seed, offset: sha256.Size}
	return s
}

func (s *byteStream) nextUint32() uint32 {
	if s.offset+4 > sha256.Size {
		var buf [sha256.Size + 8]byte
		copy(buf[:], s.seed[:])
		binary.BigEndian.PutUint64(buf[sha256.Size:], s.counter)
		s.block = sha256.Sum256(buf[:])
		s.counter++
		s.offset = 0
	}
	v := binary.BigEndian.Uint32(s.block[s.offset:])
	s.offset += 4
	return v
}

// uniform returns a uniformly distributed value in [0, n) using rejection
// sampling, so no modulo bias can skew the selection.
func (s *byteStream) uniform(n uint32) uint32 {
	limit := (1 << 32 / uint64(n)) * uint64(n)
	for {
		v := s.nextUint32()
		if uint64(v) < limit {
			return v % n
		}
	}
}

// WinningNumbers deterministically derives numbersCount distinct numbers in
// [1, numbersMax] from the two seeds and the nonce. The same inputs always
// produce the same set; any change to either seed produces an unrelated one.
// Returns nil if the parameters cannot describe a valid draw.
func WinningNumbers(serverSeed, clientSeed string, nonce int64, numbersCount, numbersMax int) []int {
	if serverSeed == "" || clientSeed == "" {
		return nil
	}
	if numbersCount <= 0 || numbersMax < numbersCount {
		return nil
	}

	seed := sha256.Sum256([]byte(serverSeed + clientSeed + strconv.FormatInt(nonce, 10)))
	stream := newByteStream(seed)

	pool := make([]int, numbersMax)
	for i := range pool {
		pool[i] = i + 1
	}

	numbers := make([]int, 0, numbersCount)
	remaining := numbersMax
	for i := 0; i < numbersCount; i++ {
		idx := int(stream.uniform(uint32(remaining)))
		numbers = append(numbers, pool[idx])
		pool[idx] = pool[remaining-1]
		remaining--
	}

	return numbers
}

// Verify recomputes the draw outcome and compares it to the claimed numbers
// as a set; a ticket holds an unordered combination. Returns false, never an
// error, when either seed is missing: verification is only meaningful after
// both seeds are revealed post-draw.
//
// This does not check the pre-draw hash commitment of the server seed;
// callers combine both checks.
func Verify(serverSeed, clientSeed string, nonce int64, claimedNumbers []int, numbersCount, numbersMax int) bool {
	expected := WinningNumbers(serverSeed, clientSeed, nonce, numbersCount, numbersMax)
	if expected == nil {
		return false
	}
	if len(claimedNumbers) != len(expected) {
		return false
	}

	set := make(map[int]struct{}, len(expected))
	for _, n := range expected {
		set[n] = struct{}{}
	}
	for _, n := range claimedNumbers {
		if _, ok := set[n]; !ok {
			return false
		}
		delete(set, n)
	}
	return len(set) == 0
}

// SeedHash returns the hex-encoded sha256 commitment of a server seed, the
// value published before the draw.
func SeedHash(serverSeed string) string {
	sum := sha256.Sum256([]byte(serverSeed))
	return hex.EncodeToString(sum[:])
}
