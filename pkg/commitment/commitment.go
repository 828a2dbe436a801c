package commitment

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// SecretSize is the byte length of one swap secret.
const SecretSize = 32

// SecretSet holds the fresh secrets for one order and their keccak256
// digests. Secrets live in memory only for the lifetime of the polling loop
// and are never reused across orders.
type SecretSet struct {
	Secrets [][SecretSize]byte
	Hashes  [][SecretSize]byte
}

// HashLock is the commitment the swap-intent service holds against an order.
// Single-fill orders commit directly to the one secret; multi-fill orders
// commit to a merkle root over per-index leaves so that revealing secret i
// authorizes fill i without exposing any other preimage.
type HashLock struct {
	Root      [32]byte
	MultiFill bool
}

// GenerateSecrets produces count independent 32-byte secrets from the OS
// random source together with their keccak256 hashes. A failure of the
// random source is fatal and non-recoverable.
func GenerateSecrets(count int) (*SecretSet, error) {
	if count < 1 {
		return nil, fmt.Errorf("secret count must be >= 1, got %d", count)
	}
	set := &SecretSet{
		Secrets: make([][SecretSize]byte, count),
		Hashes:  make([][SecretSize]byte, count),
	}
	for i := 0; i < count; i++ {
		if _, err := rand.Read(set.Secrets[i][:]); err != nil {
			return nil, fmt.Errorf("random source unavailable: %w", err)
		}
		set.Hashes[i] = HashSecret(set.Secrets[i])
	}
	return set, nil
}

// HashSecret computes the one-way digest that pairs with a secret.
func HashSecret(secret [SecretSize]byte) [32]byte {
	var out [32]byte
	copy(out[:], crypto.Keccak256(secret[:]))
	return out
}

// BuildHashLock derives the lock structure for an order's secret set. The
// construction method must match the set size exactly: a single secret uses
// the single-fill path, anything larger the merkle path. Length mismatches
// are programming errors and fail loudly.
func BuildHashLock(secrets, hashes [][SecretSize]byte) (*HashLock, error) {
	if len(secrets) == 0 {
		return nil, fmt.Errorf("hash lock requires at least one secret")
	}
	if len(secrets) != len(hashes) {
		return nil, fmt.Errorf("secret/hash length mismatch: %d secrets, %d hashes", len(secrets), len(hashes))
	}

	if len(secrets) == 1 {
		return &HashLock{Root: HashSecret(secrets[0])}, nil
	}

	leaves := make([][32]byte, len(hashes))
	for i, h := range hashes {
		leaves[i] = leaf(uint64(i), h)
	}
	return &HashLock{Root: merkleRoot(leaves), MultiFill: true}, nil
}

// leaf binds a fill index to its secret hash: keccak256(uint64be(index) || hash).
func leaf(index uint64, hash [32]byte) [32]byte {
	buf := make([]byte, 8+32)
	binary.BigEndian.PutUint64(buf[:8], index)
	copy(buf[8:], hash[:])
	var out [32]byte
	copy(out[:], crypto.Keccak256(buf))
	return out
}

// merkleRoot folds leaves pairwise with keccak256; an odd leaf is promoted
// unchanged to the next level.
func merkleRoot(leaves [][32]byte) [32]byte {
	level := leaves
	for len(level) > 1 {
		next := make([][32]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			var pair [32]byte
			copy(pair[:], crypto.Keccak256(level[i][:], level[i+1][:]))
			next = append(next, pair)
		}
		level = next
	}
	return level[0]
}

// Hex returns the 0x-prefixed hex encoding used on the wire.
func Hex(b [32]byte) string {
	return hexutil.Encode(b[:])
}

// HexHashes encodes every hash in wire form, preserving order.
func HexHashes(hashes [][SecretSize]byte) []string {
	out := make([]string, len(hashes))
	for i, h := range hashes {
		out[i] = Hex(h)
	}
	return out
}
