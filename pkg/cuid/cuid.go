// Package cuid generates collision-resistant, unguessable identifiers in the
// cuid2 format: a random lowercase letter followed by a base36 SHA3-512 digest
// of the time, a process counter, random entropy and a host fingerprint.
package cuid

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math/big"
	"os"
	"regexp"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/sha3"
)

const (
	DefaultLength = 24
	MinLength     = 2
	MaxLength     = 32

	alphabet = "abcdefghijklmnopqrstuvwxyz"
)

var validID = regexp.MustCompile(`^[a-z][0-9a-z]+$`)

// Generator creates ids of a fixed length. The zero value is not usable; use New.
type Generator struct {
	length      int
	counter     atomic.Uint64
	fingerprint string
}

// New returns a generator for ids of the given length.
func New(length int) (*Generator, error) {
	if length < MinLength || length > MaxLength {
		return nil, fmt.Errorf("cuid: length %d out of range [%d, %d]", length, MinLength, MaxLength)
	}
	g := &Generator{length: length}
	g.counter.Store(randomUint64() % 476782367)
	g.fingerprint = createFingerprint()
	return g, nil
}

var defaultGenerator, _ = New(DefaultLength)

// CreateID returns a new id of DefaultLength.
func CreateID() string {
	return defaultGenerator.CreateID()
}

// CreateID returns a new id.
func (g *Generator) CreateID() string {
	first := alphabet[randomUint64()%uint64(len(alphabet))]
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	count := strconv.FormatUint(g.counter.Add(1), 36)
	salt := createEntropy(g.length)

	digest := hash(ts + salt + count + g.fingerprint)
	return string(first) + digest[1:g.length]
}

// IsValid reports whether s is syntactically a cuid2 id.
func IsValid(s string) bool {
	if len(s) < MinLength || len(s) > MaxLength {
		return false
	}
	return validID.MatchString(s)
}

func hash(input string) string {
	sum := sha3.Sum512([]byte(input))
	// drop the first char; it is biased by the leading bytes of the digest
	return new(big.Int).SetBytes(sum[:]).Text(36)[1:]
}

func createEntropy(length int) string {
	out := make([]byte, 0, length)
	for len(out) < length {
		out = strconv.AppendUint(out, randomUint64()%36, 36)
	}
	return string(out)
}

func createFingerprint() string {
	host, _ := os.Hostname()
	return hash(host + strconv.Itoa(os.Getpid()) + createEntropy(MaxLength))
}

func randomUint64() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(fmt.Sprintf("cuid: crypto/rand failed: %v", err))
	}
	return binary.BigEndian.Uint64(b[:])
}
