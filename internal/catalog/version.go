package catalog

import (
	"crypto/rand"
	"math/big"

	"github.com/objectgw/sal/internal/storageerr"
)

// Sep is the reserved separator byte between an object name and its
// version instance in a bucket-index key (spec.md §3.5, §6.3).
const Sep = 0x07

// base62Alphabet is sorted so lexicographic string order matches numeric
// order, per spec.md §6.3.
const base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// maxTS = 62^8 - 1, the width spec.md §6.3 fixes for the inverted
// timestamp component of a version instance.
var maxTS = func() *big.Int {
	b := big.NewInt(62)
	b.Exp(b, big.NewInt(8), nil)
	b.Sub(b, big.NewInt(1))
	return b
}()

const tsWidth = 8
const instanceRandLen = 23

// encodeBase62Fixed encodes n in base62 using exactly width characters,
// left-padded with the alphabet's zero character.
func encodeBase62Fixed(n *big.Int, width int) string {
	out := make([]byte, width)
	base := big.NewInt(62)
	rem := new(big.Int).Set(n)
	mod := new(big.Int)
	for i := width - 1; i >= 0; i-- {
		rem.DivMod(rem, base, mod)
		out[i] = base62Alphabet[mod.Int64()]
	}
	return string(out)
}

func decodeBase62(s string) (*big.Int, error) {
	n := new(big.Int)
	base := big.NewInt(62)
	for _, c := range s {
		idx := indexInAlphabet(byte(c))
		if idx < 0 {
			return nil, storageerr.New(storageerr.KindInvalidArgument, "catalog.decodeBase62", s, nil)
		}
		n.Mul(n, base)
		n.Add(n, big.NewInt(int64(idx)))
	}
	return n, nil
}

func indexInAlphabet(c byte) int {
	for i := 0; i < len(base62Alphabet); i++ {
		if base62Alphabet[i] == c {
			return i
		}
	}
	return -1
}

// EncodeTimestamp encodes msSinceEpoch as the 8-char inverted timestamp
// prefix of a version instance, so lexicographic order sorts newest
// first: encoded(t2) < encoded(t1) for t1 < t2 (spec.md §3.5, testable
// property #6).
func EncodeTimestamp(msSinceEpoch int64) string {
	inv := new(big.Int).Sub(maxTS, big.NewInt(msSinceEpoch))
	return encodeBase62Fixed(inv, tsWidth)
}

// DecodeTimestamp inverts EncodeTimestamp.
func DecodeTimestamp(s string) (int64, error) {
	if len(s) != tsWidth {
		return 0, storageerr.New(storageerr.KindInvalidArgument, "catalog.DecodeTimestamp", s, nil)
	}
	inv, err := decodeBase62(s)
	if err != nil {
		return 0, err
	}
	ms := new(big.Int).Sub(maxTS, inv)
	return ms.Int64(), nil
}

// randomAlphanumeric returns n cryptographically random base62 characters.
func randomAlphanumeric(n int) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(base62Alphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = base62Alphabet[idx.Int64()]
	}
	return string(out), nil
}

// NewInstance generates a fresh 31-character version instance: an 8-char
// inverted-timestamp prefix followed by 23 random alphanumeric characters
// (spec.md §3.5).
func NewInstance(msSinceEpoch int64) (string, error) {
	rnd, err := randomAlphanumeric(instanceRandLen)
	if err != nil {
		return "", err
	}
	return EncodeTimestamp(msSinceEpoch) + rnd, nil
}

// ObjectKey builds the bucket-index primary key for (name, instance),
// per spec.md §3.5: "<name> SEP <instance>". The null-version uses the
// empty instance (key ends in SEP).
func ObjectKey(name, instance string) []byte {
	k := make([]byte, 0, len(name)+1+len(instance))
	k = append(k, name...)
	k = append(k, Sep)
	k = append(k, instance...)
	return k
}

// NullKey is ObjectKey(name, "").
func NullKey(name string) []byte {
	return ObjectKey(name, "")
}
