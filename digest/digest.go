package digest

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"github.com/zeebo/xxh3"
)

// encodingVersion is bumped whenever the canonical byte encoding changes.
// Cached objects written under a different version are unreachable by design.
const encodingVersion = 1

// ErrModelIDTooLong is returned when the model identifier does not fit the
// 16-bit length field of the canonical encoding.
var ErrModelIDTooLong = errors.New("model id exceeds 65535 bytes")

// PrefixKey is the 128-bit content digest of a token prefix.
//
// Two prefixes collide exactly when their (version, block size, model id,
// tokens) encodings are byte-identical, so equal prefixes map to the same
// object keys across machines. No per-instance salting.
type PrefixKey [16]byte

// Hex renders the key as lowercase hex, the form used inside object keys.
func (k PrefixKey) Hex() string {
	return hex.EncodeToString(k[:])
}

// MakePrefixKey computes the digest of a token prefix under a given block
// size and model id.
//
// The canonical encoding, all integers little-endian:
//
//	[u8  version = 1]
//	[u32 block_size_tokens]
//	[u16 model_id_byte_length]
//	[bytes model_id]
//	[u32 token]*
//
// The digest is XXH3-128 over this buffer, laid out as the 8 little-endian
// bytes of the low half followed by the 8 little-endian bytes of the high
// half. The layout is wire-visible through object keys and must not change.
func MakePrefixKey(tokens []uint32, blockSize uint32, modelID string) (PrefixKey, error) {
	if len(modelID) > math.MaxUint16 {
		return PrefixKey{}, ErrModelIDTooLong
	}

	buf := make([]byte, 0, 1+4+2+len(modelID)+4*len(tokens))
	buf = append(buf, encodingVersion)
	buf = binary.LittleEndian.AppendUint32(buf, blockSize)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(modelID)))
	buf = append(buf, modelID...)
	for _, tok := range tokens {
		buf = binary.LittleEndian.AppendUint32(buf, tok)
	}

	sum := xxh3.Hash128(buf)

	var key PrefixKey
	binary.LittleEndian.PutUint64(key[0:8], sum.Lo)
	binary.LittleEndian.PutUint64(key[8:16], sum.Hi)
	return key, nil
}

// ObjectKey builds the store key for one block of a prefix:
//
//	{model_id}/b{block_size}/{prefix_hex}/{block_index}.kv
//
// The format is shared with other cache implementations and is bit-exact.
func ObjectKey(modelID string, blockSize uint32, prefixHex string, blockIndex uint32) string {
	return fmt.Sprintf("%s/b%d/%s/%d.kv", modelID, blockSize, prefixHex, blockIndex)
}
