package catalog

import (
	"encoding/binary"

	jsoniter "github.com/json-iterator/go"
	"github.com/objectgw/sal/internal/storageerr"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Every record value is schema-versioned per spec.md §6.3: each encoder
// writes <struct-version, compat-version, length, fields...>. Decoders
// must reject payloads whose compat-version is higher than what they
// support, and accept same-or-lower compat-versions of older readers.
const headerLen = 2 + 2 + 4 // structVersion, compatVersion, length

// Encode serializes v (via jsoniter, a drop-in encoding/json-compatible
// codec) behind the fixed schema-versioned header.
func Encode(structVersion, compatVersion uint16, v interface{}) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := make([]byte, headerLen+len(body))
	binary.BigEndian.PutUint16(out[0:2], structVersion)
	binary.BigEndian.PutUint16(out[2:4], compatVersion)
	binary.BigEndian.PutUint32(out[4:8], uint32(len(body)))
	copy(out[headerLen:], body)
	return out, nil
}

// Decode parses a payload written by Encode into v, rejecting payloads
// whose compat-version exceeds maxCompatVersion understood by the reader.
func Decode(data []byte, maxCompatVersion uint16, v interface{}) error {
	if len(data) < headerLen {
		return storageerr.New(storageerr.KindInvalidArgument, "catalog.Decode", "", nil)
	}
	compatVersion := binary.BigEndian.Uint16(data[2:4])
	length := binary.BigEndian.Uint32(data[4:8])
	if compatVersion > maxCompatVersion {
		return storageerr.New(storageerr.KindInvalidArgument, "catalog.Decode", "incompatible schema version", nil)
	}
	if int(headerLen+length) > len(data) {
		return storageerr.New(storageerr.KindInvalidArgument, "catalog.Decode", "truncated record", nil)
	}
	return json.Unmarshal(data[headerLen:headerLen+length], v)
}
