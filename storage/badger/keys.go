package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/ratatoskr/core"
)

// Key prefixes for different data types
const (
	queryRecordPrefix  = "qryrec"
	querySessionPrefix = "qrysess"
	chunkRecordPrefix  = "ctxchk"
	chunkSourcePrefix  = "ctxsrc"
)

// makeQueryRecordKey generates a key for a query record by query_id.
func makeQueryRecordKey(queryID string) []byte {
	return []byte(fmt.Sprintf("%s:%s", queryRecordPrefix, queryID))
}

// makeSessionKey generates a composite key for the session index.
// Format: prefix:session\x00timestamp:query_id
// The NUL byte terminates the session so that one session name is never
// a prefix of another's entries; the BigEndian timestamp keeps entries
// in chronological order under lexicographic iteration.
func makeSessionKey(session string, timestamp time.Time, queryID string) []byte {
	prefix := makePartialSessionKey(session)
	buf := make([]byte, len(prefix)+8+len(queryID))
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	offset += 8
	copy(buf[offset:], queryID)
	return buf
}

// makePartialSessionKey generates the scan prefix for one session's entries.
func makePartialSessionKey(session string) []byte {
	buf := make([]byte, len(querySessionPrefix)+1+len(session)+1)
	offset := copy(buf, querySessionPrefix)
	buf[offset] = ':'
	offset++
	offset += copy(buf[offset:], session)
	buf[offset] = 0x00
	return buf
}

// makeChunkRecordKey generates a key for a context chunk by ID.
func makeChunkRecordKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", chunkRecordPrefix, id))
}

// makeSourceKey generates a composite key for the source index.
// Format: prefix:source\x00id
func makeSourceKey(source string, id core.ID) []byte {
	prefix := makePartialSourceKey(source)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialSourceKey generates the scan prefix for one source's chunks.
func makePartialSourceKey(source string) []byte {
	buf := make([]byte, len(chunkSourcePrefix)+1+len(source)+1)
	offset := copy(buf, chunkSourcePrefix)
	buf[offset] = ':'
	offset++
	offset += copy(buf[offset:], source)
	buf[offset] = 0x00
	return buf
}
