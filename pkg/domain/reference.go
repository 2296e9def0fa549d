package domain

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ApplicationReferencePrefix marks customer-facing application references.
const ApplicationReferencePrefix = "LA-"

var (
	refMu   sync.Mutex
	refMono io.Reader
)

func init() {
	var seed int64
	_ = binary.Read(cryptorand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	refMono = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// NewApplicationReference returns "LA-" followed by a ULID stamped at t.
// References issued within the same millisecond still sort in issue order.
func NewApplicationReference(t time.Time) string {
	refMu.Lock()
	defer refMu.Unlock()

	ref, err := ulid.New(ulid.Timestamp(t.UTC()), refMono)
	if err != nil {
		// only reachable if the monotonic entropy overflows within one millisecond
		ref = ulid.MustNew(ulid.Timestamp(t.UTC()), cryptorand.Reader)
	}
	return ApplicationReferencePrefix + ref.String()
}

// ReferenceTime extracts the issue time encoded in a reference.
func ReferenceTime(reference string) (time.Time, bool) {
	raw, ok := strings.CutPrefix(reference, ApplicationReferencePrefix)
	if !ok {
		return time.Time{}, false
	}
	parsed, err := ulid.ParseStrict(raw)
	if err != nil {
		return time.Time{}, false
	}
	return ulid.Time(parsed.Time()).UTC(), true
}
