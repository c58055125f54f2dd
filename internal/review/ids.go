package review

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// IDGenerator hands out issue ids that are unique even when several are
// requested within the same millisecond.
type IDGenerator struct {
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

// NewIDGenerator returns a generator backed by a monotonic ULID entropy source.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// IssueID returns a new issue id of the form issue_<ulid>.
func (g *IDGenerator) IssueID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return "issue_" + ulid.MustNew(ulid.Timestamp(g.now()), g.entropy).String()
}

// RequestID returns a new random request id of the form req_<uuid>.
func RequestID() string {
	return "req_" + uuid.NewString()
}
