package supervisor

import (
	"fmt"
	"sync/atomic"
	"time"
)

var requestSeq uint64

// newRequestID mints a fresh per-request token, used solely to match a
// response back to its awaiter (see the glossary's "Request id").
func newRequestID() string {
	n := atomic.AddUint64(&requestSeq, 1)
	return fmt.Sprintf("req-%d-%d", time.Now().UnixNano(), n)
}
