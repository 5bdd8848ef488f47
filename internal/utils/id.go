package utils

import (
	"fmt"
	"sync/atomic"
	"time"
)

var idCounter uint32

// TimeID generates a time-based unique identifier like doc-1724572800123456789.
// A process-local counter disambiguates identifiers minted within the same
// nanosecond tick.
func TimeID(prefix string) string {
	n := atomic.AddUint32(&idCounter, 1)
	return fmt.Sprintf("%s-%d%03d", prefix, time.Now().UnixNano(), n%1000)
}
