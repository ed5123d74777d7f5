package activity

import (
	"fmt"
	"os"
	"time"
)

// NewConsumerID generates a unique consumer identifier for this process.
// Format: hostname-pid-nano ensures uniqueness across restarts.
func NewConsumerID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-%d-%d", hostname, os.Getpid(), time.Now().UnixNano())
}
