package instance

import "os"

// GetID returns the worker instance identifier or a default value. The id is
// used as the lease owner for the recovery run lock.
func GetID() string {
	if id := os.Getenv("WORKER_ID"); id != "" {
		return id
	}
	return "daybreak-worker-0"
}
