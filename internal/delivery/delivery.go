// Package delivery holds the inbound surfaces of the service: the REST and
// live-sync API and the push worker.
package delivery

import "context"

// Delivery is a server started by the process entrypoint.
type Delivery interface {
	// Serve blocks until the server stops.
	Serve(ctx context.Context) error
}
