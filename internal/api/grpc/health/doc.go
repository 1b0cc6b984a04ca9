// Package health exposes the standard grpc.health.v1 service. Every listener
// of the funnel is reported as its own service name, and the empty service
// name reports the process as a whole.
package health
