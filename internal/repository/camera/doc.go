// Package camera implements the read-only camera registry.
//
// The Registry is built once from configuration and answers camera lookups for
// the resolver and exact topic lookups for the MQTT normalizer.
package camera
