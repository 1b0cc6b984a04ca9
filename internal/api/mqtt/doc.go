// Package mqtt subscribes to the configured camera topics and feeds every
// received (topic, payload) pair through normalization into the resolver.
// Results are logged; nothing is published back to the broker.
package mqtt
