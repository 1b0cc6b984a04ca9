// Package funnel assembles the camera event funnel: it loads configuration,
// builds the registry, presence store, journal and resolver, and supervises
// the ingress listeners until the context is canceled.
package funnel
