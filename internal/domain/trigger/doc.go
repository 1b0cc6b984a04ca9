// Package trigger holds the canonical event shape every ingress channel is
// normalized into, and the Result returned to the channel that delivered it.
package trigger
