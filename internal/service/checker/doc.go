// Package checker implements the "health" command, which queries the gRPC
// health service of a running funnel for every configured listener.
package checker
