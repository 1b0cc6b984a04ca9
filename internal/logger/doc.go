// Package logger wraps zap for the funnel. A global sugared logger is used
// unless the context carries a scoped one (see WithName and WithKV); level and
// line format are set once at startup from settings or the CLI flag.
//
// Adapters, the resolver and the listeners all receive a context and pull the
// logger from it, so every line carries the channel and camera it belongs to.
package logger
