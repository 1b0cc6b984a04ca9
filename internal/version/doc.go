// Package version carries the build metadata of camera-funnel. The variables
// are set through -ldflags at release time and keep development defaults
// otherwise.
package version
