// Package journal records every forwarded event in a sqlite database.
//
// The Journal is an event sink: the resolver hands it each forwarded trigger,
// and the admin listener reads the most recent rows back.
package journal
