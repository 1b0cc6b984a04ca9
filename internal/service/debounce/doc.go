// Package debounce implements the per-camera resolution engine.
//
// A Resolver decides for every normalized trigger whether it is suppressed,
// forwarded to the event sink, or treated as a reset. Each known camera owns a
// lane: a goroutine that serializes that camera's triggers and exclusively owns
// its debounce timer. Presence lookup, the broadcast notification, the timer
// check and the forward all run inside the lane, so two back-to-back triggers
// for one camera can never both observe an idle camera.
package debounce
