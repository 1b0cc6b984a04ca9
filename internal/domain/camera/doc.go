// Package camera contains the camera-side domain types of the funnel.
//
// It defines Config (per-camera settings), TopicMapping (how an MQTT topic maps
// onto a camera and trigger kind) and Presence (the at-home suppression policy
// state), with Clone helpers so callers never share internal references.
package camera
