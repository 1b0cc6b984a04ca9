// Package httpapi holds the HTTP side of the funnel: the trigger endpoint
// (GET /<triggerType>[/reset]?<cameraName>), the operational admin router and
// a Listener that runs either of them with an explicit start and stop.
package httpapi
