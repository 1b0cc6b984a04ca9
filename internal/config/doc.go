// Package config defines the funnel settings and provides helpers to load,
// validate and save them in YAML format.
//
// Besides listener addresses it carries the camera list, from which the camera
// registry and the MQTT topic table are built.
package config
