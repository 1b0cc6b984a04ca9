// Package normalize turns the wire format of each ingress channel into a
// canonical trigger.Trigger, or rejects it.
//
// The functions are pure: they never touch the registry's cameras, presence or
// debounce state. Only the MQTT rules need the topic table.
package normalize
