// Package presence implements the "presence" command: it prints or rewrites
// the at-home policy file that a running funnel follows.
package presence
