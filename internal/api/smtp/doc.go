// Package smtp accepts camera notification mails. Every envelope recipient
// names a camera; the adapter turns it into a motion trigger by calling the
// HTTP trigger endpoint over loopback.
package smtp
