// Package version contains the basiccleaning version.
package version

// Version is the software version.
const Version = "0.4.0"
