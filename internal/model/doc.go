// Package model contains the interfaces shared by several packages.
//
// This package should only contain interfaces that separate unrelated
// pieces of code and make unit testing easier. It should not contain
// logic, unless that logic is strictly tied to the interfaces.
//
// The content of this package is:
//
// - logger.go: an apex/log compatible logger used by the pipeline
// driver, the artifact store and the tracking run.
package model
