// Package version reports the build version of a job binary.
//
// Values are set at compile time via -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/mrstream/version.Version=1.2.0" ./cmd/wordcount
package version
