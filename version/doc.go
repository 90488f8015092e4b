// Package version reports the build version of httpkit and derives the
// default User-Agent header from it.
//
//	go build -ldflags "-X github.com/kbukum/httpkit/version.Version=1.4.0"
package version
