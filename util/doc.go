// Package util holds small helpers shared by the httpkit packages.
package util
