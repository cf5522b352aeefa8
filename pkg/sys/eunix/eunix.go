// Package eunix provides extra UNIX-specific system utilities.
package eunix
