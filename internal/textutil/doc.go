// Package textutil provides text helpers shared by the command line and the
// offsite mirror: human-readable column labels and sanitizing of object keys
// and file names.
package textutil
