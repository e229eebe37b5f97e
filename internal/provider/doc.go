// Package provider declares the narrow view of the chat platform that the
// lifecycle, recovery, and overdue components depend on. The discord package
// implements it against the live gateway; tests use the in-memory fake from
// testsupport.
package provider
