// Package lifecycle applies ticket and task transitions.
//
// Each transition that mutates a record runs inside the registry's critical
// section for the record's resource id, so two events racing on one channel
// observe each other's effects. Destructive platform calls (channel
// deletion) happen only after the record lookup succeeded, and the record
// is removed only after the channel is gone.
package lifecycle
