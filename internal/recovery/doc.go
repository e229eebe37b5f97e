// Package recovery aligns persisted tickets with the channels that still exist
// on the platform. It runs once at startup, after the gateway is ready and
// before any interaction is dispatched.
package recovery
