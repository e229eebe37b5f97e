// Package services defines shared utilities consumed by the transition
// handlers, background workers, and the gateway adapter.
//
// Key responsibilities:
//   - Context helpers that stamp resource ids, transition names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper, and Kind/UserMessage which
//     translate failures into the short replies shown to chat members.
package services
