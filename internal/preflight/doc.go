// Package preflight provides readiness checks for the filesystem paths and
// external services Concierge depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll before loading records. A failed directory check
//     aborts startup; failed service checks are logged as warnings because the
//     gateway connect is retried anyway.
//   - The CLI "concierge status" command renders the same results when the
//     daemon is not reachable.
//
// Each service check is gated by its config value -- unset features are skipped.
package preflight
