// Package records defines the persisted Ticket and Task documents, the
// Collection the durable store reads and writes as a whole, and the naming
// rules for the channels that back each record.
//
// A record's ResourceID is the id of its chat channel. Tickets exist only
// while open; closing one deletes the record. Tasks move one way from Open to
// Completed and are never deleted.
package records
