// Package history keeps a durable journal of checkpoint lifecycle events.
//
// Events are stored in Badger under "ev/<ulid>" keys so that key order is
// time order. The journal survives reboots, which lets an operator see the
// start, boot attempts, rollback and commit of a checkpoint after the fact.
package history
