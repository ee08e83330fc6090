/*
Package node implements the causal delivery engine of a ceres replica: the
node-wide state of vector clock, record store handle, hold-back queue and
audit log, the deliverability predicate deciding whether a received
operation is safe to apply, and the apply and drain logic that commits an
operation and cascades delivery of queued operations to a fixed point.

All mutating paths run under one node-wide lock so that the predicate
always observes a consistent clock. Replication to peers happens through
the Dispatcher interface strictly after that lock was released.
*/
package node
