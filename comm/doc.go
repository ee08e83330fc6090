/*
Package comm implements the synchronization plane between the nodes of a
ceres system. Vector clocks over the closed set of configured nodes track
causal history, operations carry a clock snapshot of their originating node
in a textual wire format, and sender and receiver move operations between
replicas best-effort over plain TCP. Whether a received operation is safe
to apply is decided at a higher level; this package only validates, encodes
and transports.
*/
package comm
