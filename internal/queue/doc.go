// Package queue implements the admission and ordering engine for service
// queues: the capacity gate, the entry store, the position ledger, the status
// state machine and the Engine façade that composes them.
//
// Every mutation that reads or writes the waiting set of a service runs under
// that service's exclusive lock, together with the position recompute it
// requires. Readers take the shared lock of the same service and therefore
// only ever observe recomputed state. Services never share a lock.
package queue
