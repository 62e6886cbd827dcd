// Package datastore holds the typed datapoint tables of a device.
//
// A Store owns one table per datapoint Type (float, uint, int, multi-state,
// button). The tables, the subscription registries and a bounded buffer pool
// belong to a single actor goroutine started with Run. Every read, write and
// subscription change from other goroutines is a request on a bounded queue,
// answered on a private response channel or abandoned after the response
// timeout.
//
// A write that changes at least one value notifies every unpaused
// subscription whose span intersects the written range. The callback runs on
// the actor goroutine with a copy of the whole span and must not call back
// into the store.
//
// Points gives a typed view of a table:
//
//	temps := datastore.Floats(store)
//	err := temps.Write(ctx, 1, 9.5)
package datastore
