// Package queue provides the rendezvous queue that pairs inbound messages
// with receive requests.
//
// Messages arriving from the channel and receivers waiting for a message are
// both kept in arrival order. A message that arrives while receivers are
// waiting goes to the oldest receiver; a receive request that finds buffered
// messages takes the oldest message. Only the surplus side ever accumulates:
//
//	Put(A)  Put(B)          Get() -> A   Get() -> B   Get() -> pending
//	msgs: [A] [A B]         [B]          []           waiters: [f1]
//
// Each receive request is represented by a Future that is resolved or
// rejected exactly once.
package queue
