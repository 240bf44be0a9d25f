// Package node implements the node role of the polling protocol.
//
// A node advertises under its device name until a coordinator connects,
// hands over the periodic train's sync info and writes the node's
// coordinate into the timing characteristic. From then on the node listens
// to its subevent only and answers each poll in its response slot with the
// freshest sensor reading, if one was published since the previous answer.
//
// The three parts share no locks. TimingAttribute, SyncClient and
// ResponseProducer are driven from a single event loop (see package
// service), which serializes attribute writes, sync events and polls.
package node
