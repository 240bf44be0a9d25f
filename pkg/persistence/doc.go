// Package persistence stores the coordinator's roster of commissioned nodes.
//
// The roster is a JSON snapshot written after every committed
// commissioning. On restart the coordinator can resume allocation from the
// committed count instead of reassigning coordinates already in use.
package persistence
