// Package service ties the protocol components into one service per role.
//
// # CoordinatorService
//
// CoordinatorService runs the coordinator. It handles:
//   - the periodic advertising train
//   - poll payloads on every subevent data request
//   - response collection into an optional sink
//   - commissioning of nodes until every coordinate is committed
//   - the roster snapshot, and resuming from it
//
// One dispatcher goroutine reads the central's events. Data requests go to
// the scheduler, response reports to the collector and everything else to
// the commissioning runner, which runs on its own goroutine.
//
// Example usage:
//
//	cfg := service.DefaultCoordinatorConfig()
//	svc, err := service.NewCoordinatorService(central, cfg)
//	svc.Start(ctx)
//	defer svc.Stop()
//
// # NodeService
//
// NodeService runs a node. A single event loop owns the timing attribute,
// the sync client and the response producer, so attribute writes, sync
// events and polls are handled in order without locks. The sensor
// publisher runs alongside and hands readings over through a
// sensor.Channel.
//
// Example usage:
//
//	cfg := service.DefaultNodeConfig()
//	svc := service.NewNodeService(peripheral, sensor.NewSimulatedSource(start), cfg)
//	svc.Start(ctx)
//	defer svc.Stop()
package service
