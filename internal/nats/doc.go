// Package nats publishes notification and state events to a NATS server so
// other processes on the network can follow the appliance.
//
// # Subject Hierarchy
//
//	iss-notify.notifications.scheduled   # waiting for a sighting
//	iss-notify.notifications.sent        # approach animation started
//	iss-notify.state.scheduler           # scheduler state transitions
//	iss-notify.state.animation           # animation engine state transitions
//
// The package uses fire-and-forget messaging (core NATS, no JetStream).
// The publisher gracefully degrades when NATS is unavailable.
//
// # Debugging with nats CLI
//
// Monitor everything:
//
//	nats sub "iss-notify.>"
//
// Only notifications:
//
//	nats sub "iss-notify.notifications.*"
package nats
