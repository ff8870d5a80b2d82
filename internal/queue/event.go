// Package queue defines the notification events exchanged over
// RabbitMQ and the background consumer that turns them into in-app
// notifications.
package queue

// assignmentQueueName is the durable queue carrying slot assignment
// notifications from the allocation engine to the consumer.
const assignmentQueueName = "slot.assigned"

// AssignmentEvent is published when the allocation engine confirms a
// booking.  It carries everything the consumer needs to notify the
// winners without querying allocation state.
type AssignmentEvent struct {
	UserIDs   []uint64 `json:"user_ids"`
	Title     string   `json:"title"`
	Message   string   `json:"message"`
	EmittedAt string   `json:"emitted_at"`
}
