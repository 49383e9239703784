package domain

import (
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/interpreter-booking/internal/booking/queue"
)

// Task is a decoded delivery message together with the RabbitMQ delivery
// it must be settled on.
type Task struct {
	Message  queue.Message
	Delivery amqp.Delivery
}
