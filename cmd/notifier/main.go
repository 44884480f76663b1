package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/bookhaven/bookstore-api/internal/queue"
)

// The notifier is a standalone worker: it consumes order.placed events
// from RabbitMQ and appends one line per order to logs/orders.log. It
// runs separately from the API server so a broker outage never touches
// request latency.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	log.Println("order notifier starting")
	if err := queue.StartOrderConsumer(); err != nil {
		log.Fatalf("order consumer stopped: %v", err)
	}
}
