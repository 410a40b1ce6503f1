package mq

import (
	"context"
	"encoding/json"
	"log"

	"vitrine/models"
	"vitrine/rdx"
)

const channel = "catalog-events"

// Emit publishes a catalog/cart event to Redis for downstream consumers.
func Emit(ctx context.Context, eventName string, content models.CatalogEvent) {
	data, err := json.Marshal(content)
	if err != nil {
		log.Printf("mq: failed to marshal %s event: %v", eventName, err)
		return
	}

	if err := rdx.Conn.Publish(ctx, channel, data).Err(); err != nil {
		log.Printf("mq: failed to publish %s event: %v", eventName, err)
	}
}

// StartCacheWorker subscribes to catalog events and invalidates the cached
// product documents they touch.
func StartCacheWorker() {
	ctx := context.Background()
	sub := rdx.Conn.Subscribe(ctx, channel)
	ch := sub.Channel()

	log.Println("mq: cache worker listening for catalog events")

	for msg := range ch {
		var event models.CatalogEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Printf("mq: failed to parse event: %v", err)
			continue
		}

		if event.EntityType == "product" && event.Method != "GET" {
			if _, err := rdx.RdxDel("product:" + event.EntityID); err != nil {
				log.Printf("mq: cache invalidation failed for product %s: %v", event.EntityID, err)
			}
		}
	}
}
