package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"supplyline/internal/events"
	"supplyline/internal/ws"
)

var schemaOut string

// Consumer-facing payload shapes. Dashboard and event-bus integrators validate
// against these instead of reverse-engineering the wire format.
var schemaTargets = []struct {
	file        string
	title       string
	description string
	value       any
}{
	{"envelope.json", "Broadcast Envelope", "Outer frame of every WebSocket message.", ws.Envelope{}},
	{"inventory_update.json", "Inventory Update", "Low-stock items and recent stock movements.", ws.InventoryUpdateData{}},
	{"delivery_update.json", "Delivery Update", "Active deliveries with driver and location.", ws.DeliveryUpdateData{}},
	{"order_update.json", "Order Update", "Pending order count and recent orders.", ws.OrderUpdateData{}},
	{"alert.json", "Alert", "Operational alert pushed to staff roles.", ws.AlertData{}},
	{"stock_event.json", "Stock Event", "RabbitMQ payload for stock.* routing keys.", events.StockEvent{}},
	{"delivery_event.json", "Delivery Event", "RabbitMQ payload for delivery.* routing keys.", events.DeliveryEvent{}},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Write JSON schemas for broadcast and event payloads",
	RunE: func(cmd *cobra.Command, args []string) error {
		reflector := jsonschema.Reflector{
			AllowAdditionalProperties: true,
		}

		for _, target := range schemaTargets {
			schema := reflector.Reflect(target.value)
			schema.Title = target.title
			schema.Description = target.description
			if err := writeSchema(filepath.Join(schemaOut, target.file), schema); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	schemaCmd.Flags().StringVar(&schemaOut, "out", "schemas", "directory to write JSON schemas to")
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}
	return nil
}
