package service

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// purchaseMetrics records committed purchases. Instruments come from the
// global meter provider, which is a no-op unless telemetry is configured.
type purchaseMetrics struct {
	purchases  metric.Int64Counter
	orderTotal metric.Float64Histogram
}

func newPurchaseMetrics() *purchaseMetrics {
	meter := otel.Meter("order-service")

	purchases, err := meter.Int64Counter("orders_purchased_total",
		metric.WithDescription("Number of committed purchases"))
	if err != nil {
		log.Printf("Failed to create purchase counter: %v", err)
	}

	orderTotal, err := meter.Float64Histogram("order_total",
		metric.WithDescription("Monetary total of committed purchases"))
	if err != nil {
		log.Printf("Failed to create order total histogram: %v", err)
	}

	return &purchaseMetrics{
		purchases:  purchases,
		orderTotal: orderTotal,
	}
}

func (m *purchaseMetrics) recordPurchase(ctx context.Context, total float64) {
	m.purchases.Add(ctx, 1)
	m.orderTotal.Record(ctx, total)
}
