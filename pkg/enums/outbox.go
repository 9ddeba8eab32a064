package enums

// OutboxEventType labels events emitted through the transactional outbox.
type OutboxEventType string

const (
	EventSaleCompleted OutboxEventType = "sale.completed"
	EventPointsGranted OutboxEventType = "points.granted"
)

var validOutboxEventTypes = []OutboxEventType{
	EventSaleCompleted,
	EventPointsGranted,
}

// IsValid reports whether the value is a known OutboxEventType.
func (o OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateSale          OutboxAggregateType = "sale"
	AggregatePointsAccount OutboxAggregateType = "points_account"
)

var validOutboxAggregateTypes = []OutboxAggregateType{
	AggregateSale,
	AggregatePointsAccount,
}

// IsValid reports whether the value is a known OutboxAggregateType.
func (o OutboxAggregateType) IsValid() bool {
	for _, candidate := range validOutboxAggregateTypes {
		if candidate == o {
			return true
		}
	}
	return false
}
