package contracts

// Exchanges
const (
	ExchangeFleetTopic = "fleet_topic"
)

// Queues
const (
	QueueBusArrivals = "bus_arrivals"
)

// Routing patterns
const (
	RouteBusStatusPrefix  = "bus.status."  // {status}
	RouteBusArrivalPrefix = "bus.arrival." // {bus_id}
	RouteFleetReset       = "fleet.reset"
)

// WebSocket event types
const (
	WSTypeBusStatus  = "bus_status"
	WSTypeFleetReset = "fleet_reset"
)
