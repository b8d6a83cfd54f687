package contracts

// WSEvent wraps every frame pushed to /ws/fleet subscribers.
type WSEvent struct {
	Type string `json:"type"` // bus_status|fleet_reset
	Data any    `json:"data"`
}
