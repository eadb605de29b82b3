package events

// Event enumerates high-level topics inside the trading core.
type Event string

const (
	EventPriceTick       Event = "price_tick"
	EventSignalGenerated Event = "signal_generated"
	EventOrderExecuted   Event = "order_executed"
	EventOrderRejected   Event = "order_rejected"
	EventOrderCancelled  Event = "order_cancelled"
	EventRiskAlert       Event = "risk_alert"
	EventEmergencyStop   Event = "emergency_stop"
)
