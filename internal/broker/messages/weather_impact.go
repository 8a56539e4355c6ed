package messages

import "time"

// WeatherImpact announces that a weather alert delayed one shipment.
// Notification services consume it; this service never marks it delivered.
type WeatherImpact struct {
	EventID        string    `json:"event_id"`
	AlertID        string    `json:"alert_id"`
	ShipmentID     string    `json:"shipment_id"`
	TrackingNumber string    `json:"tracking_number"`
	MetroCode      string    `json:"metro_code"`
	WeatherType    string    `json:"weather_type"`
	Severity       string    `json:"severity"`
	ImpactLevel    string    `json:"impact_level"`
	DelayHours     int       `json:"delay_hours"`
	CreatedAt      time.Time `json:"created_at"`
}
