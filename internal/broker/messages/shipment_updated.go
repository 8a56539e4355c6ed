package messages

import "time"

// ShipmentUpdated is a carrier scan for one shipment. Either ShipmentID or
// TrackingNumber identifies it; ShipmentID wins when both are set.
type ShipmentUpdated struct {
	ShipmentID     string `json:"shipment_id,omitempty"`
	TrackingNumber string `json:"tracking_number,omitempty"`

	Status        string    `json:"status"`
	ScanTimestamp time.Time `json:"scan_timestamp"`
}
