package models

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// AlertDateLayout is the calendar-date format of WeatherAlert.Date.
const AlertDateLayout = "2006-01-02"

type WeatherType string

const (
	WeatherTypeSnowstorm    WeatherType = "snowstorm"
	WeatherTypeHurricane    WeatherType = "hurricane"
	WeatherTypeThunderstorm WeatherType = "thunderstorm"
	WeatherTypeIceStorm     WeatherType = "ice storm"
	WeatherTypeFlooding     WeatherType = "flooding"
)

// WeatherTypes lists every supported weather type in display order.
var WeatherTypes = []WeatherType{
	WeatherTypeSnowstorm,
	WeatherTypeHurricane,
	WeatherTypeThunderstorm,
	WeatherTypeIceStorm,
	WeatherTypeFlooding,
}

func (t WeatherType) Valid() bool {
	for _, v := range WeatherTypes {
		if t == v {
			return true
		}
	}
	return false
}

func ParseWeatherType(s string) (WeatherType, error) {
	t := WeatherType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", errors.Errorf("unknown weather type %q", s)
	}
	return t, nil
}

// Severity is ordered: low < medium < high < critical.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Rank returns the position of s in the severity ordering, or -1 for an unknown value.
func (s Severity) Rank() int {
	for i, v := range Severities {
		if s == v {
			return i
		}
	}
	return -1
}

func (s Severity) Valid() bool { return s.Rank() >= 0 }

func ParseSeverity(s string) (Severity, error) {
	v := Severity(strings.ToLower(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", errors.Errorf("unknown severity %q", s)
	}
	return v, nil
}

type ShipmentStatus string

const (
	ShipmentStatusProcessing ShipmentStatus = "processing"
	ShipmentStatusInTransit  ShipmentStatus = "in_transit"
	ShipmentStatusDelayed    ShipmentStatus = "delayed"
	ShipmentStatusDelivered  ShipmentStatus = "delivered"
)

func (s ShipmentStatus) Valid() bool {
	switch s {
	case ShipmentStatusProcessing, ShipmentStatusInTransit, ShipmentStatusDelayed, ShipmentStatusDelivered:
		return true
	}
	return false
}

// CanTransitionTo reports whether a carrier scan may move a shipment from s to
// next. Scans only move forward; delayed is set by alert processing alone and
// delivered is final. A repeated in_transit scan refreshes the scan time.
func (s ShipmentStatus) CanTransitionTo(next ShipmentStatus) bool {
	if s == ShipmentStatusDelivered {
		return false
	}
	switch next {
	case ShipmentStatusDelivered:
		return true
	case ShipmentStatusInTransit:
		return s == ShipmentStatusProcessing || s == ShipmentStatusInTransit
	}
	return false
}

func ParseShipmentStatus(s string) (ShipmentStatus, error) {
	v := ShipmentStatus(strings.ToLower(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", errors.Errorf("unknown shipment status %q", s)
	}
	return v, nil
}

type ImpactLevel string

const (
	ImpactLevelMinor    ImpactLevel = "minor"
	ImpactLevelModerate ImpactLevel = "moderate"
	ImpactLevelMajor    ImpactLevel = "major"
	ImpactLevelSevere   ImpactLevel = "severe"
)

type WeatherAlert struct {
	ID          string      `json:"id" yaml:"id"`
	MetroCode   string      `json:"metroCode" yaml:"metro_code"`
	Date        string      `json:"date" yaml:"date"`
	WeatherType WeatherType `json:"weatherType" yaml:"weather_type"`
	Severity    Severity    `json:"severity" yaml:"severity"`
	Description string      `json:"description" yaml:"description"`
	CreatedAt   time.Time   `json:"createdAt" yaml:"created_at"`
	IsActive    bool        `json:"isActive" yaml:"is_active"`
}

// AlertInput holds the operator-supplied fields of a new alert.
type AlertInput struct {
	MetroCode   string `json:"metroCode"`
	Date        string `json:"date"`
	WeatherType string `json:"weatherType"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	IsActive    *bool  `json:"isActive,omitempty"`
}

type Shipment struct {
	ID                   string         `json:"id" yaml:"id"`
	TrackingNumber       string         `json:"trackingNumber" yaml:"tracking_number"`
	DestinationMetroCode string         `json:"destinationMetroCode" yaml:"destination_metro_code"`
	OriginalETA          time.Time      `json:"originalETA" yaml:"original_eta"`
	AdjustedETA          *time.Time     `json:"adjustedETA,omitempty" yaml:"adjusted_eta,omitempty"`
	Status               ShipmentStatus `json:"status" yaml:"status"`
	ScanTimestamp        time.Time      `json:"scanTimestamp" yaml:"scan_timestamp"`
	CustomerName         string         `json:"customerName" yaml:"customer_name"`
	Origin               string         `json:"origin" yaml:"origin"`
	Destination          string         `json:"destination" yaml:"destination"`
}

type WeatherEvent struct {
	ID               string      `json:"id" yaml:"id"`
	WeatherAlertID   string      `json:"weatherAlertId" yaml:"weather_alert_id"`
	ShipmentID       string      `json:"shipmentId" yaml:"shipment_id"`
	ImpactLevel      ImpactLevel `json:"impactLevel" yaml:"impact_level"`
	DelayHours       int         `json:"delayHours" yaml:"delay_hours"`
	CreatedAt        time.Time   `json:"createdAt" yaml:"created_at"`
	NotificationSent bool        `json:"notificationSent" yaml:"notification_sent"`
}

type MetroCode struct {
	Code  string `json:"code" yaml:"code"`
	Name  string `json:"name" yaml:"name"`
	State string `json:"state" yaml:"state"`
}
