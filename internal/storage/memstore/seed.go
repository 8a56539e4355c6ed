package memstore

import (
	"fmt"
	"os"
	"time"

	"github.com/BearBump/WeatherWatch/internal/models"
	"github.com/pkg/errors"
	"go.yaml.in/yaml/v4"
)

// Seed is the initial dataset of a Storage.
type Seed struct {
	MetroCodes []models.MetroCode    `yaml:"metro_codes"`
	Shipments  []models.Shipment     `yaml:"shipments"`
	Alerts     []models.WeatherAlert `yaml:"alerts"`
	Events     []models.WeatherEvent `yaml:"events"`
}

// LoadSeed reads a YAML fixture with the same shape as Seed.
func LoadSeed(filename string) (Seed, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Seed{}, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return Seed{}, fmt.Errorf("failed to unmarshal seed YAML: %w", err)
	}
	return seed, nil
}

func (s Seed) validate() error {
	metros := make(map[string]struct{}, len(s.MetroCodes))
	for _, m := range s.MetroCodes {
		if m.Code == "" {
			return errors.New("metro code is empty")
		}
		metros[m.Code] = struct{}{}
	}

	shipments := make(map[string]struct{}, len(s.Shipments))
	tracking := make(map[string]struct{}, len(s.Shipments))
	for _, sh := range s.Shipments {
		if sh.ID == "" || sh.TrackingNumber == "" {
			return errors.New("shipment id and tracking number are required")
		}
		if _, dup := shipments[sh.ID]; dup {
			return errors.Errorf("duplicate shipment id %q", sh.ID)
		}
		if _, dup := tracking[sh.TrackingNumber]; dup {
			return errors.Errorf("duplicate tracking number %q", sh.TrackingNumber)
		}
		if !sh.Status.Valid() {
			return errors.Errorf("shipment %q: invalid status %q", sh.ID, sh.Status)
		}
		shipments[sh.ID] = struct{}{}
		tracking[sh.TrackingNumber] = struct{}{}
	}

	alerts := make(map[string]struct{}, len(s.Alerts))
	for _, a := range s.Alerts {
		if _, dup := alerts[a.ID]; dup {
			return errors.Errorf("duplicate alert id %q", a.ID)
		}
		if !a.Severity.Valid() || !a.WeatherType.Valid() {
			return errors.Errorf("alert %q: invalid severity or weather type", a.ID)
		}
		alerts[a.ID] = struct{}{}
	}

	for _, ev := range s.Events {
		if _, ok := alerts[ev.WeatherAlertID]; !ok {
			return errors.Errorf("event %q references unknown alert %q", ev.ID, ev.WeatherAlertID)
		}
		if _, ok := shipments[ev.ShipmentID]; !ok {
			return errors.Errorf("event %q references unknown shipment %q", ev.ID, ev.ShipmentID)
		}
	}
	return nil
}

// DefaultSeed is the demo dataset the dashboard starts with.
func DefaultSeed() Seed {
	ts := func(s string) time.Time {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			panic(err)
		}
		return t
	}

	return Seed{
		MetroCodes: []models.MetroCode{
			{Code: "CHI", Name: "Chicago", State: "IL"},
			{Code: "NYC", Name: "New York City", State: "NY"},
			{Code: "MSP", Name: "Minneapolis-St. Paul", State: "MN"},
			{Code: "DFW", Name: "Dallas-Fort Worth", State: "TX"},
		},
		Shipments: []models.Shipment{
			{
				ID: "1", TrackingNumber: "BTS001234567", DestinationMetroCode: "CHI",
				OriginalETA: ts("2024-07-15T14:00:00Z"), Status: models.ShipmentStatusInTransit,
				ScanTimestamp: ts("2024-07-12T08:30:00Z"), CustomerName: "Johnson Manufacturing",
				Origin: "Los Angeles, CA", Destination: "Chicago, IL",
			},
			{
				ID: "2", TrackingNumber: "BTS001234568", DestinationMetroCode: "NYC",
				OriginalETA: ts("2024-07-16T10:00:00Z"), Status: models.ShipmentStatusInTransit,
				ScanTimestamp: ts("2024-07-13T12:15:00Z"), CustomerName: "TechCorp Solutions",
				Origin: "Seattle, WA", Destination: "New York, NY",
			},
			{
				ID: "3", TrackingNumber: "BTS001234569", DestinationMetroCode: "MSP",
				OriginalETA: ts("2024-07-17T16:30:00Z"), Status: models.ShipmentStatusInTransit,
				ScanTimestamp: ts("2024-07-11T14:20:00Z"), CustomerName: "Northern Supply Co",
				Origin: "Phoenix, AZ", Destination: "Minneapolis, MN",
			},
			{
				ID: "4", TrackingNumber: "BTS001234570", DestinationMetroCode: "DFW",
				OriginalETA: ts("2024-07-17T11:45:00Z"), Status: models.ShipmentStatusDelivered,
				ScanTimestamp: ts("2024-07-10T09:00:00Z"), CustomerName: "Southwest Industries",
				Origin: "Miami, FL", Destination: "Dallas, TX",
			},
			{
				ID: "5", TrackingNumber: "BTS001234580", DestinationMetroCode: "NYC",
				OriginalETA: ts("2024-07-15T14:00:00Z"), Status: models.ShipmentStatusInTransit,
				ScanTimestamp: ts("2024-07-12T08:30:00Z"), CustomerName: "Johnson Manufacturing",
				Origin: "Los Angeles, CA", Destination: "New York, NY",
			},
			{
				ID: "6", TrackingNumber: "BTS001234582", DestinationMetroCode: "DFW",
				OriginalETA: ts("2024-07-12T11:45:00Z"), Status: models.ShipmentStatusInTransit,
				ScanTimestamp: ts("2024-07-10T09:00:00Z"), CustomerName: "Southwest Industries",
				Origin: "Miami, FL", Destination: "Dallas, TX",
			},
		},
		Alerts: []models.WeatherAlert{
			{
				ID: "1", MetroCode: "CHI", Date: "2024-07-15",
				WeatherType: models.WeatherTypeSnowstorm, Severity: models.SeverityHigh,
				Description: "Heavy snowfall expected with 6-12 inches accumulation",
				CreatedAt:   ts("2024-07-13T10:00:00Z"), IsActive: true,
			},
		},
		Events: []models.WeatherEvent{
			{
				ID: "1", WeatherAlertID: "1", ShipmentID: "1",
				ImpactLevel: models.ImpactLevelModerate, DelayHours: 24,
				CreatedAt: ts("2024-07-13T10:05:00Z"), NotificationSent: true,
			},
		},
	}
}
