package main

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/quocanhngo/airguard/internal/airquality"
	"github.com/quocanhngo/airguard/internal/config"
	"github.com/quocanhngo/airguard/internal/model"
	"github.com/quocanhngo/airguard/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

type demoDevice struct {
	uid, name string
	lat, lon  float64
	baseCO2   int
	geometry  airquality.Geometry
}

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := repository.Open(cfg.DB, "production")
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	if err := repository.AutoMigrate(db); err != nil {
		log.Fatalf("❌ Failed to migrate database: %v", err)
	}
	log.Println("✅ Connected to Database")

	devices := repository.NewDeviceRepository(db)
	measurements := repository.NewMeasurementRepository(db)

	// Common key for all demo devices
	apiKey := "demo-device-key"
	hash, err := bcrypt.GenerateFromPassword([]byte(apiKey), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("❌ Failed to hash key: %v", err)
	}

	classroom := airquality.DefaultGeometry()
	office := airquality.Geometry{
		Length: 4, Width: 3.5, Height: 2.8, Occupants: 2,
		WindowCount: 1, WindowWidth: 1, WindowHeight: 1.2, OpeningFraction: 0.5, RadiatorPower: 1200,
	}
	demo := []demoDevice{
		{"classroom-101", "Classroom 101", 45.815, 15.982, 900, classroom},
		{"office-3", "Office 3", 45.801, 15.971, 650, office},
		{"meeting-room", "Meeting room", 45.806, 15.977, 1250, office},
	}

	log.Printf("🌱 Seeding %d devices...", len(demo))
	for _, d := range demo {
		lat, lon := d.lat, d.lon
		device, err := devices.RegisterIfAbsent(ctx, &model.Device{
			UID:            d.uid,
			CredentialHash: string(hash),
			Name:           d.name,
			Geometry:       d.geometry,
			Latitude:       &lat,
			Longitude:      &lon,
		})
		if err != nil {
			log.Printf("❌ Failed to create device %s: %v", d.uid, err)
			continue
		}
		if latest, _ := measurements.Latest(ctx, d.uid); latest != nil {
			log.Printf("⏭  %s already has measurements", d.uid)
			continue
		}

		n := seedMeasurements(ctx, measurements, d)
		log.Printf("✅ Created device: %s | Key: %s | %d measurements | id %s", d.uid, apiKey, n, device.ID)
	}

	log.Println("🎉 Seeding completed!")
}

// seedMeasurements writes the last 24h at 10 minute intervals with a daily
// occupancy curve on top of the device's base CO₂ level
func seedMeasurements(ctx context.Context, repo *repository.MeasurementRepository, d demoDevice) int {
	now := time.Now().UTC().Truncate(10 * time.Minute)
	count := 0
	for ts := now.Add(-24 * time.Hour); !ts.After(now); ts = ts.Add(10 * time.Minute) {
		phase := float64(ts.Hour()) / 24 * 2 * math.Pi
		occupancy := math.Max(0, -math.Cos(phase))
		pressure := 1013 + 4*math.Sin(phase/2)

		m := &model.Measurement{
			DeviceUID:   d.uid,
			CO2:         d.baseCO2 + int(500*occupancy),
			Temperature: math.Round((20.5+2.5*occupancy)*10) / 10,
			Humidity:    math.Round((42+12*occupancy)*10) / 10,
			Pressure:    &pressure,
			Timestamp:   ts,
		}
		if err := repo.Insert(ctx, m); err != nil {
			log.Printf("❌ Failed to insert measurement for %s: %v", d.uid, err)
			continue
		}
		count++
	}
	return count
}
