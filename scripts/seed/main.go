// Command seed loads a minimal demo dataset: class types, a vehicle
// pool, one instructor's weekly schedule and the default business-rule
// settings. Safe to re-run; every insert is idempotent.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/autoescuela/scheduling-api/pkg/config"
	"github.com/autoescuela/scheduling-api/pkg/database"
)

func main() {
	var instructorID string
	flag.StringVar(&instructorID, "instructor", "", "instructor user ID to attach the demo schedule to (required)")
	flag.Parse()

	if instructorID == "" {
		log.Fatal("missing -instructor flag")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := seedClassTypes(ctx, db); err != nil {
		log.Fatalf("failed to seed class types: %v", err)
	}
	if err := seedResources(ctx, db, instructorID); err != nil {
		log.Fatalf("failed to seed resources: %v", err)
	}
	if err := seedSchedule(ctx, db, instructorID); err != nil {
		log.Fatalf("failed to seed schedule: %v", err)
	}
	if err := seedSettings(ctx, db); err != nil {
		log.Fatalf("failed to seed settings: %v", err)
	}

	log.Printf("seed complete for instructor %s", instructorID)
}

func seedClassTypes(ctx context.Context, db *sqlx.DB) error {
	const query = `INSERT INTO class_types (id, name, requires_resource, resource_type, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())
ON CONFLICT (id) DO NOTHING`
	rows := []struct {
		id           string
		name         string
		requires     bool
		resourceType *string
	}{
		{"theory", "Theory class", false, nil},
		{"practical", "Practical driving lesson", true, strPtr("vehicle")},
		{"exam-prep", "Exam preparation drive", true, strPtr("vehicle")},
	}
	for _, row := range rows {
		if _, err := db.ExecContext(ctx, query, row.id, row.name, row.requires, row.resourceType); err != nil {
			return err
		}
	}
	return nil
}

func seedResources(ctx context.Context, db *sqlx.DB, instructorID string) error {
	const insertResource = `INSERT INTO resources (id, name, type, plate, brand, model, year, color, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, NOW(), NOW())
ON CONFLICT (id) DO NOTHING`
	vehicles := []struct {
		id    string
		name  string
		plate string
		brand string
		model string
		year  int
		color string
	}{
		{"veh-demo-1", "Corsa 1", "1234-ABC", "Opel", "Corsa", 2022, "white"},
		{"veh-demo-2", "Corsa 2", "5678-DEF", "Opel", "Corsa", 2023, "red"},
	}
	for _, v := range vehicles {
		if _, err := db.ExecContext(ctx, insertResource,
			v.id, v.name, "vehicle", v.plate, v.brand, v.model, v.year, v.color); err != nil {
			return err
		}
	}

	const insertClassroom = `INSERT INTO resources (id, name, type, active, created_at, updated_at)
VALUES ($1, $2, 'classroom', TRUE, NOW(), NOW())
ON CONFLICT (id) DO NOTHING`
	if _, err := db.ExecContext(ctx, insertClassroom, "room-demo-1", "Aula 1"); err != nil {
		return err
	}

	const assign = `INSERT INTO instructor_resources (instructor_id, resource_id, created_at)
VALUES ($1, $2, NOW())
ON CONFLICT DO NOTHING`
	_, err := db.ExecContext(ctx, assign, instructorID, "veh-demo-1")
	return err
}

func seedSchedule(ctx context.Context, db *sqlx.DB, instructorID string) error {
	const query = `INSERT INTO weekly_schedules (id, instructor_id, day_of_week, start_time, end_time, slot_minutes, class_type_id, active, created_at, updated_at)
SELECT $1, $2, $3, $4, $5, $6, NULL, TRUE, NOW(), NOW()
WHERE NOT EXISTS (
    SELECT 1 FROM weekly_schedules
    WHERE instructor_id = $2 AND day_of_week = $3 AND start_time = $4
)`
	// Monday through Friday, mornings and afternoons, hour slots.
	for day := 1; day <= 5; day++ {
		for _, window := range [][2]string{{"09:00", "13:00"}, {"15:00", "19:00"}} {
			if _, err := db.ExecContext(ctx, query,
				uuid.NewString(), instructorID, day, window[0], window[1], 60); err != nil {
				return err
			}
		}
	}
	return nil
}

func seedSettings(ctx context.Context, db *sqlx.DB) error {
	const query = `INSERT INTO settings (key, value, type, description, updated_by, updated_at)
VALUES ($1, $2, $3, NULL, NULL, NOW())
ON CONFLICT (key) DO NOTHING`
	rows := [][3]string{
		{"cancellation_hours_limit", "4", "INT"},
		{"cancellation_allow_after_limit", "true", "BOOL"},
		{"late_cancellation_penalty_enabled", "true", "BOOL"},
		{"late_cancellation_penalty_amount", "50000", "INT"},
		{"attendance_tolerance_minutes", "10", "INT"},
		{"absent_counts_as_no_show", "true", "BOOL"},
		{"no_show_penalty_enabled", "true", "BOOL"},
		{"no_show_penalty_amount", "50000", "INT"},
		{"no_show_limit", "3", "INT"},
	}
	for _, row := range rows {
		if _, err := db.ExecContext(ctx, query, row[0], row[1], row[2]); err != nil {
			return err
		}
	}
	return nil
}

func strPtr(value string) *string {
	return &value
}
