/*
 * Copyright (c) 2026. Anton Starikov -- All Rights Reserved
 *
 * This file is part of MZVC project.
 *
 * MZVC is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as the Free Software Foundation,
 * either version 3 of the License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

// Package store persists the little runtime state that must survive a
// restart: zone setpoints, last sensor values, valve reopen-suppression
// deadlines and controller key/values.
package store

import (
	"context"
	_ "embed"
	"time"

	"github.com/antst/mzvc/internal/logger"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

type Store struct {
	db *sqlx.DB
}

// Open opens (and migrates) the sqlite database. Failure is fatal: the
// controller cannot guarantee restart semantics without its state file.
func Open(dbFile string) *Store {
	db, err := sqlx.Open("sqlite3", dbFile)
	if err != nil {
		logger.L().Panic(err)
	}
	if err := db.Ping(); err != nil {
		logger.L().Panicf("%s: %v", dbFile, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		logger.L().Panic(err)
	}

	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) UpsertZoneSetpoint(ctx context.Context, zone string, setpoint float64) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO zone_setpoints (zone_name, setpoint) VALUES (?, ?)
		 ON CONFLICT(zone_name) DO UPDATE SET setpoint = excluded.setpoint`,
		zone, setpoint,
	)
	return err
}

func (s *Store) GetZoneSetpoint(ctx context.Context, zone string) (float64, error) {
	var setpoint float64
	err := s.db.GetContext(ctx, &setpoint, `SELECT setpoint FROM zone_setpoints WHERE zone_name = ?`, zone)
	return setpoint, err
}

func (s *Store) DeleteZoneSetpoint(ctx context.Context, zone string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM zone_setpoints WHERE zone_name = ?`, zone)
	return err
}

func (s *Store) UpsertSensorValue(ctx context.Context, sensor string, value float64) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO sensor_values (sensor_name, value) VALUES (?, ?)
		 ON CONFLICT(sensor_name) DO UPDATE SET value = excluded.value`,
		sensor, value,
	)
	return err
}

func (s *Store) GetSensorValue(ctx context.Context, sensor string) (float64, error) {
	var value float64
	err := s.db.GetContext(ctx, &value, `SELECT value FROM sensor_values WHERE sensor_name = ?`, sensor)
	return value, err
}

func (s *Store) UpsertSuppression(ctx context.Context, zone string, until time.Time) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO valve_suppressions (zone_name, suppressed_until) VALUES (?, ?)
		 ON CONFLICT(zone_name) DO UPDATE SET suppressed_until = excluded.suppressed_until`,
		zone, until.Unix(),
	)
	return err
}

func (s *Store) GetSuppression(ctx context.Context, zone string) (time.Time, error) {
	var until int64
	err := s.db.GetContext(
		ctx, &until, `SELECT suppressed_until FROM valve_suppressions WHERE zone_name = ?`, zone,
	)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(until, 0), nil
}

func (s *Store) DeleteSuppression(ctx context.Context, zone string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM valve_suppressions WHERE zone_name = ?`, zone)
	return err
}

func (s *Store) UpsertControllerValue(ctx context.Context, name, value string) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO controller_values (name, value) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value`,
		name, value,
	)
	return err
}

func (s *Store) GetControllerValue(ctx context.Context, name string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM controller_values WHERE name = ?`, name)
	return value, err
}
