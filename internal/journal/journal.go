/**
 * Copyright 2026-present Extdex Labs, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package journal persists every assembled settlement locally before it is
// handed to any transport. A signed hash is a liability the moment it
// exists: if the process dies between signing and submission, the journal
// is the only record of what was authorized.
package journal

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/extdex-labs/perp-settlement-go/internal/settlement"
)

// Journal handles settlement persistence.
type Journal struct {
	db *sql.DB
}

// Record is one journalled settlement row.
type Record struct {
	ExternalID string
	Kind       string
	Market     string
	Side       string

	// Scaled integer amounts exactly as hashed.
	SyntheticAmount  int64
	CollateralAmount int64
	FeeAmount        int64
	Amount           int64

	PositionID          uint64
	SenderPositionID    uint64
	RecipientPositionID uint64
	RecipientAddress    string

	Nonce             uint64
	ExpiryEpochMillis int64

	// Hash and signature in hex, the form the transport submits.
	MsgHash    string
	SignatureR string
	SignatureS string
	StarkKey   string

	CreatedAt time.Time
}

// NewJournal opens (creating if necessary) a settlement journal at path.
func NewJournal(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	// Enable WAL mode for better concurrent write performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set busy timeout to handle concurrent writes
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	j := &Journal{db: db}

	if err := j.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return j, nil
}

func (j *Journal) createTables() error {
	// Append-only: a settlement row is never updated. The external id is
	// the idempotency key, so a retried build with the same id conflicts.
	settlementsTable := `
	CREATE TABLE IF NOT EXISTS settlements (
		external_id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		market TEXT,
		side TEXT,

		synthetic_amount INTEGER NOT NULL DEFAULT 0,
		collateral_amount INTEGER NOT NULL DEFAULT 0,
		fee_amount INTEGER NOT NULL DEFAULT 0,
		amount INTEGER NOT NULL DEFAULT 0,

		position_id TEXT NOT NULL,
		sender_position_id TEXT NOT NULL DEFAULT '0',
		recipient_position_id TEXT NOT NULL DEFAULT '0',
		recipient_address TEXT,

		nonce TEXT NOT NULL,
		expiry_epoch_millis INTEGER NOT NULL,

		msg_hash TEXT NOT NULL,
		signature_r TEXT NOT NULL,
		signature_s TEXT NOT NULL,
		stark_key TEXT NOT NULL,

		created_at TIMESTAMP NOT NULL
	);`

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_settlements_kind ON settlements(kind);`,
		`CREATE INDEX IF NOT EXISTS idx_settlements_market ON settlements(market);`,
		`CREATE INDEX IF NOT EXISTS idx_settlements_created ON settlements(created_at);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_settlements_hash ON settlements(msg_hash);`,
	}

	if _, err := j.db.Exec(settlementsTable); err != nil {
		return fmt.Errorf("failed to create settlements table: %w", err)
	}

	for _, idx := range indexes {
		if _, err := j.db.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// Append journals one assembled settlement. It fails on a duplicate
// external id or message hash rather than overwriting: the journal is the
// audit trail, never a cache.
func (j *Journal) Append(obj *settlement.SettlementObject) error {
	query := `
	INSERT INTO settlements (
		external_id, kind, market, side,
		synthetic_amount, collateral_amount, fee_amount, amount,
		position_id, sender_position_id, recipient_position_id, recipient_address,
		nonce, expiry_epoch_millis,
		msg_hash, signature_r, signature_s, stark_key,
		created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	// Nonces and position ids are stored as decimal text: sqlite INTEGER
	// is signed, so values in the top half of the uint64 range would be
	// rejected at the driver.
	_, err := j.db.Exec(query,
		obj.ExternalID, string(obj.Kind), obj.Market, string(obj.Side),
		obj.Amounts.SyntheticAmount, obj.Amounts.CollateralAmount, obj.Amounts.FeeAmount, obj.Amount,
		formatUint(obj.PositionID), formatUint(obj.SenderPositionID), formatUint(obj.RecipientPositionID), obj.RecipientAddress,
		formatUint(obj.Nonce), obj.ExpiryEpochMillis,
		obj.MsgHash.Hex(), obj.Signature.R.Hex(), obj.Signature.S.Hex(), obj.StarkKey.Hex(),
		time.Now().UTC(),
	)

	if err != nil {
		return fmt.Errorf("failed to journal settlement: %w", err)
	}

	return nil
}

// Get retrieves a journalled settlement by external id. Returns nil when
// no row exists.
func (j *Journal) Get(externalID string) (*Record, error) {
	query := selectColumns + ` WHERE external_id = ?`

	row := j.db.QueryRow(query, externalID)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}

	return rec, nil
}

// Recent returns the newest journalled settlements, newest first.
func (j *Journal) Recent(limit int) ([]*Record, error) {
	query := selectColumns + ` ORDER BY created_at DESC LIMIT ?`

	rows, err := j.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

const selectColumns = `
	SELECT
		external_id, kind, market, side,
		synthetic_amount, collateral_amount, fee_amount, amount,
		position_id, sender_position_id, recipient_position_id, recipient_address,
		nonce, expiry_epoch_millis,
		msg_hash, signature_r, signature_s, stark_key,
		created_at
	FROM settlements`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*Record, error) {
	var rec Record
	var positionID, senderID, recipientID, nonce string
	err := s.Scan(
		&rec.ExternalID, &rec.Kind, &rec.Market, &rec.Side,
		&rec.SyntheticAmount, &rec.CollateralAmount, &rec.FeeAmount, &rec.Amount,
		&positionID, &senderID, &recipientID, &rec.RecipientAddress,
		&nonce, &rec.ExpiryEpochMillis,
		&rec.MsgHash, &rec.SignatureR, &rec.SignatureS, &rec.StarkKey,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if rec.PositionID, err = parseUintColumn("position_id", positionID); err != nil {
		return nil, err
	}
	if rec.SenderPositionID, err = parseUintColumn("sender_position_id", senderID); err != nil {
		return nil, err
	}
	if rec.RecipientPositionID, err = parseUintColumn("recipient_position_id", recipientID); err != nil {
		return nil, err
	}
	if rec.Nonce, err = parseUintColumn("nonce", nonce); err != nil {
		return nil, err
	}
	return &rec, nil
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func parseUintColumn(column, value string) (uint64, error) {
	v, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", column, err)
	}
	return v, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	if j.db != nil {
		zap.L().Info("Closing settlement journal")
		return j.db.Close()
	}
	return nil
}
