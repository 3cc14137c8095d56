package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/docscore/calibration/internal/cert"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS certificates (
	instance_id      TEXT PRIMARY KEY,
	method_id        TEXT NOT NULL,
	node_id          TEXT NOT NULL,
	epoch_config     TEXT NOT NULL,
	calibrated_score REAL NOT NULL,
	certificate_json TEXT NOT NULL,
	signature        TEXT NOT NULL,
	created_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_certificates_method ON certificates(method_id);
CREATE INDEX IF NOT EXISTS idx_certificates_config ON certificates(epoch_config);

CREATE TABLE IF NOT EXISTS epoch_registries (
	epoch_id      TEXT PRIMARY KEY,
	registry_json TEXT NOT NULL,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS drift_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	method_id   TEXT NOT NULL,
	layer       TEXT NOT NULL,
	from_epoch  TEXT NOT NULL,
	to_epoch    TEXT NOT NULL,
	delta       REAL NOT NULL,
	created_at  TEXT NOT NULL
);
`

// #endregion schema

// #region store
// Store persists certificates and epoch snapshots in SQLite. The engine never
// reads it during scoring; governance and audit tooling operate over it.
type Store struct {
	db *sql.DB
}

// Open opens a SQLite database and runs migrations.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion store

// #region certificates
// SaveCertificate persists one certificate. Saving the same instance id twice
// is an error unless the payload is byte-identical; certificates are
// immutable, never overwritten.
func (s *Store) SaveCertificate(c cert.Certificate) error {
	body, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal certificate: %w", err)
	}

	var existing string
	err = s.db.QueryRow(`SELECT certificate_json FROM certificates WHERE instance_id = ?`, c.InstanceID).Scan(&existing)
	switch {
	case err == nil:
		if existing != string(body) {
			return fmt.Errorf("certificate %s already stored with different contents", c.InstanceID)
		}
		return nil // idempotent re-save
	case err != sql.ErrNoRows:
		return fmt.Errorf("check certificate %s: %w", c.InstanceID, err)
	}

	_, err = s.db.Exec(
		`INSERT INTO certificates (instance_id, method_id, node_id, epoch_config, calibrated_score, certificate_json, signature, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.InstanceID, c.MethodID, c.NodeID, c.ConfigHash, c.CalibratedScore,
		string(body), c.Signature, c.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert certificate %s: %w", c.InstanceID, err)
	}
	return nil
}

// GetCertificate loads one certificate by instance id.
func (s *Store) GetCertificate(instanceID string) (cert.Certificate, error) {
	var body string
	err := s.db.QueryRow(`SELECT certificate_json FROM certificates WHERE instance_id = ?`, instanceID).Scan(&body)
	if err != nil {
		return cert.Certificate{}, fmt.Errorf("get certificate %s: %w", instanceID, err)
	}
	var c cert.Certificate
	if err := json.Unmarshal([]byte(body), &c); err != nil {
		return cert.Certificate{}, fmt.Errorf("unmarshal certificate %s: %w", instanceID, err)
	}
	return c, nil
}

// ListCertificates returns all certificates for a method, newest first.
func (s *Store) ListCertificates(methodID string) ([]cert.Certificate, error) {
	rows, err := s.db.Query(
		`SELECT certificate_json FROM certificates WHERE method_id = ? ORDER BY created_at DESC, instance_id`,
		methodID,
	)
	if err != nil {
		return nil, fmt.Errorf("list certificates %s: %w", methodID, err)
	}
	defer rows.Close()

	var out []cert.Certificate
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var c cert.Certificate
		if err := json.Unmarshal([]byte(body), &c); err != nil {
			return nil, fmt.Errorf("unmarshal certificate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// #endregion certificates

// #region epochs
// SaveRegistry snapshots one epoch's layer metadata registry for governance.
func (s *Store) SaveRegistry(epochID string, registryJSON []byte) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO epoch_registries (epoch_id, registry_json, created_at) VALUES (?, ?, ?)`,
		epochID, string(registryJSON), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save registry %s: %w", epochID, err)
	}
	return nil
}

// GetRegistry loads one epoch's registry snapshot.
func (s *Store) GetRegistry(epochID string) ([]byte, error) {
	var body string
	err := s.db.QueryRow(`SELECT registry_json FROM epoch_registries WHERE epoch_id = ?`, epochID).Scan(&body)
	if err != nil {
		return nil, fmt.Errorf("get registry %s: %w", epochID, err)
	}
	return []byte(body), nil
}

// #endregion epochs
