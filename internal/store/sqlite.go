package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/dealflow/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Intended for local
// single-user work; the schema mirrors the Postgres one with TEXT in place
// of JSONB.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS buyers (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	website    TEXT,
	profile    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_buyers_website ON buyers(website);

CREATE TABLE IF NOT EXISTS deals (
	id           TEXT PRIMARY KEY,
	company_name TEXT NOT NULL,
	website      TEXT,
	status       TEXT NOT NULL DEFAULT 'active',
	profile      TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_deals_status ON deals(status);

CREATE TABLE IF NOT EXISTS matches (
	id              TEXT PRIMARY KEY,
	buyer_id        TEXT NOT NULL REFERENCES buyers(id),
	deal_id         TEXT NOT NULL REFERENCES deals(id),
	composite_score REAL NOT NULL DEFAULT 0,
	status          TEXT NOT NULL DEFAULT 'unscored',
	data            TEXT NOT NULL,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (buyer_id, deal_id)
);

CREATE INDEX IF NOT EXISTS idx_matches_deal_id ON matches(deal_id);
CREATE INDEX IF NOT EXISTS idx_matches_buyer_id ON matches(buyer_id);

CREATE TABLE IF NOT EXISTS contacts (
	id         TEXT PRIMARY KEY,
	buyer_id   TEXT NOT NULL REFERENCES buyers(id),
	full_name  TEXT,
	title      TEXT,
	email      TEXT,
	phone      TEXT,
	source     TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_contacts_buyer_id ON contacts(buyer_id);

CREATE TABLE IF NOT EXISTS transcripts (
	id          TEXT PRIMARY KEY,
	buyer_id    TEXT NOT NULL REFERENCES buyers(id),
	title       TEXT,
	body        TEXT,
	recorded_at DATETIME,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_transcripts_buyer_id ON transcripts(buyer_id);

CREATE TABLE IF NOT EXISTS enrichment_checkpoints (
	operation_id  TEXT NOT NULL,
	collection_id TEXT NOT NULL,
	data          TEXT NOT NULL,
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (operation_id, collection_id)
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Buyers

func (s *SQLiteStore) CreateBuyer(ctx context.Context, b *model.BuyerProfile) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now

	profile, err := json.Marshal(b)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal buyer")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO buyers (id, name, website, profile, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.Name, b.Website, string(profile), b.CreatedAt, b.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: insert buyer")
}

func (s *SQLiteStore) GetBuyer(ctx context.Context, id string) (*model.BuyerProfile, error) {
	var profile string
	err := s.db.QueryRowContext(ctx,
		`SELECT profile FROM buyers WHERE id = ?`,
		id,
	).Scan(&profile)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get buyer %s", id)
	}
	var b model.BuyerProfile
	if err := json.Unmarshal([]byte(profile), &b); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal buyer")
	}
	return &b, nil
}

func (s *SQLiteStore) ListBuyers(ctx context.Context) ([]model.BuyerProfile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT profile FROM buyers ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list buyers")
	}
	defer rows.Close()

	var buyers []model.BuyerProfile
	for rows.Next() {
		var profile string
		if err := rows.Scan(&profile); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan buyer")
		}
		var b model.BuyerProfile
		if err := json.Unmarshal([]byte(profile), &b); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal buyer")
		}
		buyers = append(buyers, b)
	}
	return buyers, eris.Wrap(rows.Err(), "sqlite: list buyers iterate")
}

func (s *SQLiteStore) UpdateBuyer(ctx context.Context, b *model.BuyerProfile) error {
	b.UpdatedAt = time.Now().UTC()
	profile, err := json.Marshal(b)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal buyer")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE buyers SET name = ?, website = ?, profile = ?, updated_at = ? WHERE id = ?`,
		b.Name, b.Website, string(profile), b.UpdatedAt, b.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update buyer %s", b.ID)
	}
	return checkRowsAffected(res, "buyer", b.ID)
}

// DeleteBuyer removes a buyer and all dependent rows (matches, contacts,
// transcripts) in one transaction.
func (s *SQLiteStore) DeleteBuyer(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin delete")
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range []string{
		`DELETE FROM matches WHERE buyer_id = ?`,
		`DELETE FROM contacts WHERE buyer_id = ?`,
		`DELETE FROM transcripts WHERE buyer_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return eris.Wrapf(err, "sqlite: delete buyer %s dependents", id)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM buyers WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete buyer %s", id)
	}
	if err := checkRowsAffected(res, "buyer", id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite: commit delete")
	}
	return nil
}

func (s *SQLiteStore) MergeBuyers(ctx context.Context, survivor *model.BuyerProfile, removedIDs []string) error {
	survivor.UpdatedAt = time.Now().UTC()
	profile, err := json.Marshal(survivor)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal survivor")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin merge")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE buyers SET name = ?, website = ?, profile = ?, updated_at = ? WHERE id = ?`,
		survivor.Name, survivor.Website, string(profile), survivor.UpdatedAt, survivor.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: merge update survivor %s", survivor.ID)
	}
	if err := checkRowsAffected(res, "buyer", survivor.ID); err != nil {
		return err
	}

	inClause, args := sqlitePlaceholders(removedIDs)

	repoint := func(table string) error {
		_, err := tx.ExecContext(ctx,
			fmt.Sprintf(`UPDATE %s SET buyer_id = ? WHERE buyer_id IN (%s)`, table, inClause),
			append([]any{survivor.ID}, args...)...,
		)
		return eris.Wrapf(err, "sqlite: merge repoint %s", table)
	}
	if err := repoint("contacts"); err != nil {
		return err
	}
	if err := repoint("transcripts"); err != nil {
		return err
	}

	// Same collision rule as Postgres: within the merge group, one match
	// per deal survives, highest composite first, lowest id on ties.
	groupClause := fmt.Sprintf(`(buyer_id = ? OR buyer_id IN (%s))`, inClause)
	groupArgs := append([]any{survivor.ID}, args...)
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM matches WHERE `+groupClause+` AND id NOT IN (
			SELECT id FROM (
				SELECT id, deal_id,
				       ROW_NUMBER() OVER (PARTITION BY deal_id ORDER BY composite_score DESC, id ASC) AS rn
				FROM matches WHERE `+groupClause+`
			) ranked WHERE rn = 1
		)`,
		append(append([]any{}, groupArgs...), groupArgs...)...,
	); err != nil {
		return eris.Wrap(err, "sqlite: merge collapse matches")
	}
	if err := repoint("matches"); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM buyers WHERE id IN (%s)`, inClause),
		args...,
	); err != nil {
		return eris.Wrap(err, "sqlite: merge delete removed buyers")
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit merge")
}

// Deals

func (s *SQLiteStore) CreateDeal(ctx context.Context, d *model.DealProfile) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	if d.Status == "" {
		d.Status = model.DealActive
	}

	profile, err := json.Marshal(d)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal deal")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO deals (id, company_name, website, status, profile, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.CompanyName, d.Website, string(d.Status), string(profile), d.CreatedAt, d.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: insert deal")
}

func (s *SQLiteStore) GetDeal(ctx context.Context, id string) (*model.DealProfile, error) {
	var profile string
	err := s.db.QueryRowContext(ctx,
		`SELECT profile FROM deals WHERE id = ?`,
		id,
	).Scan(&profile)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get deal %s", id)
	}
	var d model.DealProfile
	if err := json.Unmarshal([]byte(profile), &d); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal deal")
	}
	return &d, nil
}

func (s *SQLiteStore) UpdateDeal(ctx context.Context, d *model.DealProfile) error {
	d.UpdatedAt = time.Now().UTC()
	profile, err := json.Marshal(d)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal deal")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE deals SET company_name = ?, website = ?, status = ?, profile = ?, updated_at = ? WHERE id = ?`,
		d.CompanyName, d.Website, string(d.Status), string(profile), d.UpdatedAt, d.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update deal %s", d.ID)
	}
	return checkRowsAffected(res, "deal", d.ID)
}

// Matches

func (s *SQLiteStore) GetMatch(ctx context.Context, buyerID, dealID string) (*model.BuyerDealMatch, error) {
	var id, data string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, data FROM matches WHERE buyer_id = ? AND deal_id = ?`,
		buyerID, dealID,
	).Scan(&id, &data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get match")
	}
	return unmarshalMatch(id, buyerID, dealID, []byte(data))
}

func (s *SQLiteStore) ListMatchesByDeal(ctx context.Context, dealID string) ([]model.BuyerDealMatch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, buyer_id, data FROM matches WHERE deal_id = ? ORDER BY composite_score DESC, buyer_id ASC`,
		dealID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list matches")
	}
	defer rows.Close()

	var matches []model.BuyerDealMatch
	for rows.Next() {
		var id, buyerID, data string
		if err := rows.Scan(&id, &buyerID, &data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan match")
		}
		m, err := unmarshalMatch(id, buyerID, dealID, []byte(data))
		if err != nil {
			return nil, err
		}
		matches = append(matches, *m)
	}
	return matches, eris.Wrap(rows.Err(), "sqlite: list matches iterate")
}

func (s *SQLiteStore) UpsertMatch(ctx context.Context, m *model.BuyerDealMatch) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	if m.Status == "" {
		m.Status = model.MatchUnscored
	}

	data, err := json.Marshal(m)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal match")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO matches (id, buyer_id, deal_id, composite_score, status, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (buyer_id, deal_id) DO UPDATE SET composite_score = excluded.composite_score,
		   status = excluded.status, data = excluded.data, updated_at = excluded.updated_at`,
		m.ID, m.BuyerID, m.DealID, m.CompositeScore, string(m.Status), string(data), m.CreatedAt, m.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: upsert match")
}

// Contacts

func (s *SQLiteStore) CreateContacts(ctx context.Context, contacts []model.Contact) error {
	for i := range contacts {
		c := &contacts[i]
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = time.Now().UTC()
		}
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO contacts (id, buyer_id, full_name, title, email, phone, source, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.BuyerID, c.FullName, c.Title, c.Email, c.Phone, c.Source, c.CreatedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert contact for buyer %s", c.BuyerID)
		}
	}
	return nil
}

func (s *SQLiteStore) ListContactsByBuyer(ctx context.Context, buyerID string) ([]model.Contact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, buyer_id, full_name, title, email, phone, source, created_at FROM contacts WHERE buyer_id = ? ORDER BY created_at ASC, id ASC`,
		buyerID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list contacts")
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(&c.ID, &c.BuyerID, &c.FullName, &c.Title, &c.Email, &c.Phone, &c.Source, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan contact")
		}
		contacts = append(contacts, c)
	}
	return contacts, eris.Wrap(rows.Err(), "sqlite: list contacts iterate")
}

// Transcripts

func (s *SQLiteStore) CreateTranscript(ctx context.Context, t *model.Transcript) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transcripts (id, buyer_id, title, body, recorded_at, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.BuyerID, t.Title, t.Body, t.RecordedAt, t.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert transcript for buyer %s", t.BuyerID)
}

func (s *SQLiteStore) ListTranscriptsByBuyer(ctx context.Context, buyerID string) ([]model.Transcript, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, buyer_id, title, body, recorded_at, created_at FROM transcripts WHERE buyer_id = ? ORDER BY recorded_at ASC, id ASC`,
		buyerID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list transcripts")
	}
	defer rows.Close()

	var transcripts []model.Transcript
	for rows.Next() {
		var t model.Transcript
		if err := rows.Scan(&t.ID, &t.BuyerID, &t.Title, &t.Body, &t.RecordedAt, &t.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan transcript")
		}
		transcripts = append(transcripts, t)
	}
	return transcripts, eris.Wrap(rows.Err(), "sqlite: list transcripts iterate")
}

// Checkpoints

func (s *SQLiteStore) GetCheckpoint(ctx context.Context, operationID, collectionID string) (*model.EnrichmentCheckpoint, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM enrichment_checkpoints WHERE operation_id = ? AND collection_id = ?`,
		operationID, collectionID,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get checkpoint")
	}
	var cp model.EnrichmentCheckpoint
	if err := json.Unmarshal([]byte(data), &cp); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal checkpoint")
	}
	return &cp, nil
}

func (s *SQLiteStore) SaveCheckpoint(ctx context.Context, cp *model.EnrichmentCheckpoint) error {
	cp.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(cp)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal checkpoint")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO enrichment_checkpoints (operation_id, collection_id, data, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (operation_id, collection_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		cp.OperationID, cp.CollectionID, string(data), cp.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: save checkpoint")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func sqlitePlaceholders(ids []string) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", "), args
}
