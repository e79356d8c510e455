package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/dealflow/internal/db"
	"github.com/sells-group/dealflow/internal/model"
)

// PostgresStore implements Store using pgxpool. Profiles and matches are
// stored as JSONB blobs beside the columns that queries filter or join on;
// the column copies of buyer_id and composite_score are authoritative
// because merges rewrite them without touching the blob.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS buyers (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name       TEXT NOT NULL,
	website    TEXT,
	profile    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_buyers_website ON buyers(website);

CREATE TABLE IF NOT EXISTS deals (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	company_name TEXT NOT NULL,
	website      TEXT,
	status       TEXT NOT NULL DEFAULT 'active',
	profile      JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_deals_status ON deals(status);

CREATE TABLE IF NOT EXISTS matches (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	buyer_id        TEXT NOT NULL REFERENCES buyers(id),
	deal_id         TEXT NOT NULL REFERENCES deals(id),
	composite_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	status          TEXT NOT NULL DEFAULT 'unscored',
	data            JSONB NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (buyer_id, deal_id)
);

CREATE INDEX IF NOT EXISTS idx_matches_deal_id ON matches(deal_id);
CREATE INDEX IF NOT EXISTS idx_matches_buyer_id ON matches(buyer_id);

CREATE TABLE IF NOT EXISTS contacts (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	buyer_id   TEXT NOT NULL REFERENCES buyers(id),
	full_name  TEXT,
	title      TEXT,
	email      TEXT,
	phone      TEXT,
	source     TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_contacts_buyer_id ON contacts(buyer_id);

CREATE TABLE IF NOT EXISTS transcripts (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	buyer_id    TEXT NOT NULL REFERENCES buyers(id),
	title       TEXT,
	body        TEXT,
	recorded_at TIMESTAMPTZ,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_transcripts_buyer_id ON transcripts(buyer_id);

CREATE TABLE IF NOT EXISTS enrichment_checkpoints (
	operation_id  TEXT NOT NULL,
	collection_id TEXT NOT NULL,
	data          JSONB NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (operation_id, collection_id)
);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// Buyers

func (s *PostgresStore) CreateBuyer(ctx context.Context, b *model.BuyerProfile) error {
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
		return eris.Wrap(err, "postgres: marshal buyer")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO buyers (id, name, website, profile, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		b.ID, b.Name, b.Website, profile, b.CreatedAt, b.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: insert buyer")
}

func (s *PostgresStore) GetBuyer(ctx context.Context, id string) (*model.BuyerProfile, error) {
	var profile []byte
	err := s.pool.QueryRow(ctx,
		`SELECT profile FROM buyers WHERE id = $1`,
		id,
	).Scan(&profile)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get buyer %s", id)
	}
	var b model.BuyerProfile
	if err := json.Unmarshal(profile, &b); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal buyer")
	}
	return &b, nil
}

func (s *PostgresStore) ListBuyers(ctx context.Context) ([]model.BuyerProfile, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT profile FROM buyers ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list buyers")
	}
	defer rows.Close()

	var buyers []model.BuyerProfile
	for rows.Next() {
		var profile []byte
		if err := rows.Scan(&profile); err != nil {
			return nil, eris.Wrap(err, "postgres: scan buyer")
		}
		var b model.BuyerProfile
		if err := json.Unmarshal(profile, &b); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal buyer")
		}
		buyers = append(buyers, b)
	}
	return buyers, eris.Wrap(rows.Err(), "postgres: list buyers iterate")
}

func (s *PostgresStore) UpdateBuyer(ctx context.Context, b *model.BuyerProfile) error {
	b.UpdatedAt = time.Now().UTC()
	profile, err := json.Marshal(b)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal buyer")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE buyers SET name = $1, website = $2, profile = $3, updated_at = $4 WHERE id = $5`,
		b.Name, b.Website, profile, b.UpdatedAt, b.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update buyer %s", b.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("buyer not found: %s", b.ID)
	}
	return nil
}

// DeleteBuyer removes a buyer and all dependent rows (matches, contacts,
// transcripts) in one transaction.
func (s *PostgresStore) DeleteBuyer(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin delete")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, q := range []string{
		`DELETE FROM matches WHERE buyer_id = $1`,
		`DELETE FROM contacts WHERE buyer_id = $1`,
		`DELETE FROM transcripts WHERE buyer_id = $1`,
	} {
		if _, err := tx.Exec(ctx, q, id); err != nil {
			return eris.Wrapf(err, "postgres: delete buyer %s dependents", id)
		}
	}

	tag, err := tx.Exec(ctx, `DELETE FROM buyers WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete buyer %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("buyer not found: %s", id)
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: commit delete")
	}
	return nil
}

// MergeBuyers commits a dedup merge in one transaction. Contacts,
// transcripts, and matches move from the removed buyers to the survivor;
// when two moved matches would land on the same (buyer, deal) pair, the
// one with the lower composite score is dropped first.
func (s *PostgresStore) MergeBuyers(ctx context.Context, survivor *model.BuyerProfile, removedIDs []string) error {
	survivor.UpdatedAt = time.Now().UTC()
	profile, err := json.Marshal(survivor)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal survivor")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin merge")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`UPDATE buyers SET name = $1, website = $2, profile = $3, updated_at = $4 WHERE id = $5`,
		survivor.Name, survivor.Website, profile, survivor.UpdatedAt, survivor.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: merge update survivor %s", survivor.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("buyer not found: %s", survivor.ID)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE contacts SET buyer_id = $1 WHERE buyer_id = ANY($2)`,
		survivor.ID, removedIDs,
	); err != nil {
		return eris.Wrap(err, "postgres: merge repoint contacts")
	}
	if _, err := tx.Exec(ctx,
		`UPDATE transcripts SET buyer_id = $1 WHERE buyer_id = ANY($2)`,
		survivor.ID, removedIDs,
	); err != nil {
		return eris.Wrap(err, "postgres: merge repoint transcripts")
	}

	// Collapse per-deal match collisions within the group before
	// repointing, keeping the highest composite score (lowest id on
	// ties, for determinism).
	if _, err := tx.Exec(ctx,
		`DELETE FROM matches m USING matches k
		 WHERE m.deal_id = k.deal_id AND m.id != k.id
		   AND (m.buyer_id = $1 OR m.buyer_id = ANY($2))
		   AND (k.buyer_id = $1 OR k.buyer_id = ANY($2))
		   AND (k.composite_score > m.composite_score
		        OR (k.composite_score = m.composite_score AND k.id < m.id))`,
		survivor.ID, removedIDs,
	); err != nil {
		return eris.Wrap(err, "postgres: merge collapse matches")
	}
	if _, err := tx.Exec(ctx,
		`UPDATE matches SET buyer_id = $1 WHERE buyer_id = ANY($2)`,
		survivor.ID, removedIDs,
	); err != nil {
		return eris.Wrap(err, "postgres: merge repoint matches")
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM buyers WHERE id = ANY($1)`,
		removedIDs,
	); err != nil {
		return eris.Wrap(err, "postgres: merge delete removed buyers")
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit merge")
}

// Deals

func (s *PostgresStore) CreateDeal(ctx context.Context, d *model.DealProfile) error {
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
		return eris.Wrap(err, "postgres: marshal deal")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO deals (id, company_name, website, status, profile, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		d.ID, d.CompanyName, d.Website, string(d.Status), profile, d.CreatedAt, d.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: insert deal")
}

func (s *PostgresStore) GetDeal(ctx context.Context, id string) (*model.DealProfile, error) {
	var profile []byte
	err := s.pool.QueryRow(ctx,
		`SELECT profile FROM deals WHERE id = $1`,
		id,
	).Scan(&profile)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get deal %s", id)
	}
	var d model.DealProfile
	if err := json.Unmarshal(profile, &d); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal deal")
	}
	return &d, nil
}

func (s *PostgresStore) UpdateDeal(ctx context.Context, d *model.DealProfile) error {
	d.UpdatedAt = time.Now().UTC()
	profile, err := json.Marshal(d)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal deal")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE deals SET company_name = $1, website = $2, status = $3, profile = $4, updated_at = $5 WHERE id = $6`,
		d.CompanyName, d.Website, string(d.Status), profile, d.UpdatedAt, d.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update deal %s", d.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("deal not found: %s", d.ID)
	}
	return nil
}

// Matches

func (s *PostgresStore) GetMatch(ctx context.Context, buyerID, dealID string) (*model.BuyerDealMatch, error) {
	var id string
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, data FROM matches WHERE buyer_id = $1 AND deal_id = $2`,
		buyerID, dealID,
	).Scan(&id, &data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get match")
	}
	return unmarshalMatch(id, buyerID, dealID, data)
}

func (s *PostgresStore) ListMatchesByDeal(ctx context.Context, dealID string) ([]model.BuyerDealMatch, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, buyer_id, data FROM matches WHERE deal_id = $1 ORDER BY composite_score DESC, buyer_id ASC`,
		dealID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list matches")
	}
	defer rows.Close()

	var matches []model.BuyerDealMatch
	for rows.Next() {
		var id, buyerID string
		var data []byte
		if err := rows.Scan(&id, &buyerID, &data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan match")
		}
		m, err := unmarshalMatch(id, buyerID, dealID, data)
		if err != nil {
			return nil, err
		}
		matches = append(matches, *m)
	}
	return matches, eris.Wrap(rows.Err(), "postgres: list matches iterate")
}

func (s *PostgresStore) UpsertMatch(ctx context.Context, m *model.BuyerDealMatch) error {
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
		return eris.Wrap(err, "postgres: marshal match")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO matches (id, buyer_id, deal_id, composite_score, status, data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (buyer_id, deal_id) DO UPDATE SET composite_score = $4, status = $5, data = $6, updated_at = $8`,
		m.ID, m.BuyerID, m.DealID, m.CompositeScore, string(m.Status), data, m.CreatedAt, m.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: upsert match")
}

// unmarshalMatch decodes a match blob, preferring the row's id and buyer_id
// columns over the blob copies: a merge repoints the columns only.
func unmarshalMatch(id, buyerID, dealID string, data []byte) (*model.BuyerDealMatch, error) {
	var m model.BuyerDealMatch
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal match")
	}
	m.ID = id
	m.BuyerID = buyerID
	m.DealID = dealID
	return &m, nil
}

// Contacts

func (s *PostgresStore) CreateContacts(ctx context.Context, contacts []model.Contact) error {
	for i := range contacts {
		c := &contacts[i]
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = time.Now().UTC()
		}
		_, err := s.pool.Exec(ctx,
			`INSERT INTO contacts (id, buyer_id, full_name, title, email, phone, source, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.ID, c.BuyerID, c.FullName, c.Title, c.Email, c.Phone, c.Source, c.CreatedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert contact for buyer %s", c.BuyerID)
		}
	}
	return nil
}

func (s *PostgresStore) ListContactsByBuyer(ctx context.Context, buyerID string) ([]model.Contact, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, buyer_id, full_name, title, email, phone, source, created_at FROM contacts WHERE buyer_id = $1 ORDER BY created_at ASC, id ASC`,
		buyerID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list contacts")
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(&c.ID, &c.BuyerID, &c.FullName, &c.Title, &c.Email, &c.Phone, &c.Source, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan contact")
		}
		contacts = append(contacts, c)
	}
	return contacts, eris.Wrap(rows.Err(), "postgres: list contacts iterate")
}

// Transcripts

func (s *PostgresStore) CreateTranscript(ctx context.Context, t *model.Transcript) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO transcripts (id, buyer_id, title, body, recorded_at, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.BuyerID, t.Title, t.Body, t.RecordedAt, t.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert transcript for buyer %s", t.BuyerID)
}

func (s *PostgresStore) ListTranscriptsByBuyer(ctx context.Context, buyerID string) ([]model.Transcript, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, buyer_id, title, body, recorded_at, created_at FROM transcripts WHERE buyer_id = $1 ORDER BY recorded_at ASC, id ASC`,
		buyerID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list transcripts")
	}
	defer rows.Close()

	var transcripts []model.Transcript
	for rows.Next() {
		var t model.Transcript
		if err := rows.Scan(&t.ID, &t.BuyerID, &t.Title, &t.Body, &t.RecordedAt, &t.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan transcript")
		}
		transcripts = append(transcripts, t)
	}
	return transcripts, eris.Wrap(rows.Err(), "postgres: list transcripts iterate")
}

// Checkpoints

func (s *PostgresStore) GetCheckpoint(ctx context.Context, operationID, collectionID string) (*model.EnrichmentCheckpoint, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM enrichment_checkpoints WHERE operation_id = $1 AND collection_id = $2`,
		operationID, collectionID,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get checkpoint")
	}
	var cp model.EnrichmentCheckpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal checkpoint")
	}
	return &cp, nil
}

func (s *PostgresStore) SaveCheckpoint(ctx context.Context, cp *model.EnrichmentCheckpoint) error {
	cp.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(cp)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal checkpoint")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO enrichment_checkpoints (operation_id, collection_id, data, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (operation_id, collection_id) DO UPDATE SET data = $3, updated_at = $4`,
		cp.OperationID, cp.CollectionID, data, cp.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: save checkpoint")
}
