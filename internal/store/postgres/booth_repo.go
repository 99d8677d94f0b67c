package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kaykas/booth-beacon-app-sub000/internal/booth"
	"github.com/kaykas/booth-beacon-app-sub000/internal/dedupe"
	"github.com/kaykas/booth-beacon-app-sub000/internal/store"
)

// BoothRepository implements store.BoothRepository on the booths table.
// Identity is the exact normalized key stored in the identity_key column,
// which carries a unique index.
type BoothRepository struct {
	pool Pool
}

// NewBoothRepository builds a repository over an existing pool.
func NewBoothRepository(pool Pool) *BoothRepository {
	return &BoothRepository{pool: pool}
}

const boothColumns = `id, name, address, city, state, country, postal_code,
	latitude, longitude, machine_type, machine_count, cost, hours,
	is_operational, status, description, website, phone,
	source_names, source_urls, created_at, updated_at`

func scanBooth(row pgx.Row) (booth.Booth, error) {
	var b booth.Booth
	err := row.Scan(
		&b.ID, &b.Name, &b.Address, &b.City, &b.State, &b.Country,
		&b.PostalCode, &b.Latitude, &b.Longitude, &b.MachineType,
		&b.MachineCount, &b.Cost, &b.Hours, &b.IsOperational, &b.Status,
		&b.Description, &b.Website, &b.Phone, &b.SourceNames, &b.SourceURLs,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return booth.Booth{}, store.ErrNotFound
	}
	if err != nil {
		return booth.Booth{}, fmt.Errorf("scan booth: %w", err)
	}
	return b, nil
}

// FindByIdentity implements store.BoothRepository.
func (r *BoothRepository) FindByIdentity(ctx context.Context, name, city, country string) (booth.Booth, error) {
	key := dedupe.KeyFor(name, city, country)
	row := r.pool.QueryRow(ctx, `SELECT `+boothColumns+` FROM booths WHERE identity_key = $1`, string(key))
	return scanBooth(row)
}

// Insert implements store.BoothRepository.
func (r *BoothRepository) Insert(ctx context.Context, b booth.Booth) (string, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	key := dedupe.BoothKey(b)
	_, err := r.pool.Exec(ctx, `
		INSERT INTO booths
			(id, identity_key, name, address, city, state, country, postal_code,
			 latitude, longitude, machine_type, machine_count, cost, hours,
			 is_operational, status, description, website, phone,
			 source_names, source_urls, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, NOW(), NOW())`,
		b.ID, string(key), b.Name, b.Address, b.City, b.State, b.Country,
		b.PostalCode, b.Latitude, b.Longitude, b.MachineType, b.MachineCount,
		b.Cost, b.Hours, b.IsOperational, b.Status, b.Description, b.Website,
		b.Phone, b.SourceNames, b.SourceURLs)
	if err != nil {
		return "", fmt.Errorf("insert booth %q: %w", b.Name, err)
	}
	return b.ID, nil
}

// Update implements store.BoothRepository. The identity_key is rewritten
// alongside the fields so a corrected city or country re-keys the row.
func (r *BoothRepository) Update(ctx context.Context, b booth.Booth) error {
	key := dedupe.BoothKey(b)
	tag, err := r.pool.Exec(ctx, `
		UPDATE booths
		SET identity_key = $2, name = $3, address = $4, city = $5, state = $6,
			country = $7, postal_code = $8, latitude = $9, longitude = $10,
			machine_type = $11, machine_count = $12, cost = $13, hours = $14,
			is_operational = $15, status = $16, description = $17,
			website = $18, phone = $19, source_names = $20, source_urls = $21,
			updated_at = NOW()
		WHERE id = $1`,
		b.ID, string(key), b.Name, b.Address, b.City, b.State, b.Country,
		b.PostalCode, b.Latitude, b.Longitude, b.MachineType, b.MachineCount,
		b.Cost, b.Hours, b.IsOperational, b.Status, b.Description, b.Website,
		b.Phone, b.SourceNames, b.SourceURLs)
	if err != nil {
		return fmt.Errorf("update booth %s: %w", b.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Count implements store.BoothRepository.
func (r *BoothRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM booths`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count booths: %w", err)
	}
	return count, nil
}
