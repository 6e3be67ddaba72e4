package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/floorsync/internal/domain"
)

type TablesRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *TablesRepo) With(db DB) *TablesRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *TablesRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Active retrieves a tenant's active tables ordered by name. Rows carry no
// occupancy; that is derived downstream from the bookings snapshot.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - tenantID: tenant the tables belong to.
//
// Returns:
//   - []domain.Table: active tables, possibly empty.
//   - error: repository.ErrUnauthorized on a backend authorization failure.
func (r *TablesRepo) Active(ctx context.Context, tenantID string) ([]domain.Table, error) {
	const op = "postgres.TablesRepo.Active"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, tenant_id, name, capacity, pos_x, pos_y, type, active
		 FROM tables
		 WHERE tenant_id = $1 AND active = TRUE
		 ORDER BY name ASC`,
		tenantID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Table
	for rows.Next() {
		var t domain.Table
		var typ *string
		if err := rows.Scan(&t.ID, &t.TenantID, &t.Name, &t.Capacity, &t.PosX, &t.PosY, &typ, &t.Active); err != nil {
			return nil, wrapDBErr(op, err)
		}

		if typ != nil {
			t.Type = *typ
		}

		out = append(out, t)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}
