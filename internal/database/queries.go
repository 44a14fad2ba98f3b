package database

// Migration bookkeeping
const (
	createMigrationsTableSQL = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id SERIAL PRIMARY KEY,
			migration_name VARCHAR(255) NOT NULL UNIQUE,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)`

	selectAppliedMigrationsSQL = `SELECT migration_name FROM schema_migrations`

	recordMigrationSQL = `INSERT INTO schema_migrations (migration_name) VALUES ($1)`
)

// Order queries
const (
	orderColumns = `id, restaurant_id, table_id, status, created_at, total_cents, currency,
		version, idempotency_key, idempotency_hash`

	InsertOrderSQL = `
		INSERT INTO orders (id, restaurant_id, table_id, status, created_at, total_cents, currency,
			version, idempotency_key, idempotency_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	InsertOrderIdempotentSQL = `
		INSERT INTO orders (id, restaurant_id, table_id, status, created_at, total_cents, currency,
			version, idempotency_key, idempotency_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (restaurant_id, table_id, idempotency_key) DO NOTHING
		RETURNING id`

	InsertOrderLineSQL = `
		INSERT INTO order_lines (id, order_id, position, item_id, name, quantity,
			unit_price_cents, currency, line_total_cents, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	GetOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	GetOrderByIdempotencyKeySQL = `
		SELECT ` + orderColumns + ` FROM orders
		WHERE restaurant_id = $1 AND table_id = $2 AND idempotency_key = $3`

	GetOrderLinesSQL = `
		SELECT order_id, id, item_id, name, quantity, unit_price_cents, currency, line_total_cents, notes
		FROM order_lines
		WHERE order_id = ANY($1)
		ORDER BY order_id, position`

	UpdateOrderStatusWithVersionSQL = `
		UPDATE orders SET status = $1, version = version + 1
		WHERE id = $2 AND version = $3
		RETURNING ` + orderColumns

	// $2 NULL lists every status; ($3, $4) is the keyset position or NULL.
	ListKitchenOrdersSQL = `
		SELECT ` + orderColumns + ` FROM orders
		WHERE restaurant_id = $1
		  AND ($2::text IS NULL OR status = $2)
		  AND ($3::timestamptz IS NULL OR (created_at, id) > ($3::timestamptz, $4::text))
		ORDER BY created_at, id
		LIMIT $5`

	ListTableOrdersSQL = `
		SELECT ` + orderColumns + ` FROM orders
		WHERE restaurant_id = $1 AND table_id = $2
		  AND ($3::text IS NULL OR status = $3)
		  AND ($4::timestamptz IS NULL OR (created_at, id) > ($4::timestamptz, $5::text))
		ORDER BY created_at, id
		LIMIT $6`

	SummarizeTableOrdersSQL = `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'PLACED'),
			COUNT(*) FILTER (WHERE status = 'ACCEPTED'),
			COUNT(*) FILTER (WHERE status = 'READY'),
			COALESCE(SUM(total_cents), 0)::bigint,
			MAX(currency),
			MAX(created_at)
		FROM orders
		WHERE restaurant_id = $1 AND table_id = $2`
)

// Table queries
const (
	GetTableSQL = `
		SELECT restaurant_id, id, status, opened_at, closed_at
		FROM tables WHERE restaurant_id = $1 AND id = $2`

	UpsertTableSQL = `
		INSERT INTO tables (restaurant_id, id, status, opened_at, closed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (restaurant_id, id) DO UPDATE SET
			status = EXCLUDED.status,
			opened_at = EXCLUDED.opened_at,
			closed_at = EXCLUDED.closed_at`

	RestaurantExistsSQL = `SELECT EXISTS(SELECT 1 FROM restaurants WHERE id = $1)`

	ListTablesSQL = `
		SELECT t.restaurant_id, t.id, t.status, t.opened_at, t.closed_at,
			COALESCE(s.orders_total, 0), COALESCE(s.placed, 0), COALESCE(s.accepted, 0),
			COALESCE(s.ready, 0), COALESCE(s.total_cents, 0)::bigint, s.currency, s.last_order_at
		FROM tables t
		LEFT JOIN LATERAL (
			SELECT COUNT(*) AS orders_total,
				COUNT(*) FILTER (WHERE o.status = 'PLACED') AS placed,
				COUNT(*) FILTER (WHERE o.status = 'ACCEPTED') AS accepted,
				COUNT(*) FILTER (WHERE o.status = 'READY') AS ready,
				SUM(o.total_cents) AS total_cents,
				MAX(o.currency) AS currency,
				MAX(o.created_at) AS last_order_at
			FROM orders o
			WHERE o.restaurant_id = t.restaurant_id AND o.table_id = t.id
		) s ON TRUE
		WHERE t.restaurant_id = $1
		  AND ($2::text IS NULL OR t.status = $2)
		  AND ($3::text IS NULL OR t.id > $3)
		ORDER BY t.id
		LIMIT $4`
)

// Menu queries
const (
	GetCurrentMenuSQL = `
		SELECT id, restaurant_id, version, updated_at
		FROM menus WHERE restaurant_id = $1
		ORDER BY version DESC
		LIMIT 1`

	GetMenuItemsSQL = `
		SELECT id, name, COALESCE(description, ''), price_cents, currency, is_available, category_id
		FROM menu_items WHERE menu_id = $1
		ORDER BY position, id`

	UpsertRestaurantSQL = `
		INSERT INTO restaurants (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`

	UpsertMenuSQL = `
		INSERT INTO menus (id, restaurant_id, version, updated_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			restaurant_id = EXCLUDED.restaurant_id,
			version = EXCLUDED.version,
			updated_at = EXCLUDED.updated_at`

	UpsertMenuItemSQL = `
		INSERT INTO menu_items (id, menu_id, name, description, price_cents, currency, is_available, category_id, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			menu_id = EXCLUDED.menu_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price_cents = EXCLUDED.price_cents,
			currency = EXCLUDED.currency,
			is_available = EXCLUDED.is_available,
			category_id = EXCLUDED.category_id,
			position = EXCLUDED.position`
)
