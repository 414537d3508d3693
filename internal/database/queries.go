package database

// Customer queries
const (
	GetCustomerByLoginSQL = `
		SELECT id, login_id, password_hash, membership_level, order_count
		FROM customers WHERE login_id = $1`

	GetCustomerByLoginForUpdateSQL = `
		SELECT id, login_id, password_hash, membership_level, order_count
		FROM customers WHERE login_id = $1
		FOR UPDATE`

	InsertCustomerSQL = `
		INSERT INTO customers (login_id, password_hash, membership_level, order_count)
		VALUES ($1, $2, 'STANDARD', 0)
		RETURNING id`

	UpdateCustomerLoyaltySQL = `
		UPDATE customers SET order_count = $1, membership_level = $2
		WHERE id = $3`
)

// Catalog and inventory queries
const (
	GetItemByNameSQL = `
		SELECT id, name, unit_price FROM items WHERE name = $1`

	GetInventorySQL = `
		SELECT item_id, stock_quantity FROM inventory WHERE item_id = $1`

	GetInventoryForUpdateSQL = `
		SELECT item_id, stock_quantity FROM inventory WHERE item_id = $1
		FOR UPDATE`

	DecrementStockSQL = `
		UPDATE inventory SET stock_quantity = stock_quantity - $1
		WHERE item_id = $2`

	IncreaseStockSQL = `
		UPDATE inventory SET stock_quantity = stock_quantity + $1
		WHERE item_id = $2`

	DecreaseStockClampedSQL = `
		UPDATE inventory SET stock_quantity = GREATEST(0, stock_quantity - $1)
		WHERE item_id = $2`

	ListInventorySQL = `
		SELECT i.id, i.name, i.unit_price, inv.stock_quantity
		FROM inventory inv
		JOIN items i ON i.id = inv.item_id
		ORDER BY i.id ASC`
)

// Order queries
const (
	InsertOrderSQL = `
		INSERT INTO orders (customer_id, dinner_kind, dinner_style, delivery_address,
			card_number, reservation_time, total_price, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'ORDERED')
		RETURNING id, created_at`

	InsertOrderLineItemSQL = `
		INSERT INTO order_items (order_id, item_id, quantity)
		VALUES ($1, $2, $3)`

	TransitionOrderStatusSQL = `
		UPDATE orders SET status = $1
		WHERE id = $2 AND status = $3`

	TransitionOrderDeliveredSQL = `
		UPDATE orders SET status = $1, delivery_time = NOW()
		WHERE id = $2 AND status = $3`

	GetOrderByIDSQL = `
		SELECT o.id, o.customer_id, c.login_id, o.dinner_kind, o.dinner_style,
			o.delivery_address, o.card_number, o.reservation_time, o.total_price,
			o.status, o.delivery_time, o.created_at
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		WHERE o.id = $1`

	GetOrdersByCustomerSQL = `
		SELECT o.id, o.customer_id, c.login_id, o.dinner_kind, o.dinner_style,
			o.delivery_address, o.card_number, o.reservation_time, o.total_price,
			o.status, o.delivery_time, o.created_at
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		WHERE c.login_id = $1
		ORDER BY o.created_at DESC`

	GetOrdersByStatusesSQL = `
		SELECT o.id, o.customer_id, c.login_id, o.dinner_kind, o.dinner_style,
			o.delivery_address, o.card_number, o.reservation_time, o.total_price,
			o.status, o.delivery_time, o.created_at
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		WHERE o.status = ANY($1)
		ORDER BY o.created_at ASC`

	GetOrderLineItemsSQL = `
		SELECT oi.order_id, oi.item_id, i.name, oi.quantity
		FROM order_items oi
		JOIN items i ON i.id = oi.item_id
		WHERE oi.order_id = $1
		ORDER BY oi.item_id ASC`
)
