package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront_service/internal/domain"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

type postgresOrderRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewPostgresOrderRepository(db *sql.DB, logger *logrus.Logger) domain.OrderRepository {
	return &postgresOrderRepository{
		db:  db,
		log: logger,
	}
}

func (r *postgresOrderRepository) CreateOrder(ctx context.Context, order *domain.Order) (retOrder *domain.Order, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.log.Errorf("Failed to begin transaction: %v", err)
		return nil, fmt.Errorf("could not start transaction: %w", err)
	}
	defer r.finishTx(tx, &err)

	var customerID sql.NullInt64
	if order.CustomerID != nil {
		customerID = sql.NullInt64{Int64: int64(*order.CustomerID), Valid: true}
	}

	orderQuery := `
        INSERT INTO orders (
            customer_id, full_name, email, phone,
            pincode, address_line1, address_line2, landmark, city, state, address,
            total_amount, status, payment_status, paid
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
        RETURNING id, status, payment_status, created_at
    `
	err = tx.QueryRowContext(ctx, orderQuery,
		customerID,
		order.FullName,
		order.Email,
		order.Phone,
		order.Pincode,
		order.AddressLine1,
		order.AddressLine2,
		order.Landmark,
		order.City,
		order.State,
		order.Address,
		order.TotalAmount,
		order.Status,
		order.PaymentStatus,
		order.Paid,
	).Scan(
		&order.ID,
		&order.Status,
		&order.PaymentStatus,
		&order.CreatedAt,
	)
	if err != nil {
		r.log.Errorf("Failed to insert order for '%s': %v", order.FullName, err)
		return nil, fmt.Errorf("could not create order entry: %w", err)
	}
	r.log.Infof("Order entry created with ID: %d for '%s'", order.ID, order.FullName)

	itemQuery := `
        INSERT INTO order_items (order_id, product_id, product_name, price, quantity, subtotal)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `
	stmt, err := tx.PrepareContext(ctx, itemQuery)
	if err != nil {
		r.log.Errorf("Failed to prepare order item statement: %v", err)
		return nil, fmt.Errorf("could not prepare item statement: %w", err)
	}
	defer stmt.Close()

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		err = stmt.QueryRowContext(ctx, order.ID, item.ProductID, item.ProductName, item.Price, item.Quantity, item.Subtotal).Scan(&item.ID)
		if err != nil {
			r.log.Errorf("Failed to insert order item (product_id: %d, quantity: %d) for order %d: %v", item.ProductID, item.Quantity, order.ID, err)
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23514" {
				return nil, fmt.Errorf("invalid item data (product_id: %d): %s", item.ProductID, pqErr.Message)
			}
			return nil, fmt.Errorf("could not create order item (product_id: %d): %w", item.ProductID, err)
		}
	}

	r.log.Infof("Order %d created successfully with %d items.", order.ID, len(order.Items))
	return order, nil
}

// finishTx commits the transaction unless the caller's error (or a panic) is
// in flight, in which case it rolls back.
func (r *postgresOrderRepository) finishTx(tx *sql.Tx, err *error) {
	if p := recover(); p != nil {
		r.log.Error("Recovered from panic, rolling back transaction")
		_ = tx.Rollback()
		panic(p)
	}
	if *err != nil {
		r.log.Warnf("Rolling back transaction due to error: %v", *err)
		if rbErr := tx.Rollback(); rbErr != nil {
			r.log.Errorf("Failed to rollback transaction: %v", rbErr)
		}
		return
	}
	if cErr := tx.Commit(); cErr != nil {
		r.log.Errorf("Failed to commit transaction: %v", cErr)
		*err = fmt.Errorf("failed to commit transaction: %w", cErr)
	}
}

const orderColumns = `
        id, customer_id, full_name, email, phone,
        pincode, address_line1, address_line2, landmark, city, state, address,
        total_amount, status, payment_status, paid,
        created_at, paid_at, shipped_at, delivered_at`

func scanOrder(row interface {
	Scan(dest ...interface{}) error
}, order *domain.Order) error {
	var customerID sql.NullInt64
	var email, landmark sql.NullString
	var paidAt, shippedAt, deliveredAt sql.NullTime

	err := row.Scan(
		&order.ID,
		&customerID,
		&order.FullName,
		&email,
		&order.Phone,
		&order.Pincode,
		&order.AddressLine1,
		&order.AddressLine2,
		&landmark,
		&order.City,
		&order.State,
		&order.Address,
		&order.TotalAmount,
		&order.Status,
		&order.PaymentStatus,
		&order.Paid,
		&order.CreatedAt,
		&paidAt,
		&shippedAt,
		&deliveredAt,
	)
	if err != nil {
		return err
	}

	if customerID.Valid {
		id := int(customerID.Int64)
		order.CustomerID = &id
	}
	order.Email = email.String
	order.Landmark = landmark.String
	if paidAt.Valid {
		t := paidAt.Time
		order.PaidAt = &t
	}
	if shippedAt.Valid {
		t := shippedAt.Time
		order.ShippedAt = &t
	}
	if deliveredAt.Valid {
		t := deliveredAt.Time
		order.DeliveredAt = &t
	}
	return nil
}

func (r *postgresOrderRepository) GetOrderByID(ctx context.Context, id int) (*domain.Order, error) {
	order := &domain.Order{}
	orderQuery := `
        SELECT ` + orderColumns + `
        FROM orders
        WHERE id = $1
    `
	err := scanOrder(r.db.QueryRowContext(ctx, orderQuery, id), order)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Order with ID %d not found", id)
			return nil, domain.ErrOrderNotFound
		}
		r.log.Errorf("Failed to get order by ID %d: %v", id, err)
		return nil, fmt.Errorf("could not retrieve order: %w", err)
	}

	items, err := r.getOrderItems(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	order.Items = items

	r.log.Infof("Order %d retrieved successfully with %d items.", order.ID, len(order.Items))
	return order, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func (r *postgresOrderRepository) getOrderItems(ctx context.Context, q queryer, orderID int) ([]domain.OrderItem, error) {
	itemsQuery := `
        SELECT id, order_id, product_id, product_name, price, quantity, subtotal
        FROM order_items
        WHERE order_id = $1
        ORDER BY id
    `
	rows, err := q.QueryContext(ctx, itemsQuery, orderID)
	if err != nil {
		r.log.Errorf("Failed to query order items for order ID %d: %v", orderID, err)
		return nil, fmt.Errorf("could not retrieve order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Price, &item.Quantity, &item.Subtotal); err != nil {
			r.log.Errorf("Failed to scan order item row for order ID %d: %v", orderID, err)
			return nil, fmt.Errorf("error scanning order item: %w", err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		r.log.Errorf("Error during order items iteration for order ID %d: %v", orderID, err)
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	r.log.Debugf("Retrieved %d items for order ID %d", len(items), orderID)
	return items, nil
}

// CompletePayment runs the whole payment transition inside one transaction:
// the order row is locked to serialize concurrent completions, the
// idempotency guard is re-checked under the lock, stock is reserved for every
// item, and only then is payment_status flipped. Any reservation failure
// rolls back the entire unit, leaving the order payable for a later retry.
func (r *postgresOrderRepository) CompletePayment(ctx context.Context, orderID int) (retOrder *domain.Order, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.log.Errorf("Failed to begin payment transaction for order %d: %v", orderID, err)
		return nil, fmt.Errorf("could not start transaction: %w", err)
	}
	defer r.finishTx(tx, &err)

	var status domain.OrderStatus
	var paymentStatus domain.PaymentStatus
	lockQuery := `
        SELECT status, payment_status
        FROM orders
        WHERE id = $1
        FOR UPDATE
    `
	err = tx.QueryRowContext(ctx, lockQuery, orderID).Scan(&status, &paymentStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Order with ID %d not found for payment", orderID)
			return nil, domain.ErrOrderNotFound
		}
		r.log.Errorf("Failed to lock order %d for payment: %v", orderID, err)
		return nil, fmt.Errorf("could not lock order for payment: %w", err)
	}

	if paymentStatus == domain.PaymentCompleted {
		r.log.Infof("Order %d is already paid, skipping stock deduction", orderID)
		err = domain.ErrAlreadyPaid
		return nil, err
	}
	if status == domain.StatusCancelled {
		r.log.Warnf("Attempted payment on cancelled order %d", orderID)
		err = &domain.InvalidTransitionError{
			OrderID:       orderID,
			From:          status,
			To:            domain.StatusProcessing,
			PaymentStatus: paymentStatus,
			Reason:        "order is cancelled",
		}
		return nil, err
	}

	items, err := r.getOrderItems(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	// Stock deduction and the status flip are one atomic unit: a short
	// product aborts everything with no partial deduction.
	for _, item := range items {
		if err = reserveStock(ctx, tx, r.log, item.ProductID, item.Quantity); err != nil {
			r.log.Warnf("Payment for order %d aborted: %v", orderID, err)
			return nil, err
		}
	}

	order := &domain.Order{}
	updateQuery := `
        UPDATE orders
        SET payment_status = $1,
            paid = TRUE,
            status = $2,
            paid_at = COALESCE(paid_at, NOW())
        WHERE id = $3
        RETURNING ` + orderColumns + `
    `
	err = scanOrder(tx.QueryRowContext(ctx, updateQuery, domain.PaymentCompleted, domain.StatusProcessing, orderID), order)
	if err != nil {
		r.log.Errorf("Failed to mark order %d as paid: %v", orderID, err)
		return nil, fmt.Errorf("could not mark order as paid: %w", err)
	}
	order.Items = items

	r.log.Infof("Order %d payment completed, stock deducted for %d items", orderID, len(items))
	return order, nil
}

// UpdateOrderStatus moves the order from exactly `from` to `to`, setting the
// matching timestamp only if it was never set before. A concurrent change of
// the row makes the guarded update match nothing.
func (r *postgresOrderRepository) UpdateOrderStatus(ctx context.Context, id int, from, to domain.OrderStatus) (*domain.Order, error) {
	query := `
        UPDATE orders
        SET status = $1,
            shipped_at = CASE WHEN $1 = 'shipped' THEN COALESCE(shipped_at, NOW()) ELSE shipped_at END,
            delivered_at = CASE WHEN $1 = 'delivered' THEN COALESCE(delivered_at, NOW()) ELSE delivered_at END
        WHERE id = $2 AND status = $3
        RETURNING ` + orderColumns + `
    `
	order := &domain.Order{}
	err := scanOrder(r.db.QueryRowContext(ctx, query, to, id, from), order)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Guarded status update matched nothing for order %d ('%s' -> '%s')", id, from, to)
			return nil, &domain.InvalidTransitionError{
				OrderID: id,
				From:    from,
				To:      to,
				Reason:  "order status changed concurrently or order does not exist",
			}
		}
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23514" {
			r.log.Warnf("Invalid status value '%s' for order ID %d: %v", to, id, err)
			return nil, fmt.Errorf("invalid order status provided: %s", to)
		}
		r.log.Errorf("Failed to update status for order ID %d: %v", id, err)
		return nil, fmt.Errorf("could not update order status: %w", err)
	}

	items, err := r.getOrderItems(ctx, r.db, id)
	if err != nil {
		return nil, fmt.Errorf("order status updated, but failed to retrieve items: %w", err)
	}
	order.Items = items

	r.log.Infof("Order %d status updated to '%s'", order.ID, order.Status)
	return order, nil
}

// UpdateItemQuantity is the administrative override for not-yet-paid orders.
// The item subtotal and the order total move together in one transaction so
// the total always equals the sum of item subtotals.
func (r *postgresOrderRepository) UpdateItemQuantity(ctx context.Context, orderID, itemID, quantity int) (retOrder *domain.Order, err error) {
	if quantity < 1 {
		return nil, fmt.Errorf("item quantity must be at least 1, got %d", quantity)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.log.Errorf("Failed to begin item update transaction for order %d: %v", orderID, err)
		return nil, fmt.Errorf("could not start transaction: %w", err)
	}
	defer r.finishTx(tx, &err)

	var paymentStatus domain.PaymentStatus
	err = tx.QueryRowContext(ctx, `SELECT payment_status FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&paymentStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		r.log.Errorf("Failed to lock order %d for item update: %v", orderID, err)
		return nil, fmt.Errorf("could not lock order: %w", err)
	}
	if paymentStatus == domain.PaymentCompleted {
		r.log.Warnf("Rejected item mutation on paid order %d", orderID)
		err = &domain.InvalidTransitionError{
			OrderID:       orderID,
			PaymentStatus: paymentStatus,
			Reason:        "items cannot be changed after payment is completed",
		}
		return nil, err
	}

	itemQuery := `
        UPDATE order_items
        SET quantity = $1,
            subtotal = price * $1
        WHERE id = $2 AND order_id = $3
    `
	result, err := tx.ExecContext(ctx, itemQuery, quantity, itemID, orderID)
	if err != nil {
		r.log.Errorf("Failed to update item %d of order %d: %v", itemID, orderID, err)
		return nil, fmt.Errorf("could not update order item: %w", err)
	}
	rowsAffected, raErr := result.RowsAffected()
	if raErr == nil && rowsAffected == 0 {
		err = fmt.Errorf("order item %d not found in order %d", itemID, orderID)
		return nil, err
	}

	totalQuery := `
        UPDATE orders
        SET total_amount = (SELECT COALESCE(SUM(subtotal), 0) FROM order_items WHERE order_id = $1)
        WHERE id = $1
        RETURNING ` + orderColumns + `
    `
	order := &domain.Order{}
	err = scanOrder(tx.QueryRowContext(ctx, totalQuery, orderID), order)
	if err != nil {
		r.log.Errorf("Failed to recompute total for order %d: %v", orderID, err)
		return nil, fmt.Errorf("could not recompute order total: %w", err)
	}

	order.Items, err = r.getOrderItems(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	r.log.Infof("Order %d item %d quantity set to %d, total recomputed to %s", orderID, itemID, quantity, order.TotalAmount)
	return order, nil
}

func (r *postgresOrderRepository) ListOrdersByCustomer(ctx context.Context, customerID, limit, offset int) ([]domain.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	ordersQuery := `
        SELECT ` + orderColumns + `
        FROM orders
        WHERE customer_id = $1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3
    `
	rows, err := r.db.QueryContext(ctx, ordersQuery, customerID, limit, offset)
	if err != nil {
		r.log.Errorf("Failed to list orders for customer ID %d: %v", customerID, err)
		return nil, fmt.Errorf("could not retrieve orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	orderIDs := []int{}

	for rows.Next() {
		var order domain.Order
		if err := scanOrder(rows, &order); err != nil {
			r.log.Errorf("Failed to scan order row for customer ID %d: %v", customerID, err)
			return nil, fmt.Errorf("error scanning order data: %w", err)
		}
		orders = append(orders, order)
		orderIDs = append(orderIDs, order.ID)
	}
	if err = rows.Err(); err != nil {
		r.log.Errorf("Error during orders iteration for customer ID %d: %v", customerID, err)
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	if len(orders) == 0 {
		r.log.Infof("No orders found for customer ID %d with limit %d, offset %d", customerID, limit, offset)
		return []domain.Order{}, nil
	}

	itemsQuery := `
        SELECT id, order_id, product_id, product_name, price, quantity, subtotal
        FROM order_items
        WHERE order_id = ANY($1::int[])
        ORDER BY order_id, id
    `
	itemRows, err := r.db.QueryContext(ctx, itemsQuery, pq.Array(orderIDs))
	if err != nil {
		r.log.Errorf("Failed to query items for multiple orders (%v): %v", orderIDs, err)
		return nil, fmt.Errorf("could not retrieve order items for list: %w", err)
	}
	defer itemRows.Close()

	itemsMap := make(map[int][]domain.OrderItem)
	for itemRows.Next() {
		var item domain.OrderItem
		if err := itemRows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Price, &item.Quantity, &item.Subtotal); err != nil {
			r.log.Errorf("Failed to scan order item row during multi-order fetch: %v", err)
			return nil, fmt.Errorf("error scanning order item data for list: %w", err)
		}
		itemsMap[item.OrderID] = append(itemsMap[item.OrderID], item)
	}
	if err = itemRows.Err(); err != nil {
		r.log.Errorf("Error during multi-order items iteration: %v", err)
		return nil, fmt.Errorf("error iterating order items for list: %w", err)
	}

	for i := range orders {
		if items, ok := itemsMap[orders[i].ID]; ok {
			orders[i].Items = items
		} else {
			orders[i].Items = []domain.OrderItem{}
		}
	}

	r.log.Infof("Retrieved %d orders for customer ID %d (limit %d, offset %d)", len(orders), customerID, limit, offset)
	return orders, nil
}
