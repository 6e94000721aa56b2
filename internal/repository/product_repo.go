package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"storefront_service/internal/domain"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// execQuerier is satisfied by both *sql.DB and *sql.Tx so the stock
// reservation statements can run standalone or inside a payment transaction.
type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type postgresProductRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewPostgresProductRepository(db *sql.DB, logger *logrus.Logger) *postgresProductRepository {
	return &postgresProductRepository{
		db:  db,
		log: logger,
	}
}

var _ domain.ProductRepository = (*postgresProductRepository)(nil)
var _ domain.InventoryLedger = (*postgresProductRepository)(nil)

func (r *postgresProductRepository) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	query := `
        INSERT INTO products (name, slug, description, price, stock, is_available)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at`

	product.IsAvailable = product.Stock > 0
	err := r.db.QueryRowContext(ctx, query,
		product.Name,
		product.Slug,
		product.Description,
		product.Price,
		product.Stock,
		product.IsAvailable,
	).Scan(&product.ID, &product.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			r.log.Warnf("Attempted to create product with duplicate slug '%s'", product.Slug)
			return nil, fmt.Errorf("product with slug '%s' already exists", product.Slug)
		}
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23514" {
			r.log.Warnf("Check constraint violation for product '%s': %s", product.Name, pqErr.Message)
			return nil, fmt.Errorf("product data constraint violation: %s", pqErr.Message)
		}
		r.log.Errorf("Failed to create product '%s': %v", product.Name, err)
		return nil, fmt.Errorf("could not create product: %w", err)
	}
	r.log.Infof("Product created successfully with ID: %d, Name: %s", product.ID, product.Name)
	return product, nil
}

func (r *postgresProductRepository) GetProductByID(ctx context.Context, id int) (*domain.Product, error) {
	query := `
        SELECT id, name, slug, description, price, stock, is_available, created_at
        FROM products
        WHERE id = $1`
	return r.getProduct(ctx, query, id)
}

func (r *postgresProductRepository) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	query := `
        SELECT id, name, slug, description, price, stock, is_available, created_at
        FROM products
        WHERE slug = $1`
	return r.getProduct(ctx, query, slug)
}

func (r *postgresProductRepository) getProduct(ctx context.Context, query string, arg interface{}) (*domain.Product, error) {
	product := &domain.Product{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&product.ID,
		&product.Name,
		&product.Slug,
		&product.Description,
		&product.Price,
		&product.Stock,
		&product.IsAvailable,
		&product.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Product %v not found", arg)
			return nil, domain.ErrProductNotFound
		}
		r.log.Errorf("Failed to get product %v: %v", arg, err)
		return nil, fmt.Errorf("could not get product: %w", err)
	}
	return product, nil
}

func (r *postgresProductRepository) ListProducts(ctx context.Context, limit, offset int, availableOnly bool) ([]domain.Product, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	query := `
        SELECT id, name, slug, description, price, stock, is_available, created_at
        FROM products`
	if availableOnly {
		query += `
        WHERE is_available = TRUE`
	}
	query += `
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.log.Errorf("Failed to list products with limit %d, offset %d: %v", limit, offset, err)
		return nil, fmt.Errorf("could not list products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		var product domain.Product
		if err := rows.Scan(
			&product.ID,
			&product.Name,
			&product.Slug,
			&product.Description,
			&product.Price,
			&product.Stock,
			&product.IsAvailable,
			&product.CreatedAt,
		); err != nil {
			r.log.Errorf("Failed to scan product row: %v", err)
			return nil, fmt.Errorf("error scanning product data: %w", err)
		}
		products = append(products, product)
	}
	if err = rows.Err(); err != nil {
		r.log.Errorf("Error during products list iteration: %v", err)
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	r.log.Infof("Retrieved %d products (limit: %d, offset: %d)", len(products), limit, offset)
	return products, nil
}

// buildProductUpdate assembles the partial UPDATE statement. Clauses are keyed
// by column and each column is assigned exactly once: an explicit is_available
// in the updates wins over the value derived from stock. Keys are walked in
// sorted order so the statement is deterministic.
func buildProductUpdate(log *logrus.Logger, id int, updates map[string]interface{}) (string, []interface{}, error) {
	keys := make([]string, 0, len(updates))
	for key := range updates {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	_, availabilitySent := updates["is_available"]

	setClauses := []string{}
	args := []interface{}{}
	addClause := func(column string, value interface{}) {
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	for _, key := range keys {
		value := updates[key]
		switch key {
		case "name", "slug", "description", "price", "is_available":
			addClause(key, value)
		case "stock":
			stock, ok := value.(int)
			if !ok {
				log.Errorf("Repository: Invalid type received for stock for product ID %d: %T", id, value)
				return "", nil, fmt.Errorf("internal error: invalid type for stock in repository")
			}
			// Availability follows the counter unless the caller set it
			// explicitly in the same update.
			if !availabilitySent {
				addClause("is_available", stock > 0)
			}
			addClause(key, stock)
		default:
			log.Warnf("Repository: Skipping unknown field '%s' provided for product update ID %d", key, id)
		}
	}

	if len(setClauses) == 0 {
		return "", nil, nil
	}

	args = append(args, id)
	query := "UPDATE products SET " + strings.Join(setClauses, ", ") + fmt.Sprintf(" WHERE id = $%d", len(args))
	return query, args, nil
}

func (r *postgresProductRepository) UpdateProduct(ctx context.Context, id int, updates map[string]interface{}) (*domain.Product, error) {
	query, args, err := buildProductUpdate(r.log, id, updates)
	if err != nil {
		return nil, err
	}
	if query == "" {
		r.log.Warnf("Repository: No valid known fields provided for product update ID %d. Returning current product.", id)
		return r.GetProductByID(ctx, id)
	}

	r.log.Debugf("Repository: Executing partial update query for ID %d: %s", id, query)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23514" {
			r.log.Warnf("Repository: Check constraint violation for product update ID %d: %s", id, pqErr.Message)
			return nil, fmt.Errorf("product data constraint violation: %s", pqErr.Message)
		}
		r.log.Errorf("Repository: Failed to execute partial update for product ID %d: %v", id, err)
		return nil, fmt.Errorf("could not partially update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		r.log.Errorf("Repository: Failed to get rows affected after partial update for ID %d: %v", id, err)
	}
	if rowsAffected == 0 {
		r.log.Warnf("Repository: Product with ID %d not found for update (0 rows affected)", id)
		return nil, domain.ErrProductNotFound
	}

	r.log.Infof("Repository: Partial update successful for product ID %d. Fetching updated product.", id)
	return r.GetProductByID(ctx, id)
}

// Reserve decrements the stock counter as one conditional statement, so two
// concurrent reservations that together exceed available stock can never both
// succeed. Availability is cleared when the counter reaches zero.
func (r *postgresProductRepository) Reserve(ctx context.Context, productID, quantity int) error {
	return reserveStock(ctx, r.db, r.log, productID, quantity)
}

// Release increments the counter with no upper bound and restores
// availability. A compensating release is always trusted.
func (r *postgresProductRepository) Release(ctx context.Context, productID, quantity int) error {
	return releaseStock(ctx, r.db, r.log, productID, quantity)
}

func reserveStock(ctx context.Context, q execQuerier, log *logrus.Logger, productID, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("reserve quantity must be positive, got %d", quantity)
	}

	query := `
        UPDATE products
        SET stock = stock - $2,
            is_available = (stock - $2) > 0
        WHERE id = $1 AND stock >= $2`
	result, err := q.ExecContext(ctx, query, productID, quantity)
	if err != nil {
		log.Errorf("Failed to reserve %d units of product %d: %v", quantity, productID, err)
		return fmt.Errorf("could not reserve stock: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Errorf("Failed to get rows affected reserving product %d: %v", productID, err)
		return fmt.Errorf("could not confirm stock reservation: %w", err)
	}
	if rowsAffected > 0 {
		log.Infof("Reserved %d units of product %d", quantity, productID)
		return nil
	}

	// The guarded update matched nothing: either the product is gone or the
	// stock is short. Fetch the counter to say which.
	var name string
	var stock int
	err = q.QueryRowContext(ctx, `SELECT name, stock FROM products WHERE id = $1`, productID).Scan(&name, &stock)
	if errors.Is(err, sql.ErrNoRows) {
		log.Warnf("Reserve failed: product %d not found", productID)
		return domain.ErrProductNotFound
	}
	if err != nil {
		log.Errorf("Failed to read stock for product %d after failed reservation: %v", productID, err)
		return fmt.Errorf("could not read stock after failed reservation: %w", err)
	}
	log.Warnf("Insufficient stock for product %d '%s' (requested: %d, available: %d)", productID, name, quantity, stock)
	return &domain.InsufficientStockError{
		ProductID:   productID,
		ProductName: name,
		Requested:   quantity,
		Available:   stock,
	}
}

func releaseStock(ctx context.Context, q execQuerier, log *logrus.Logger, productID, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("release quantity must be positive, got %d", quantity)
	}

	query := `
        UPDATE products
        SET stock = stock + $2,
            is_available = TRUE
        WHERE id = $1`
	result, err := q.ExecContext(ctx, query, productID, quantity)
	if err != nil {
		log.Errorf("Failed to release %d units of product %d: %v", quantity, productID, err)
		return fmt.Errorf("could not release stock: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Errorf("Failed to get rows affected releasing product %d: %v", productID, err)
		return fmt.Errorf("could not confirm stock release: %w", err)
	}
	if rowsAffected == 0 {
		log.Warnf("Release failed: product %d not found", productID)
		return domain.ErrProductNotFound
	}
	log.Infof("Released %d units of product %d", quantity, productID)
	return nil
}
