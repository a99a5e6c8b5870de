package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modellion/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrDuplicateURL    = errors.New("product with this url already exists")
)

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "ASC"
	SortOrderDesc SortOrder = "DESC"
)

// ProductFilter carries the filter, sort and pagination parameters of a
// catalog listing query. Nil pointer fields are not applied.
type ProductFilter struct {
	Name        string
	Tag         string
	Series      string
	PriceMin    *int64
	PriceMax    *int64
	ReleaseFrom *time.Time
	ReleaseTo   *time.Time
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	HasImages   *bool
	SortBy      string
	SortOrder   SortOrder
	Page        int
	PageSize    int
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	FindByURL(ctx context.Context, url string) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]*domain.Product, int, error)
	CountByColumn(ctx context.Context, column string) (map[string]int, error)
	Recent(ctx context.Context, limit int) ([]*domain.Product, error)
	Count(ctx context.Context) (int, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, product_name, product_name_cn, price, release_date,
	article_content, url, product_tag, series, price_value, release_date_value, created_at`

func scanProduct(row interface{ Scan(...any) error }) (*domain.Product, error) {
	p := &domain.Product{}
	err := row.Scan(
		&p.ID,
		&p.ProductName,
		&p.ProductNameCN,
		&p.Price,
		&p.ReleaseDate,
		&p.ArticleContent,
		&p.URL,
		&p.ProductTag,
		&p.Series,
		&p.PriceValue,
		&p.ReleaseDateValue,
		&p.CreatedAt,
	)
	return p, err
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && (constraint == "" || pgErr.ConstraintName == constraint)
	}
	return false
}

// Create inserts a new product and fills in its generated id
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (product_name, product_name_cn, price, release_date,
			article_content, url, product_tag, series, price_value, release_date_value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		product.ProductName,
		product.ProductNameCN,
		product.Price,
		product.ReleaseDate,
		product.ArticleContent,
		product.URL,
		product.ProductTag,
		product.Series,
		product.PriceValue,
		product.ReleaseDateValue,
		product.CreatedAt,
	).Scan(&product.ID)

	if err != nil {
		if isUniqueViolation(err, "products_url_key") {
			return ErrDuplicateURL
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update rewrites all mutable columns of an existing product
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET product_name = $2, product_name_cn = $3, price = $4, release_date = $5,
		    article_content = $6, url = $7, product_tag = $8, series = $9,
		    price_value = $10, release_date_value = $11
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.ProductName,
		product.ProductNameCN,
		product.Price,
		product.ReleaseDate,
		product.ArticleContent,
		product.URL,
		product.ProductTag,
		product.Series,
		product.PriceValue,
		product.ReleaseDateValue,
	)

	if err != nil {
		if isUniqueViolation(err, "products_url_key") {
			return ErrDuplicateURL
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// Delete removes a product; owned images go with it via the FK cascade
func (r *productRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product by ID
func (r *productRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// FindByURL retrieves a product by its unique url, the import join key
func (r *productRepository) FindByURL(ctx context.Context, url string) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE url = $1`, productColumns)

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, url))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by url: %w", err)
	}

	return product, nil
}

// List retrieves products applying the filter, sorting and pagination
func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]*domain.Product, int, error) {
	// Validate sort field to prevent SQL injection
	validSortFields := map[string]string{
		"created_at":   "created_at",
		"price":        "price_value",
		"release_date": "release_date_value",
		"product_name": "product_name",
	}

	sortBy, ok := validSortFields[filter.SortBy]
	if !ok {
		sortBy = "created_at"
	}

	sortOrder := filter.SortOrder
	if sortOrder != SortOrderAsc && sortOrder != SortOrderDesc {
		sortOrder = SortOrderDesc
	}

	whereClause, args := buildProductWhere(filter)

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM products %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		%s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, productColumns, whereClause, sortBy, sortOrder, len(args)+1, len(args)+2)

	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating products: %w", err)
	}

	return products, total, nil
}

func buildProductWhere(filter ProductFilter) (string, []any) {
	conditions := []string{}
	args := []any{}

	add := func(cond string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.Name != "" {
		add("product_name ILIKE $%d", "%"+filter.Name+"%")
	}
	if filter.Tag != "" {
		add("product_tag = $%d", filter.Tag)
	}
	if filter.Series != "" {
		add("series = $%d", filter.Series)
	}
	if filter.PriceMin != nil {
		add("price_value >= $%d", *filter.PriceMin)
	}
	if filter.PriceMax != nil {
		add("price_value <= $%d", *filter.PriceMax)
	}
	if filter.ReleaseFrom != nil {
		add("release_date_value >= $%d", *filter.ReleaseFrom)
	}
	if filter.ReleaseTo != nil {
		add("release_date_value <= $%d", *filter.ReleaseTo)
	}
	if filter.CreatedFrom != nil {
		add("created_at >= $%d", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		add("created_at <= $%d", *filter.CreatedTo)
	}
	if filter.HasImages != nil {
		if *filter.HasImages {
			conditions = append(conditions, "id IN (SELECT product_id FROM images)")
		} else {
			conditions = append(conditions, "id NOT IN (SELECT product_id FROM images)")
		}
	}

	if len(conditions) == 0 {
		return "", args
	}

	where := "WHERE " + conditions[0]
	for _, c := range conditions[1:] {
		where += " AND " + c
	}
	return where, args
}

// CountByColumn groups products over product_tag or series for the stats
// overview; NULL groups are reported under the empty string
func (r *productRepository) CountByColumn(ctx context.Context, column string) (map[string]int, error) {
	if column != "product_tag" && column != "series" {
		return nil, fmt.Errorf("unsupported group column: %s", column)
	}

	query := fmt.Sprintf(`SELECT COALESCE(%s, ''), COUNT(*) FROM products GROUP BY 1`, column)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to group products by %s: %w", column, err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, fmt.Errorf("failed to scan group row: %w", err)
		}
		counts[key] = n
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating group rows: %w", err)
	}

	return counts, nil
}

// Recent returns the newest products by creation time
func (r *productRepository) Recent(ctx context.Context, limit int) ([]*domain.Product, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM products ORDER BY created_at DESC LIMIT $1
	`, productColumns)

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recent products: %w", err)
	}

	return products, nil
}

// Count returns the total number of products
func (r *productRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return total, nil
}
