package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"campus-market/internal/auth"
	"campus-market/internal/filter"
	"campus-market/internal/listing"
	"campus-market/internal/pager"
)

// ErrUnknownOwner is returned when a listing is created for a user that does
// not exist.
var ErrUnknownOwner = errors.New("unknown owner")

// Postgres error codes
const (
	foreignKeyViolation = "23503"
)

type table struct {
	name string
	// columns specific to the kind, between the shared head and tail
	columns []string
}

var (
	headColumns = []string{"id", "owner_id", "title", "description", "images"}
	tailColumns = []string{"created_at", "updated_at"}

	tables = map[listing.Kind]table{
		listing.KindProduct: {
			name:    "market.products",
			columns: []string{"category", "address_hall", "price", "original_price", "condition", "product_type", "seasonality", "status"},
		},
		listing.KindService: {
			name:    "market.services",
			columns: []string{"category", "address_hall", "min_price", "max_price", "experience_years"},
		},
		listing.KindDemand: {
			name:    "market.demands",
			columns: []string{"product_category", "service_category"},
		},
	}
)

func tableFor(kind listing.Kind) table {
	t, ok := tables[kind]
	if !ok {
		panic(fmt.Sprintf("catalog: no table for kind %q", kind))
	}
	return t
}

// columnList renders the select list of kind, each column prefixed.
func columnList(kind listing.Kind, prefix string) string {
	var cols []string
	for _, group := range [][]string{headColumns, tableFor(kind).columns, tailColumns} {
		for _, c := range group {
			cols = append(cols, prefix+c)
		}
	}
	return strings.Join(cols, ", ")
}

// selectFrom is the SELECT of kind joined to its owner, aliased t and u.
func selectFrom(kind listing.Kind) string {
	return fmt.Sprintf("SELECT %s FROM %s t JOIN market.users u ON u.id = t.owner_id",
		columnList(kind, "t."), tableFor(kind).name)
}

// visibleTo is the predicate every public read applies: the owner is not
// blocked and, for products, the listing is LISTED.
func visibleTo(kind listing.Kind) string {
	if kind == listing.KindProduct {
		return "NOT u.blocked AND t.status = 'LISTED'"
	}
	return "NOT u.blocked"
}

// orderBy returns the ORDER BY clause for sort and whether it supports
// keyset cursors. Sorts that do not apply to kind fall back to newest.
func orderBy(kind listing.Kind, sort string) (string, bool) {
	const newest = "t.created_at DESC, t.id DESC"
	price := "COALESCE(t.price, 0)"
	if kind == listing.KindService {
		price = "COALESCE(t.min_price, t.max_price, 0)"
	}

	key := filter.SortKey(sort)
	supported := false
	for _, k := range filter.SortKeysFor(kind) {
		if k == key {
			supported = true
		}
	}
	if !supported {
		return newest, true
	}

	switch key {
	case filter.SortOldest:
		return "t.created_at ASC, t.id ASC", false
	case filter.SortPriceLow:
		return price + " ASC, " + newest, false
	case filter.SortPriceHigh:
		return price + " DESC, " + newest, false
	case filter.SortConditionHigh:
		return "t.condition DESC, " + newest, false
	case filter.SortConditionLow:
		return "t.condition ASC, " + newest, false
	case filter.SortExperienceHigh:
		return "COALESCE(t.experience_years, 0) DESC, " + newest, false
	case filter.SortExperienceLow:
		return "COALESCE(t.experience_years, 0) ASC, " + newest, false
	}
	return newest, true
}

// RowScanner is satisfied by *sql.Row and *sql.Rows.
type RowScanner interface {
	Scan(dest ...any) error
}

// ScanListing reads a row selected with Columns(kind, ...). Extra
// destinations receive any columns selected after the listing's own.
func ScanListing(kind listing.Kind, row RowScanner, extra ...any) (listing.Listing, error) {
	return scanListing(kind, row, extra...)
}

// Columns is the select list of kind with every column prefixed.
func Columns(kind listing.Kind, prefix string) string {
	return columnList(kind, prefix)
}

// Table is the qualified table name of kind.
func Table(kind listing.Kind) string {
	return tableFor(kind).name
}

// Visible is the public visibility predicate over aliases t (listing) and
// u (owner).
func Visible(kind listing.Kind) string {
	return visibleTo(kind)
}

func scanListing(kind listing.Kind, row RowScanner, extra ...any) (listing.Listing, error) {
	l := listing.Listing{Kind: kind}
	var images pq.StringArray
	var price, originalPrice, minPrice, maxPrice, experience sql.NullFloat64
	var productCategory, serviceCategory sql.NullString

	dest := []any{&l.ID, &l.OwnerID, &l.Title, &l.Description, &images}
	switch kind {
	case listing.KindProduct:
		dest = append(dest, &l.Category, &l.AddressHall, &price, &originalPrice,
			&l.Condition, &l.ProductType, &l.Seasonality, &l.Status)
	case listing.KindService:
		dest = append(dest, &l.Category, &l.AddressHall, &minPrice, &maxPrice, &experience)
	case listing.KindDemand:
		dest = append(dest, &productCategory, &serviceCategory)
	}
	dest = append(dest, &l.CreatedAt, &l.UpdatedAt)
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		return listing.Listing{}, err
	}

	l.Images = []string(images)
	if l.Images == nil {
		l.Images = []string{}
	}
	l.Price = nullFloat(price)
	l.OriginalPrice = nullFloat(originalPrice)
	l.MinPrice = nullFloat(minPrice)
	l.MaxPrice = nullFloat(maxPrice)
	l.ExperienceYears = nullFloat(experience)
	l.ProductCategory = productCategory.String
	l.ServiceCategory = serviceCategory.String
	return l, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Store handles database operations for listings
type Store struct {
	db *sql.DB
}

// NewStore creates a new listing store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// List returns one page of visible listings. Newest-first pages continue by
// cursor; every other order continues by offset.
func (s *Store) List(ctx context.Context, kind listing.Kind, p ListParams) (pager.Page, error) {
	query := selectFrom(kind) + " WHERE " + visibleTo(kind)
	args := []interface{}{}
	argCount := 0

	order, keyset := orderBy(kind, p.Sort)
	if p.Cursor != "" {
		if !keyset {
			return pager.Page{}, ErrBadCursor
		}
		createdAt, id, err := decodeCursor(p.Cursor)
		if err != nil {
			return pager.Page{}, err
		}
		argCount++
		query += fmt.Sprintf(" AND (t.created_at, t.id) < ($%d, $%d)", argCount, argCount+1)
		argCount++
		args = append(args, createdAt, id)
	}

	query += " ORDER BY " + order
	argCount++
	query += fmt.Sprintf(" LIMIT $%d", argCount)
	// one extra row tells whether another page exists
	args = append(args, p.Limit+1)
	if p.Cursor == "" && p.Offset > 0 {
		argCount++
		query += fmt.Sprintf(" OFFSET $%d", argCount)
		args = append(args, p.Offset)
	}

	items, err := s.query(ctx, kind, query, args...)
	if err != nil {
		return pager.Page{}, fmt.Errorf("List %s: %w", kind, err)
	}

	page := pager.Page{Items: items}
	if len(items) > p.Limit {
		page.Items = items[:p.Limit]
		page.HasMore = true
		if keyset {
			last := page.Items[len(page.Items)-1]
			page.NextCursor = encodeCursor(last.CreatedAt, last.ID)
		}
	}
	return page, nil
}

// Corpus returns every visible listing of kind, newest first.
func (s *Store) Corpus(ctx context.Context, kind listing.Kind) ([]listing.Listing, error) {
	query := selectFrom(kind) + " WHERE " + visibleTo(kind) + " ORDER BY t.created_at DESC, t.id DESC"
	items, err := s.query(ctx, kind, query)
	if err != nil {
		return nil, fmt.Errorf("Corpus %s: %w", kind, err)
	}
	return items, nil
}

// Count returns the number of visible listings of kind.
func (s *Store) Count(ctx context.Context, kind listing.Kind) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s t JOIN market.users u ON u.id = t.owner_id WHERE %s",
		tableFor(kind).name, visibleTo(kind))
	var count int
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("Count %s: %w", kind, err)
	}
	return count, nil
}

// Get returns one listing. Listings that are not publicly visible are only
// returned to their owner.
func (s *Store) Get(ctx context.Context, kind listing.Kind, id, viewerID string) (*listing.Listing, error) {
	query := selectFrom(kind) + " WHERE t.id = $1 AND ((" + visibleTo(kind) + ") OR t.owner_id = $2)"

	l, err := scanListing(kind, s.db.QueryRowContext(ctx, query, id, viewerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get %s: %w", kind, err)
	}
	return &l, nil
}

// ListByOwner returns all of an owner's listings, including unlisted ones.
func (s *Store) ListByOwner(ctx context.Context, kind listing.Kind, ownerID string) ([]listing.Listing, error) {
	query := selectFrom(kind) + " WHERE t.owner_id = $1 ORDER BY t.created_at DESC, t.id DESC"
	items, err := s.query(ctx, kind, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ListByOwner %s: %w", kind, err)
	}
	return items, nil
}

func (s *Store) query(ctx context.Context, kind listing.Kind, query string, args ...interface{}) ([]listing.Listing, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []listing.Listing{}
	for rows.Next() {
		l, err := scanListing(kind, rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		items = append(items, l)
	}
	return items, rows.Err()
}

// Create inserts a listing owned by ownerID. req must be normalized and
// validated for kind.
func (s *Store) Create(ctx context.Context, kind listing.Kind, ownerID string, req CreateListingRequest) (*listing.Listing, error) {
	id := uuid.New().String()
	images := req.Images
	if images == nil {
		images = []string{}
	}

	values := []interface{}{id, ownerID, req.Title, req.Description, pq.Array(images)}
	switch kind {
	case listing.KindProduct:
		values = append(values, req.Category, req.AddressHall, req.Price, req.OriginalPrice,
			req.Condition, req.ProductType, req.Seasonality, req.Status)
	case listing.KindService:
		values = append(values, req.Category, req.AddressHall, req.MinPrice, req.MaxPrice, req.ExperienceYears)
	case listing.KindDemand:
		values = append(values, nullString(req.ProductCategory), nullString(req.ServiceCategory))
	}

	t := tableFor(kind)
	cols := append(append([]string{}, headColumns...), t.columns...)
	placeholders := make([]string, len(cols))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		t.name, strings.Join(cols, ", "), strings.Join(placeholders, ", "), columnList(kind, ""))

	l, err := scanListing(kind, s.db.QueryRowContext(ctx, query, values...))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return nil, ErrUnknownOwner
		}
		return nil, fmt.Errorf("Create %s: %w", kind, err)
	}
	return &l, nil
}

// checkOwner reports ErrNotFound or ErrForbidden unless ownerID owns id.
func (s *Store) checkOwner(ctx context.Context, kind listing.Kind, id, ownerID string) error {
	var owner string
	query := fmt.Sprintf("SELECT owner_id FROM %s WHERE id = $1", tableFor(kind).name)
	err := s.db.QueryRowContext(ctx, query, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check owner: %w", err)
	}
	if owner != ownerID {
		return ErrForbidden
	}
	return nil
}

// Update changes the fields present in req. Only the owner may update.
func (s *Store) Update(ctx context.Context, kind listing.Kind, id, ownerID string, req UpdateListingRequest) (*listing.Listing, error) {
	if err := s.checkOwner(ctx, kind, id, ownerID); err != nil {
		return nil, err
	}

	// Build dynamic UPDATE query based on provided fields
	query := fmt.Sprintf("UPDATE %s SET updated_at = now()", tableFor(kind).name)
	args := []interface{}{}
	argCount := 0
	set := func(column string, value interface{}) {
		argCount++
		query += fmt.Sprintf(", %s = $%d", column, argCount)
		args = append(args, value)
	}

	if req.Title != nil {
		set("title", strings.TrimSpace(*req.Title))
	}
	if req.Description != nil {
		set("description", *req.Description)
	}
	if req.Images != nil {
		set("images", pq.Array(*req.Images))
	}
	switch kind {
	case listing.KindProduct:
		if req.Category != nil {
			set("category", *req.Category)
		}
		if req.AddressHall != nil {
			set("address_hall", *req.AddressHall)
		}
		if req.Price != nil {
			set("price", *req.Price)
		}
		if req.OriginalPrice != nil {
			set("original_price", *req.OriginalPrice)
		}
		if req.Condition != nil {
			set("condition", *req.Condition)
		}
		if req.ProductType != nil {
			set("product_type", *req.ProductType)
		}
		if req.Seasonality != nil {
			set("seasonality", *req.Seasonality)
		}
		if req.Status != nil {
			set("status", *req.Status)
		}
	case listing.KindService:
		if req.Category != nil {
			set("category", *req.Category)
		}
		if req.AddressHall != nil {
			set("address_hall", *req.AddressHall)
		}
		if req.MinPrice != nil {
			set("min_price", *req.MinPrice)
		}
		if req.MaxPrice != nil {
			set("max_price", *req.MaxPrice)
		}
		if req.ExperienceYears != nil {
			set("experience_years", *req.ExperienceYears)
		}
	case listing.KindDemand:
		if req.ProductCategory != nil {
			set("product_category", nullString(*req.ProductCategory))
		}
		if req.ServiceCategory != nil {
			set("service_category", nullString(*req.ServiceCategory))
		}
	}

	argCount++
	query += fmt.Sprintf(" WHERE id = $%d", argCount)
	args = append(args, id)
	argCount++
	query += fmt.Sprintf(" AND owner_id = $%d", argCount)
	args = append(args, ownerID)
	query += " RETURNING " + columnList(kind, "")

	l, err := scanListing(kind, s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Update %s: %w", kind, err)
	}
	return &l, nil
}

// Delete removes a listing. Only the owner may delete.
func (s *Store) Delete(ctx context.Context, kind listing.Kind, id, ownerID string) error {
	if err := s.checkOwner(ctx, kind, id, ownerID); err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1 AND owner_id = $2", tableFor(kind).name)
	result, err := s.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("Delete %s: %w", kind, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("Delete %s rows affected: %w", kind, err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertGoogleUser creates the account of a first-time Google sign-in or
// refreshes the profile of a returning one. The e-mail address is the key.
func (s *Store) UpsertGoogleUser(ctx context.Context, u auth.GoogleUser) (auth.Account, error) {
	query := `
		INSERT INTO market.users (id, email, name, picture)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE
		SET name = EXCLUDED.name, picture = EXCLUDED.picture, updated_at = now()
		RETURNING id, email, name, picture, blocked
	`

	var a auth.Account
	err := s.db.QueryRowContext(ctx, query, uuid.New().String(), strings.ToLower(u.Email), u.Name, u.Picture).
		Scan(&a.ID, &a.Email, &a.Name, &a.Picture, &a.Blocked)
	if err != nil {
		return auth.Account{}, fmt.Errorf("UpsertGoogleUser: %w", err)
	}
	if a.Blocked {
		return a, auth.ErrBlocked
	}
	return a, nil
}
