package catalog

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-market/internal/auth"
	"campus-market/internal/listing"
)

var (
	demandColumns = []string{"id", "owner_id", "title", "description", "images",
		"product_category", "service_category", "created_at", "updated_at"}
	productColumns = []string{"id", "owner_id", "title", "description", "images",
		"category", "address_hall", "price", "original_price", "condition",
		"product_type", "seasonality", "status", "created_at", "updated_at"}
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func demandRows(ids ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows(demandColumns)
	for i, id := range ids {
		at := baseTime.Add(-time.Duration(i) * time.Hour)
		rows.AddRow(id, "owner-1", "Need "+id, "", "{}", "BOOKS", nil, at, at)
	}
	return rows
}

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2024, 5, 6, 7, 8, 9, 123456789, time.UTC)
	c := encodeCursor(at, "abc")

	gotAt, gotID, err := decodeCursor(c)
	require.NoError(t, err)
	assert.True(t, at.Equal(gotAt))
	assert.Equal(t, "abc", gotID)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	for _, c := range []string{"%%%", "bm9waXBl", encodeCursor(baseTime, "")} {
		_, _, err := decodeCursor(c)
		assert.ErrorIs(t, err, ErrBadCursor, c)
	}
}

func TestListFirstPageIssuesCursor(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"FROM market.demands t JOIN market.users u ON u.id = t.owner_id WHERE NOT u.blocked ORDER BY t.created_at DESC, t.id DESC LIMIT $1")).
		WithArgs(3).
		WillReturnRows(demandRows("d1", "d2", "d3"))

	page, err := store.List(context.Background(), listing.KindDemand, ListParams{Limit: 2})
	require.NoError(t, err)

	require.Len(t, page.Items, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, encodeCursor(baseTime.Add(-time.Hour), "d2"), page.NextCursor)
	assert.Equal(t, "BOOKS", page.Items[0].ProductCategory)
	assert.Empty(t, page.Items[0].ServiceCategory)
	assert.Equal(t, []string{}, page.Items[0].Images)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListContinuesFromCursor(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("AND (t.created_at, t.id) < ($1, $2) ORDER BY t.created_at DESC, t.id DESC LIMIT $3")).
		WithArgs(sqlmock.AnyArg(), "d2", 3).
		WillReturnRows(demandRows("d3"))

	page, err := store.List(context.Background(), listing.KindDemand, ListParams{
		Limit:  2,
		Cursor: encodeCursor(baseTime, "d2"),
	})
	require.NoError(t, err)

	assert.Len(t, page.Items, 1)
	assert.False(t, page.HasMore)
	assert.Empty(t, page.NextCursor)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListSortedPagesByOffset(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows(productColumns).
		AddRow("p1", "owner-1", "Lamp", "", "{a.jpg,b.jpg}", "FURNITURE", "H1", 100.0, nil, 4,
			"SELL", "ALL_SEASON", "LISTED", baseTime, baseTime)

	mock.ExpectQuery(regexp.QuoteMeta(
		"WHERE NOT u.blocked AND t.status = 'LISTED' ORDER BY COALESCE(t.price, 0) ASC, t.created_at DESC, t.id DESC LIMIT $1 OFFSET $2")).
		WithArgs(21, 20).
		WillReturnRows(rows)

	page, err := store.List(context.Background(), listing.KindProduct, ListParams{
		Limit:  20,
		Offset: 20,
		Sort:   "price-low",
	})
	require.NoError(t, err)

	require.Len(t, page.Items, 1)
	p := page.Items[0]
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, p.Images)
	require.NotNil(t, p.Price)
	assert.Equal(t, 100.0, *p.Price)
	assert.Nil(t, p.OriginalPrice)
	assert.Equal(t, 4, p.Condition)
	assert.Empty(t, page.NextCursor)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRejectsCursorForSortedPages(t *testing.T) {
	store, mock := newMockStore(t)

	_, err := store.List(context.Background(), listing.KindProduct, ListParams{
		Limit:  20,
		Cursor: encodeCursor(baseTime, "p1"),
		Sort:   "price-high",
	})
	assert.ErrorIs(t, err, ErrBadCursor)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderByFallsBackToNewest(t *testing.T) {
	clause, keyset := orderBy(listing.KindDemand, "price-low")
	assert.Equal(t, "t.created_at DESC, t.id DESC", clause)
	assert.True(t, keyset)

	clause, keyset = orderBy(listing.KindService, "price-high")
	assert.Equal(t, "COALESCE(t.min_price, t.max_price, 0) DESC, t.created_at DESC, t.id DESC", clause)
	assert.False(t, keyset)
}

func TestGetHiddenListingIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE t.id = $1 AND ((NOT u.blocked AND t.status = 'LISTED') OR t.owner_id = $2)")).
		WithArgs("p1", "viewer").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), listing.KindProduct, "p1", "viewer")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountVisible(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM market.services t JOIN market.users u ON u.id = t.owner_id WHERE NOT u.blocked")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := store.Count(context.Background(), listing.KindService)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestCreateForUnknownOwner(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO market.demands (id, owner_id, title, description, images, product_category, service_category)")).
		WillReturnError(&pgconn.PgError{Code: foreignKeyViolation})

	_, err := store.Create(context.Background(), listing.KindDemand, "ghost", CreateListingRequest{Title: "Calculator"})
	assert.ErrorIs(t, err, ErrUnknownOwner)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateByOtherUserIsForbidden(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT owner_id FROM market.products WHERE id = $1")).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow("owner-1"))

	title := "Mine now"
	_, err := store.Update(context.Background(), listing.KindProduct, "p1", "intruder", UpdateListingRequest{Title: &title})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateSetsOnlyPresentFields(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT owner_id FROM market.demands WHERE id = $1")).
		WithArgs("d1").
		WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow("owner-1"))
	mock.ExpectQuery(regexp.QuoteMeta(
		"UPDATE market.demands SET updated_at = now(), title = $1 WHERE id = $2 AND owner_id = $3 RETURNING")).
		WithArgs("Graph paper", "d1", "owner-1").
		WillReturnRows(demandRows("d1"))

	title := "  Graph paper "
	l, err := store.Update(context.Background(), listing.KindDemand, "d1", "owner-1", UpdateListingRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "d1", l.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMissingListing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT owner_id FROM market.services WHERE id = $1")).
		WithArgs("s9").
		WillReturnError(sql.ErrNoRows)

	err := store.Delete(context.Background(), listing.KindService, "s9", "owner-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteByOwner(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT owner_id FROM market.services WHERE id = $1")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow("owner-1"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM market.services WHERE id = $1 AND owner_id = $2")).
		WithArgs("s1", "owner-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Delete(context.Background(), listing.KindService, "s1", "owner-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertGoogleUserBlocked(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO market.users (id, email, name, picture)")).
		WithArgs(sqlmock.AnyArg(), "ana@campus.edu", "Ana", "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "picture", "blocked"}).
			AddRow("u1", "ana@campus.edu", "Ana", "", true))

	a, err := store.UpsertGoogleUser(context.Background(), auth.GoogleUser{Email: "Ana@Campus.edu", Name: "Ana"})
	assert.ErrorIs(t, err, auth.ErrBlocked)
	assert.Equal(t, "u1", a.ID)
}
