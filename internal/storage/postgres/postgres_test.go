package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jonesrussell/north-cloud/reader/internal/domain"
	"github.com/jonesrussell/north-cloud/reader/internal/storage"
	"github.com/jonesrussell/north-cloud/reader/internal/storage/postgres"
)

var sourceColumns = []string{
	"id", "title", "feed_url", "site_url", "category", "active", "last_updated", "etag", "last_modified",
}

var articleColumns = []string{
	"id", "source_id", "title", "link", "summary", "content", "author", "image_url", "published_at",
	"is_read", "is_favorite", "reading_progress", "keywords", "created_at",
}

func newStore(t *testing.T) (*postgres.Store, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })

	return postgres.New(sqlx.NewDb(mockDB, "postgres")), mock
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}

func TestMigrate(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS sources").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	expectationsMet(t, mock)
}

func TestGetSource(t *testing.T) {
	store, mock := newStore(t)
	id := uuid.New()
	updated := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery("SELECT .+ FROM sources WHERE id").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(sourceColumns).AddRow(
			id.String(), "Blog", "https://example.com/feed", "https://example.com", "tech", true,
			updated, `"etag"`, "",
		))

	src, err := store.GetSource(context.Background(), id)
	if err != nil {
		t.Fatalf("GetSource() error = %v", err)
	}
	if src.ID != id || src.FeedURL != "https://example.com/feed" || !src.Active {
		t.Errorf("unexpected source: %+v", src)
	}
	if src.LastUpdated == nil || !src.LastUpdated.Equal(updated) {
		t.Errorf("expected LastUpdated=%v, got %v", updated, src.LastUpdated)
	}
	expectationsMet(t, mock)
}

func TestGetSource_NotFound(t *testing.T) {
	store, mock := newStore(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM sources WHERE id").WithArgs(id).WillReturnError(sql.ErrNoRows)

	_, err := store.GetSource(context.Background(), id)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestCreateSource_Conflict(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectExec("INSERT INTO sources").WillReturnError(&pq.Error{Code: "23505"})

	err := store.CreateSource(context.Background(), &domain.Source{FeedURL: "https://example.com/feed"})
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestListSources_ActiveOnly(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectQuery(`SELECT .+ FROM sources WHERE active = \$1 ORDER BY title, id`).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows(sourceColumns).AddRow(
			uuid.NewString(), "A", "https://a.example/feed", "", "", true, nil, "", "",
		))

	sources, err := store.ListSources(context.Background(), true)
	if err != nil {
		t.Fatalf("ListSources() error = %v", err)
	}
	if len(sources) != 1 || sources[0].LastUpdated != nil {
		t.Errorf("unexpected sources: %+v", sources)
	}
	expectationsMet(t, mock)
}

func TestSaveSource_NotFound(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectExec("UPDATE sources SET").WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.SaveSource(context.Background(), &domain.Source{ID: uuid.New()})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestExistingLinksForSource(t *testing.T) {
	store, mock := newStore(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT link FROM articles WHERE source_id").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"link"}).AddRow("https://a/1").AddRow("https://a/2"))

	links, err := store.ExistingLinksForSource(context.Background(), id)
	if err != nil {
		t.Fatalf("ExistingLinksForSource() error = %v", err)
	}
	if _, ok := links["https://a/2"]; !ok || len(links) != 2 {
		t.Errorf("unexpected links: %v", links)
	}
	expectationsMet(t, mock)
}

func TestInsertArticles_SingleTransaction(t *testing.T) {
	store, mock := newStore(t)
	sourceID := uuid.New()

	articles := []*domain.Article{
		{SourceID: sourceID, Title: "a", Link: "https://a/1", PublishedAt: time.Now()},
		{SourceID: sourceID, Title: "b", Link: "https://a/2", PublishedAt: time.Now(), Keywords: domain.KeywordWeights{"go": 1}},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO articles .+ VALUES \(.+\),\(.+\) ON CONFLICT \(source_id, link\) DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := store.InsertArticles(context.Background(), articles)
	if err != nil {
		t.Fatalf("InsertArticles() error = %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 inserted row, got %d", n)
	}
	for _, a := range articles {
		if a.ID == uuid.Nil || a.CreatedAt.IsZero() {
			t.Errorf("expected ID and CreatedAt assigned, got %+v", a)
		}
	}
	expectationsMet(t, mock)
}

func TestInsertArticles_RollsBackOnFailure(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO articles").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := store.InsertArticles(context.Background(), []*domain.Article{
		{SourceID: uuid.New(), Title: "a", Link: "https://a/1", PublishedAt: time.Now()},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	expectationsMet(t, mock)
}

func TestInsertArticles_Empty(t *testing.T) {
	store, mock := newStore(t)

	n, err := store.InsertArticles(context.Background(), nil)
	if err != nil || n != 0 {
		t.Fatalf("expected (0, nil), got (%d, %v)", n, err)
	}
	expectationsMet(t, mock)
}

func TestListArticles_Filters(t *testing.T) {
	store, mock := newStore(t)
	sourceID := uuid.New()
	published := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .+ FROM articles WHERE source_id = \$1 AND is_read = \$2 ORDER BY published_at DESC, link, id LIMIT 5 OFFSET 10`).
		WithArgs(sourceID, false).
		WillReturnRows(sqlmock.NewRows(articleColumns).AddRow(
			uuid.NewString(), sourceID.String(), "t", "https://a/1", "", "", "", "", published,
			false, false, 0.0, []byte(`{"go":0.5}`), published,
		))

	articles, err := store.ListArticles(context.Background(), storage.ArticleFilter{
		SourceID: &sourceID, UnreadOnly: true, Limit: 5, Offset: 10,
	})
	if err != nil {
		t.Fatalf("ListArticles() error = %v", err)
	}
	if len(articles) != 1 || articles[0].Keywords["go"] != 0.5 {
		t.Errorf("unexpected articles: %+v", articles)
	}
	expectationsMet(t, mock)
}

func TestUpdateArticleState_ClampsProgress(t *testing.T) {
	store, mock := newStore(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE articles SET is_read").
		WithArgs(true, false, 1.0, id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.UpdateArticleState(context.Background(), id, domain.ArticleState{IsRead: true, ReadingProgress: 3})
	if err != nil {
		t.Fatalf("UpdateArticleState() error = %v", err)
	}
	expectationsMet(t, mock)
}

func TestDeleteGroup_NotFound(t *testing.T) {
	store, mock := newStore(t)
	id := uuid.New()

	mock.ExpectExec("DELETE FROM keyword_groups").WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.DeleteGroup(context.Background(), id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestListGroups(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectQuery("SELECT .+ FROM keyword_groups ORDER BY name, id").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "keywords", "active"}).
			AddRow(uuid.NewString(), "Architecture", `["architecture","design patterns"]`, true))

	groups, err := store.ListGroups(context.Background(), false)
	if err != nil {
		t.Fatalf("ListGroups() error = %v", err)
	}
	if len(groups) != 1 || len(groups[0].Keywords) != 2 {
		t.Errorf("unexpected groups: %+v", groups)
	}
	expectationsMet(t, mock)
}

func TestMarkSourceFetched_OnlyFetchColumns(t *testing.T) {
	store, mock := newStore(t)
	id := uuid.New()
	fetched := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE sources SET last_updated = \$1, etag = \$2 WHERE id = \$3`).
		WithArgs(fetched, `"v2"`, id.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.MarkSourceFetched(context.Background(), id, domain.FetchState{LastUpdated: fetched, ETag: `"v2"`})
	if err != nil {
		t.Fatalf("MarkSourceFetched() error = %v", err)
	}
	expectationsMet(t, mock)
}

func TestMarkSourceFetched_NotFound(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectExec("UPDATE sources SET last_updated").WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.MarkSourceFetched(context.Background(), uuid.New(), domain.FetchState{LastUpdated: time.Now()})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}
