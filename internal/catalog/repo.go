package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"bookarr/pkg/models"
)

// Repo owns the books/authors/genres/series/book_files tables. All writes
// are keyed upserts: a book's external id and a file's canonical path are
// the de-duplication keys, author/genre/series dedupe on exact name. Running
// the same import twice converges instead of duplicating.
type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// BookMeta is the metadata written during an import pass.
type BookMeta struct {
	ExternalID  string
	Title       string
	AuthorID    int64
	Description string
	CoverURL    string
	ReleaseDate string
	Publisher   string
	ISBN        string
	PageCount   int
	Rating      float64
}

// UpsertAuthor inserts the author if absent (exact name match) and returns
// its id.
func (r *Repo) UpsertAuthor(ctx context.Context, name, externalID, bio, imageURL string) (int64, error) {
	if name == "" {
		name = "Unknown"
	}

	if _, err := r.DB.ExecContext(ctx, `
		INSERT OR IGNORE INTO authors (name, external_id, bio, image_url)
		VALUES (?, ?, ?, ?)
	`, name, externalID, bio, imageURL); err != nil {
		return 0, fmt.Errorf("insert author: %w", err)
	}

	var id int64
	if err := r.DB.QueryRowContext(ctx,
		`SELECT id FROM authors WHERE name = ?`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("select author: %w", err)
	}
	return id, nil
}

// UpsertBook inserts or updates a book keyed on its external id and returns
// the local id. Updates replace metadata fields in place so repeated passes
// never duplicate rows or break references from requests and shelves.
func (r *Repo) UpsertBook(ctx context.Context, b BookMeta) (int64, error) {
	if _, err := r.DB.ExecContext(ctx, `
		INSERT INTO books (external_id, title, author_id, description, cover_url,
		                   release_date, publisher, isbn, page_count, rating)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_id) DO UPDATE SET
		  title = excluded.title,
		  author_id = excluded.author_id,
		  description = excluded.description,
		  cover_url = excluded.cover_url,
		  release_date = excluded.release_date,
		  publisher = excluded.publisher,
		  isbn = excluded.isbn,
		  page_count = excluded.page_count,
		  rating = excluded.rating
	`, b.ExternalID, b.Title, b.AuthorID, b.Description, b.CoverURL,
		b.ReleaseDate, b.Publisher, b.ISBN, b.PageCount, b.Rating); err != nil {
		return 0, fmt.Errorf("upsert book: %w", err)
	}

	var id int64
	if err := r.DB.QueryRowContext(ctx,
		`SELECT id FROM books WHERE external_id = ?`, b.ExternalID).Scan(&id); err != nil {
		return 0, fmt.Errorf("select book: %w", err)
	}
	return id, nil
}

func (r *Repo) UpsertGenre(ctx context.Context, name string) (int64, error) {
	if _, err := r.DB.ExecContext(ctx,
		`INSERT OR IGNORE INTO genres (name) VALUES (?)`, name); err != nil {
		return 0, fmt.Errorf("insert genre: %w", err)
	}
	var id int64
	if err := r.DB.QueryRowContext(ctx,
		`SELECT id FROM genres WHERE name = ?`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("select genre: %w", err)
	}
	return id, nil
}

func (r *Repo) LinkGenre(ctx context.Context, bookID, genreID int64) error {
	if _, err := r.DB.ExecContext(ctx,
		`INSERT OR IGNORE INTO book_genres (book_id, genre_id) VALUES (?, ?)`,
		bookID, genreID); err != nil {
		return fmt.Errorf("link genre: %w", err)
	}
	return nil
}

func (r *Repo) UpsertSeries(ctx context.Context, name, externalID string) (int64, error) {
	if _, err := r.DB.ExecContext(ctx,
		`INSERT OR IGNORE INTO series (name, external_id) VALUES (?, ?)`,
		name, externalID); err != nil {
		return 0, fmt.Errorf("insert series: %w", err)
	}
	var id int64
	if err := r.DB.QueryRowContext(ctx,
		`SELECT id FROM series WHERE name = ?`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("select series: %w", err)
	}
	return id, nil
}

func (r *Repo) LinkSeries(ctx context.Context, bookID, seriesID int64, position float64) error {
	if _, err := r.DB.ExecContext(ctx,
		`INSERT OR IGNORE INTO book_series (book_id, series_id, position) VALUES (?, ?, ?)`,
		bookID, seriesID, position); err != nil {
		return fmt.Errorf("link series: %w", err)
	}
	return nil
}

// BookIDByExternalID returns the local id for an external id, 0 when absent.
func (r *Repo) BookIDByExternalID(ctx context.Context, externalID string) (int64, error) {
	var id int64
	err := r.DB.QueryRowContext(ctx,
		`SELECT id FROM books WHERE external_id = ?`, externalID).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("book by external id: %w", err)
	}
	return id, nil
}

// FileExists reports whether a file at the canonical path is already
// recorded: the unit of import idempotence.
func (r *Repo) FileExists(ctx context.Context, path string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		`SELECT 1 FROM book_files WHERE file_path = ?`, path).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("file exists: %w", err)
	}
	return true, nil
}

func (r *Repo) InsertFile(ctx context.Context, f models.BookFile) error {
	if _, err := r.DB.ExecContext(ctx, `
		INSERT INTO book_files (book_id, file_path, file_name, file_size, file_format, file_hash, quality)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, f.BookID, f.Path, f.Name, f.Size, f.Format, f.Hash, f.Quality); err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

// FileCountByExternalID counts imported files owned by the book with the
// given external id. The request updater uses this to decide completion.
func (r *Repo) FileCountByExternalID(ctx context.Context, externalID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM book_files
		WHERE book_id IN (SELECT id FROM books WHERE external_id = ?)
	`, externalID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count files: %w", err)
	}
	return n, nil
}

type ListQuery struct {
	Q      string // keyword search in title/author
	Genre  string
	Limit  int
	Offset int
}

func (r *Repo) Count(ctx context.Context, q ListQuery) (int, error) {
	sqlStr, args := buildListSQL(q, true)
	var total int
	if err := r.DB.QueryRowContext(ctx, sqlStr, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return total, nil
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.Book, error) {
	sqlStr, args := buildListSQL(q, false)

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	out := make([]models.Book, 0, q.Limit)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// GetByID returns one book with its genres and files, nil when absent.
func (r *Repo) GetByID(ctx context.Context, id int64) (*models.Book, error) {
	row := r.DB.QueryRowContext(ctx, bookSelect+` WHERE b.id = ?`, id)
	b, err := scanBook(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	genres, err := r.DB.QueryContext(ctx, `
		SELECT g.name FROM genres g
		JOIN book_genres bg ON bg.genre_id = g.id
		WHERE bg.book_id = ?
		ORDER BY g.name
	`, id)
	if err != nil {
		return nil, fmt.Errorf("book genres: %w", err)
	}
	defer genres.Close()
	for genres.Next() {
		var name string
		if err := genres.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan genre: %w", err)
		}
		b.Genres = append(b.Genres, name)
	}
	if err := genres.Err(); err != nil {
		return nil, fmt.Errorf("genre rows: %w", err)
	}

	files, err := r.FilesByBook(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Files = files
	return &b, nil
}

func (r *Repo) FilesByBook(ctx context.Context, bookID int64) ([]models.BookFile, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, book_id, file_path, file_name, file_size, file_format, file_hash, quality, imported_at
		FROM book_files
		WHERE book_id = ?
		ORDER BY file_name
	`, bookID)
	if err != nil {
		return nil, fmt.Errorf("book files: %w", err)
	}
	defer rows.Close()

	var out []models.BookFile
	for rows.Next() {
		var f models.BookFile
		var format, hash, quality sql.NullString
		if err := rows.Scan(&f.ID, &f.BookID, &f.Path, &f.Name, &f.Size,
			&format, &hash, &quality, &f.ImportedAt); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		f.Format = format.String
		f.Hash = hash.String
		f.Quality = quality.String
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("file rows: %w", err)
	}
	return out, nil
}

const bookSelect = `
	SELECT b.id, b.external_id, b.title, COALESCE(a.name, ''), b.description,
	       b.cover_url, b.release_date, b.publisher, b.isbn, b.page_count, b.rating
	FROM books b
	LEFT JOIN authors a ON a.id = b.author_id
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (models.Book, error) {
	var (
		b           models.Book
		description sql.NullString
		coverURL    sql.NullString
		releaseDate sql.NullString
		publisher   sql.NullString
		isbn        sql.NullString
	)
	if err := row.Scan(&b.ID, &b.ExternalID, &b.Title, &b.Author, &description,
		&coverURL, &releaseDate, &publisher, &isbn, &b.PageCount, &b.Rating); err != nil {
		if err == sql.ErrNoRows {
			return b, err
		}
		return b, fmt.Errorf("scan book: %w", err)
	}
	b.Description = description.String
	b.CoverURL = coverURL.String
	b.ReleaseDate = releaseDate.String
	b.Publisher = publisher.String
	b.ISBN = isbn.String
	return b, nil
}

// buildListSQL builds either COUNT(*) or the SELECT list for browsing.
func buildListSQL(q ListQuery, countOnly bool) (string, []any) {
	base := bookSelect
	if countOnly {
		base = `SELECT COUNT(*) FROM books b LEFT JOIN authors a ON a.id = b.author_id`
	}

	var where []string
	var args []any

	if kw := strings.TrimSpace(q.Q); kw != "" {
		where = append(where, "(LOWER(b.title) LIKE ? OR LOWER(a.name) LIKE ?)")
		pat := "%" + strings.ToLower(kw) + "%"
		args = append(args, pat, pat)
	}

	if g := strings.TrimSpace(q.Genre); g != "" {
		where = append(where, `b.id IN (
			SELECT bg.book_id FROM book_genres bg
			JOIN genres gn ON gn.id = bg.genre_id
			WHERE LOWER(gn.name) = ?
		)`)
		args = append(args, strings.ToLower(g))
	}

	sqlStr := base
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}

	if !countOnly {
		sqlStr += " ORDER BY b.title ASC LIMIT ? OFFSET ?"
		limit := q.Limit
		if limit <= 0 || limit > 100 {
			limit = 20
		}
		offset := q.Offset
		if offset < 0 {
			offset = 0
		}
		args = append(args, limit, offset)
	}

	return sqlStr, args
}
