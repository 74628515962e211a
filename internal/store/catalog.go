// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/olegiv/biblio-go/internal/model"
)

// Authors

// CreateAuthorParams holds parameters for CreateAuthor.
type CreateAuthorParams struct {
	FirstName string
	LastName  string
}

// CreateAuthor inserts a new author.
func (q *Queries) CreateAuthor(ctx context.Context, arg CreateAuthorParams) (model.Author, error) {
	var a model.Author
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO authors (first_name, last_name) VALUES (?, ?)
		RETURNING id, first_name, last_name`,
		arg.FirstName, arg.LastName).Scan(&a.ID, &a.FirstName, &a.LastName)
	return a, err
}

// GetAuthorByID fetches an author by primary key.
func (q *Queries) GetAuthorByID(ctx context.Context, id int64) (model.Author, error) {
	var a model.Author
	err := q.db.QueryRowContext(ctx,
		`SELECT id, first_name, last_name FROM authors WHERE id = ?`, id).
		Scan(&a.ID, &a.FirstName, &a.LastName)
	return a, err
}

// UpdateAuthorParams holds parameters for UpdateAuthor.
type UpdateAuthorParams struct {
	FirstName string
	LastName  string
	ID        int64
}

// UpdateAuthor updates an author's name.
func (q *Queries) UpdateAuthor(ctx context.Context, arg UpdateAuthorParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE authors SET first_name = ?, last_name = ? WHERE id = ?`,
		arg.FirstName, arg.LastName, arg.ID)
	return err
}

// DeleteAuthor removes an author. Books referencing the author are deleted
// by the ON DELETE CASCADE constraint.
func (q *Queries) DeleteAuthor(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM authors WHERE id = ?`, id)
	return err
}

// ListAuthors returns authors ordered by first name, optionally filtered by
// a name search term.
func (q *Queries) ListAuthors(ctx context.Context, search string) ([]model.Author, error) {
	query := `SELECT id, first_name, last_name FROM authors`
	var args []any
	if search != "" {
		query += ` WHERE first_name LIKE ? OR last_name LIKE ?`
		like := "%" + search + "%"
		args = append(args, like, like)
	}
	query += ` ORDER BY first_name, last_name`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var authors []model.Author
	for rows.Next() {
		var a model.Author
		if err := rows.Scan(&a.ID, &a.FirstName, &a.LastName); err != nil {
			return nil, err
		}
		authors = append(authors, a)
	}
	return authors, rows.Err()
}

// Categories

// CreateCategory inserts a new category.
func (q *Queries) CreateCategory(ctx context.Context, name string) (model.Category, error) {
	var c model.Category
	err := q.db.QueryRowContext(ctx,
		`INSERT INTO categories (name) VALUES (?) RETURNING id, name`, name).
		Scan(&c.ID, &c.Name)
	return c, err
}

// GetCategoryByID fetches a category by primary key.
func (q *Queries) GetCategoryByID(ctx context.Context, id int64) (model.Category, error) {
	var c model.Category
	err := q.db.QueryRowContext(ctx,
		`SELECT id, name FROM categories WHERE id = ?`, id).Scan(&c.ID, &c.Name)
	return c, err
}

// UpdateCategory renames a category.
func (q *Queries) UpdateCategory(ctx context.Context, name string, id int64) error {
	_, err := q.db.ExecContext(ctx, `UPDATE categories SET name = ? WHERE id = ?`, name, id)
	return err
}

// DeleteCategory removes a category. Books referencing it get a NULL
// category via ON DELETE SET NULL.
func (q *Queries) DeleteCategory(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	return err
}

// ListCategories returns categories ordered by name, optionally filtered by
// a name search term.
func (q *Queries) ListCategories(ctx context.Context, search string) ([]model.Category, error) {
	query := `SELECT id, name FROM categories`
	var args []any
	if search != "" {
		query += ` WHERE name LIKE ?`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY name`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// Books

const bookColumns = `id, title, author_id, category_id, isbn, summary, cover_path, cover_url, state, created_at, updated_at`

func scanBook(row interface{ Scan(...any) error }) (model.Book, error) {
	var b model.Book
	err := row.Scan(&b.ID, &b.Title, &b.AuthorID, &b.CategoryID, &b.ISBN, &b.Summary,
		&b.CoverPath, &b.CoverURL, &b.State, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// CreateBookParams holds parameters for CreateBook.
type CreateBookParams struct {
	Title      string
	AuthorID   int64
	CategoryID sql.NullInt64
	ISBN       string
	Summary    sql.NullString
	CoverPath  sql.NullString
	CoverURL   sql.NullString
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CreateBook inserts a new book in the available state.
func (q *Queries) CreateBook(ctx context.Context, arg CreateBookParams) (model.Book, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO books (title, author_id, category_id, isbn, summary, cover_path, cover_url, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 'available', ?, ?)
		RETURNING `+bookColumns,
		arg.Title, arg.AuthorID, arg.CategoryID, arg.ISBN, arg.Summary,
		arg.CoverPath, arg.CoverURL, arg.CreatedAt, arg.UpdatedAt)
	return scanBook(row)
}

// GetBookByID fetches a book by primary key.
func (q *Queries) GetBookByID(ctx context.Context, id int64) (model.Book, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	return scanBook(row)
}

// GetBookByISBN fetches a book by its unique ISBN.
func (q *Queries) GetBookByISBN(ctx context.Context, isbn string) (model.Book, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE isbn = ?`, isbn)
	return scanBook(row)
}

// UpdateBookParams holds parameters for UpdateBook.
type UpdateBookParams struct {
	Title      string
	AuthorID   int64
	CategoryID sql.NullInt64
	ISBN       string
	Summary    sql.NullString
	CoverURL   sql.NullString
	UpdatedAt  time.Time
	ID         int64
}

// UpdateBook updates a book's catalog fields. State and cover path are
// managed separately.
func (q *Queries) UpdateBook(ctx context.Context, arg UpdateBookParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE books SET title = ?, author_id = ?, category_id = ?, isbn = ?,
			summary = ?, cover_url = ?, updated_at = ?
		WHERE id = ?`,
		arg.Title, arg.AuthorID, arg.CategoryID, arg.ISBN, arg.Summary,
		arg.CoverURL, arg.UpdatedAt, arg.ID)
	return err
}

// UpdateBookCover sets the stored cover file path.
func (q *Queries) UpdateBookCover(ctx context.Context, coverPath string, updatedAt time.Time, id int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE books SET cover_path = ?, updated_at = ? WHERE id = ?`,
		sql.NullString{String: coverPath, Valid: true}, updatedAt, id)
	return err
}

// SetBookStateIfCurrent transitions a book's state only when it currently
// holds the expected value. Returns true when the transition happened.
// This is the compare-and-swap guard against concurrent lifecycle operations.
func (q *Queries) SetBookStateIfCurrent(ctx context.Context, id int64, from, to string, updatedAt time.Time) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE books SET state = ?, updated_at = ? WHERE id = ? AND state = ?`,
		to, updatedAt, id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SetBookState transitions a book's state unconditionally.
func (q *Queries) SetBookState(ctx context.Context, id int64, state string, updatedAt time.Time) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE books SET state = ?, updated_at = ? WHERE id = ?`, state, updatedAt, id)
	return err
}

// DeleteBook removes a book. Loans and reservations cascade.
func (q *Queries) DeleteBook(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	return err
}

// CountBooks returns the total number of books.
func (q *Queries) CountBooks(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&n)
	return n, err
}

// BookDetail is a book joined with its author and category names for display.
type BookDetail struct {
	model.Book
	AuthorName   string
	CategoryName sql.NullString
}

const bookDetailQuery = `
	SELECT b.id, b.title, b.author_id, b.category_id, b.isbn, b.summary,
		b.cover_path, b.cover_url, b.state, b.created_at, b.updated_at,
		a.first_name || CASE WHEN a.last_name = '' THEN '' ELSE ' ' || a.last_name END,
		c.name
	FROM books b
	JOIN authors a ON a.id = b.author_id
	LEFT JOIN categories c ON c.id = b.category_id`

func scanBookDetail(row interface{ Scan(...any) error }) (BookDetail, error) {
	var d BookDetail
	err := row.Scan(&d.ID, &d.Title, &d.AuthorID, &d.CategoryID, &d.ISBN, &d.Summary,
		&d.CoverPath, &d.CoverURL, &d.State, &d.CreatedAt, &d.UpdatedAt,
		&d.AuthorName, &d.CategoryName)
	return d, err
}

// GetBookDetail fetches a book with author and category names.
func (q *Queries) GetBookDetail(ctx context.Context, id int64) (BookDetail, error) {
	row := q.db.QueryRowContext(ctx, bookDetailQuery+` WHERE b.id = ?`, id)
	return scanBookDetail(row)
}

// ListBooksParams holds the catalog search filters.
type ListBooksParams struct {
	Search     string // matches title, ISBN, or author first name
	State      string
	CategoryID int64
	AuthorID   int64
}

// ListBooks returns books matching the filters, ordered by title.
func (q *Queries) ListBooks(ctx context.Context, arg ListBooksParams) ([]BookDetail, error) {
	query := bookDetailQuery + ` WHERE 1=1`
	var args []any
	if arg.Search != "" {
		query += ` AND (b.title LIKE ? OR b.isbn LIKE ? OR a.first_name LIKE ?)`
		like := "%" + arg.Search + "%"
		args = append(args, like, like, like)
	}
	if arg.State != "" {
		query += ` AND b.state = ?`
		args = append(args, arg.State)
	}
	if arg.CategoryID != 0 {
		query += ` AND b.category_id = ?`
		args = append(args, arg.CategoryID)
	}
	if arg.AuthorID != 0 {
		query += ` AND b.author_id = ?`
		args = append(args, arg.AuthorID)
	}
	query += ` ORDER BY b.title`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []BookDetail
	for rows.Next() {
		d, err := scanBookDetail(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, d)
	}
	return books, rows.Err()
}

// BookLoanCount pairs a book title with how many times it has been loaned.
type BookLoanCount struct {
	BookID int64
	Title  string
	Loans  int64
}

// TopLoanedBooks returns the most-loaned books, busiest first.
func (q *Queries) TopLoanedBooks(ctx context.Context, limit int64) ([]BookLoanCount, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT b.id, b.title, COUNT(l.id) AS loans
		FROM books b
		JOIN loans l ON l.book_id = b.id
		GROUP BY b.id, b.title
		HAVING loans > 0
		ORDER BY loans DESC, b.title
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []BookLoanCount
	for rows.Next() {
		var c BookLoanCount
		if err := rows.Scan(&c.BookID, &c.Title, &c.Loans); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
