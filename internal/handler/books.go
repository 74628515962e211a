// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/biblio-go/internal/imaging"
	"github.com/olegiv/biblio-go/internal/middleware"
	"github.com/olegiv/biblio-go/internal/model"
	"github.com/olegiv/biblio-go/internal/render"
	"github.com/olegiv/biblio-go/internal/service"
	"github.com/olegiv/biblio-go/internal/store"
	"github.com/olegiv/biblio-go/internal/util"
)

// maxCoverUploadSize caps cover uploads at 10 MB.
const maxCoverUploadSize = 10 << 20

// BookHandler handles the public catalog and librarian book management.
type BookHandler struct {
	queries      *store.Queries
	renderer     *render.Renderer
	eventService *service.EventService
	processor    *imaging.Processor
}

// NewBookHandler creates a new BookHandler.
func NewBookHandler(db *sql.DB, renderer *render.Renderer, processor *imaging.Processor) *BookHandler {
	return &BookHandler{
		queries:      store.New(db),
		renderer:     renderer,
		eventService: service.NewEventService(db),
		processor:    processor,
	}
}

// bookListData is the template payload for catalog listings.
type bookListData struct {
	Books      []store.BookDetail
	Categories []model.Category
	Search     string
	State      string
	CategoryID int64
}

// List renders the public catalog with optional search and filters.
// GET /books
func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	search := strings.TrimSpace(r.URL.Query().Get("q"))
	state := r.URL.Query().Get("state")
	categoryID := util.ParseNullInt64(r.URL.Query().Get("category")).Int64

	books, err := h.queries.ListBooks(r.Context(), store.ListBooksParams{
		Search:     search,
		State:      state,
		CategoryID: categoryID,
	})
	if err != nil {
		logAndInternalError(w, "failed to list books", "error", err)
		return
	}

	categories, err := h.queries.ListCategories(r.Context(), "")
	if err != nil {
		logAndInternalError(w, "failed to list categories", "error", err)
		return
	}

	data := bookListData{
		Books:      books,
		Categories: categories,
		Search:     search,
		State:      state,
		CategoryID: categoryID,
	}
	if err := h.renderer.Render(w, r, "site/books", templateData(r, "Catalog", data)); err != nil {
		logAndInternalError(w, "render book list", "error", err)
	}
}

// bookDetailData is the template payload for the book detail page.
type bookDetailData struct {
	Book store.BookDetail
	// CanLoan is true when the viewer could take this book home right now.
	CanLoan bool
	// CanReserve is true when the viewer could queue for this book.
	CanReserve bool
	// SanctionActive is true when the viewer is blocked by an overdue loan.
	SanctionActive bool
}

// Detail renders a single book with the viewer's available actions.
// GET /books/{id}
func (h *BookHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	book, ok := requireEntityWithRedirect(w, r, h.renderer, redirectBooks, "book", id,
		func(id int64) (store.BookDetail, error) { return h.queries.GetBookDetail(r.Context(), id) })
	if !ok {
		return
	}

	data := bookDetailData{Book: book}
	if user := middleware.GetUser(r); user != nil {
		now := time.Now()
		sanctioned, err := h.queries.HasOpenOverdueLoan(r.Context(), user.ID, now)
		if err != nil {
			logAndInternalError(w, "failed to check sanction", "error", err)
			return
		}
		data.SanctionActive = sanctioned
		data.CanLoan = !sanctioned && book.State == model.BookStateAvailable

		if book.State != model.BookStateAvailable {
			duplicate, err := h.queries.HasActiveReservation(r.Context(), book.ID, user.ID, now)
			if err != nil {
				logAndInternalError(w, "failed to check reservation", "error", err)
				return
			}
			data.CanReserve = !duplicate
		}
	}

	if err := h.renderer.Render(w, r, "site/book_detail", templateData(r, book.Title, data)); err != nil {
		logAndInternalError(w, "render book detail", "error", err)
	}
}

// bookFormData is the template payload for the book create/edit form.
type bookFormData struct {
	Book       *store.BookDetail
	Authors    []model.Author
	Categories []model.Category
}

// loadFormData fetches the author and category choices for the book form.
func (h *BookHandler) loadFormData(r *http.Request, book *store.BookDetail) (bookFormData, error) {
	authors, err := h.queries.ListAuthors(r.Context(), "")
	if err != nil {
		return bookFormData{}, err
	}
	categories, err := h.queries.ListCategories(r.Context(), "")
	if err != nil {
		return bookFormData{}, err
	}
	return bookFormData{Book: book, Authors: authors, Categories: categories}, nil
}

// New renders the book creation form.
// GET /manage/books/new
func (h *BookHandler) New(w http.ResponseWriter, r *http.Request) {
	data, err := h.loadFormData(r, nil)
	if err != nil {
		logAndInternalError(w, "failed to load book form data", "error", err)
		return
	}
	if err := h.renderer.Render(w, r, "manage/book_form", templateData(r, "New Book", data)); err != nil {
		logAndInternalError(w, "render book form", "error", err)
	}
}

// bookFromForm extracts and validates book fields from a submitted form.
func bookFromForm(r *http.Request) (title string, authorID int64, categoryID sql.NullInt64, isbn string, summary, coverURL sql.NullString, errMsg string) {
	title = strings.TrimSpace(r.FormValue("title"))
	isbn = strings.TrimSpace(r.FormValue("isbn"))
	authorID = util.ParseNullInt64(r.FormValue("author_id")).Int64
	categoryID = util.ParseNullInt64(r.FormValue("category_id"))
	summary = util.NullStringFromValue(strings.TrimSpace(r.FormValue("summary")))
	coverURL = util.NullStringFromValue(strings.TrimSpace(r.FormValue("cover_url")))

	switch {
	case title == "":
		errMsg = "Title is required"
	case isbn == "":
		errMsg = "ISBN is required"
	case authorID == 0:
		errMsg = "Author is required"
	}
	return
}

// Create adds a book to the catalog.
// POST /manage/books
func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, redirectManageBooksNew) {
		return
	}

	title, authorID, categoryID, isbn, summary, coverURL, errMsg := bookFromForm(r)
	if errMsg != "" {
		flashError(w, r, h.renderer, redirectManageBooksNew, errMsg)
		return
	}

	now := time.Now()
	book, err := h.queries.CreateBook(r.Context(), store.CreateBookParams{
		Title:      title,
		AuthorID:   authorID,
		CategoryID: categoryID,
		ISBN:       isbn,
		Summary:    summary,
		CoverURL:   coverURL,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		slog.Error("failed to create book", "error", err, "title", title)
		flashError(w, r, h.renderer, redirectManageBooksNew, "Could not create book, is the ISBN unique?")
		return
	}

	_ = h.eventService.LogBookEvent(r.Context(), model.EventLevelInfo,
		"Book created", middleware.GetUserIDPtr(r), map[string]any{"book_id": book.ID, "title": book.Title})

	flashSuccess(w, r, h.renderer, fmt.Sprintf(redirectManageBooksID, book.ID), "Book created")
}

// Edit renders the book edit form.
// GET /manage/books/{id}
func (h *BookHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	book, ok := requireEntityWithRedirect(w, r, h.renderer, redirectManageBooks, "book", id,
		func(id int64) (store.BookDetail, error) { return h.queries.GetBookDetail(r.Context(), id) })
	if !ok {
		return
	}

	data, err := h.loadFormData(r, &book)
	if err != nil {
		logAndInternalError(w, "failed to load book form data", "error", err)
		return
	}
	if err := h.renderer.Render(w, r, "manage/book_form", templateData(r, "Edit Book", data)); err != nil {
		logAndInternalError(w, "render book form", "error", err)
	}
}

// Update saves a book's catalog fields. The availability state is owned by
// the lifecycle engine and cannot be edited here.
// POST /manage/books/{id}
func (h *BookHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if !parseFormOrRedirect(w, r, h.renderer, redirectManageBooks) {
		return
	}

	title, authorID, categoryID, isbn, summary, coverURL, errMsg := bookFromForm(r)
	if errMsg != "" {
		flashError(w, r, h.renderer, fmt.Sprintf(redirectManageBooksID, id), errMsg)
		return
	}

	if err := h.queries.UpdateBook(r.Context(), store.UpdateBookParams{
		Title:      title,
		AuthorID:   authorID,
		CategoryID: categoryID,
		ISBN:       isbn,
		Summary:    summary,
		CoverURL:   coverURL,
		UpdatedAt:  time.Now(),
		ID:         id,
	}); err != nil {
		slog.Error("failed to update book", "error", err, "book_id", id)
		flashError(w, r, h.renderer, fmt.Sprintf(redirectManageBooksID, id), "Could not update book")
		return
	}

	_ = h.eventService.LogBookEvent(r.Context(), model.EventLevelInfo,
		"Book updated", middleware.GetUserIDPtr(r), map[string]any{"book_id": id})

	flashSuccess(w, r, h.renderer, fmt.Sprintf(redirectManageBooksID, id), "Book updated")
}

// Delete removes a book and its loan and reservation history.
// POST /manage/books/{id}/delete
func (h *BookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	book, ok := requireEntityWithRedirect(w, r, h.renderer, redirectManageBooks, "book", id,
		func(id int64) (model.Book, error) { return h.queries.GetBookByID(r.Context(), id) })
	if !ok {
		return
	}

	if err := h.queries.DeleteBook(r.Context(), id); err != nil {
		slog.Error("failed to delete book", "error", err, "book_id", id)
		flashError(w, r, h.renderer, redirectManageBooks, "Could not delete book")
		return
	}

	_ = h.eventService.LogBookEvent(r.Context(), model.EventLevelWarning,
		"Book deleted", middleware.GetUserIDPtr(r), map[string]any{"book_id": id, "title": book.Title})

	flashSuccess(w, r, h.renderer, redirectManageBooks, "Book deleted")
}

// UploadCover processes a cover image upload for a book.
// POST /manage/books/{id}/cover
func (h *BookHandler) UploadCover(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	book, ok := requireEntityWithRedirect(w, r, h.renderer, redirectManageBooks, "book", id,
		func(id int64) (model.Book, error) { return h.queries.GetBookByID(r.Context(), id) })
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxCoverUploadSize); err != nil {
		flashError(w, r, h.renderer, fmt.Sprintf(redirectManageBooksID, id), "Upload too large")
		return
	}

	file, header, err := r.FormFile("cover")
	if err != nil {
		flashError(w, r, h.renderer, fmt.Sprintf(redirectManageBooksID, id), "No cover file provided")
		return
	}
	defer func() { _ = file.Close() }()

	// Sniff the MIME type before handing the data to the processor.
	head := make([]byte, 512)
	n, err := file.Read(head)
	if err != nil && err != io.EOF {
		logAndInternalError(w, "failed to read cover upload", "error", err)
		return
	}
	if !h.processor.IsImage(h.processor.DetectMimeType(head[:n])) {
		flashError(w, r, h.renderer, fmt.Sprintf(redirectManageBooksID, id), "Unsupported image type")
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		logAndInternalError(w, "failed to rewind cover upload", "error", err)
		return
	}

	coverUUID := uuid.NewString()
	coverFilename := slugFilename(header.Filename)
	result, err := h.processor.ProcessCover(file, coverUUID, coverFilename)
	if err != nil {
		slog.Error("cover processing failed", "error", err, "book_id", id)
		flashError(w, r, h.renderer, fmt.Sprintf(redirectManageBooksID, id), "Could not process cover image")
		return
	}

	if _, err := h.processor.CreateAllVariants(result.FilePath, coverUUID, coverFilename); err != nil {
		slog.Warn("cover variant generation failed", "error", err, "book_id", id)
	}

	if err := h.queries.UpdateBookCover(r.Context(), result.FilePath, time.Now(), id); err != nil {
		logAndInternalError(w, "failed to store cover path", "error", err, "book_id", id)
		return
	}

	_ = h.eventService.LogBookEvent(r.Context(), model.EventLevelInfo,
		"Book cover uploaded", middleware.GetUserIDPtr(r),
		map[string]any{"book_id": id, "title": book.Title, "size": result.Size})

	flashSuccess(w, r, h.renderer, fmt.Sprintf(redirectManageBooksID, id), "Cover uploaded")
}

// slugFilename normalizes an uploaded filename to a slug while keeping the
// extension, so cover files are stored under predictable ASCII names.
func slugFilename(filename string) string {
	base := filepath.Base(filename)
	ext := strings.ToLower(filepath.Ext(base))
	name := util.Slugify(strings.TrimSuffix(base, filepath.Ext(base)))
	if name == "" {
		name = "cover"
	}
	return name + ext
}

// ManageList renders the librarian book list.
// GET /manage/books
func (h *BookHandler) ManageList(w http.ResponseWriter, r *http.Request) {
	search := strings.TrimSpace(r.URL.Query().Get("q"))
	books, err := h.queries.ListBooks(r.Context(), store.ListBooksParams{Search: search})
	if err != nil {
		logAndInternalError(w, "failed to list books", "error", err)
		return
	}

	data := bookListData{Books: books, Search: search}
	if err := h.renderer.Render(w, r, "manage/books", templateData(r, "Manage Books", data)); err != nil {
		logAndInternalError(w, "render manage books", "error", err)
	}
}
