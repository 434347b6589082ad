package book

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"bookreview/internal/httpx"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// RegisterRoutes mounts the book routes on mux.
func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /books", h.List)
	mux.HandleFunc("POST /books", h.Create)
	mux.HandleFunc("GET /books/{book_id}/reviews", h.ListReviews)
	mux.HandleFunc("POST /books/{book_id}/reviews", h.AddReview)
}

// List handles GET /books
// @Summary List books
// @Description All books with their reviews, served from the cache when a fresh snapshot exists
// @Tags books
// @Produce json
// @Success 200 {array} Book
// @Failure 500 {object} httpx.ErrorResponse
// @Router /books [get]
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	books, source, err := h.service.ListBooks(r.Context())
	if err != nil {
		log.Printf("list books failed: request_id=%s err=%v", httpx.RequestIDFrom(r), err)
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	w.Header().Set(httpx.CacheHeader, string(source))
	httpx.JSON(w, http.StatusOK, books)
}

// Create handles POST /books
// @Summary Create book
// @Tags books
// @Accept json
// @Produce json
// @Param book body NewBook true "Book"
// @Success 201 {object} Book
// @Failure 400 {object} httpx.ErrorResponse
// @Router /books [post]
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in NewBook
	if !decodeBody(w, r, &in) {
		return
	}

	b, err := h.service.CreateBook(r.Context(), in)
	if err != nil {
		log.Printf("create book failed: request_id=%s err=%v", httpx.RequestIDFrom(r), err)
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, b)
}

// ListReviews handles GET /books/{book_id}/reviews
// @Summary List reviews of a book
// @Tags reviews
// @Produce json
// @Param book_id path int true "Book ID"
// @Success 200 {array} Review
// @Failure 400 {object} httpx.ErrorResponse
// @Router /books/{book_id}/reviews [get]
func (h *HTTPHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	bookID, ok := bookIDParam(w, r)
	if !ok {
		return
	}

	reviews, err := h.service.ListReviews(r.Context(), bookID)
	if err != nil {
		log.Printf("list reviews failed: request_id=%s book_id=%d err=%v", httpx.RequestIDFrom(r), bookID, err)
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, reviews)
}

// AddReview handles POST /books/{book_id}/reviews
// @Summary Add a review to a book
// @Tags reviews
// @Accept json
// @Produce json
// @Param book_id path int true "Book ID"
// @Param review body NewReview true "Review"
// @Success 201 {object} Review
// @Failure 404 {object} httpx.ErrorResponse
// @Router /books/{book_id}/reviews [post]
func (h *HTTPHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	bookID, ok := bookIDParam(w, r)
	if !ok {
		return
	}
	var in NewReview
	if !decodeBody(w, r, &in) {
		return
	}

	rv, err := h.service.AddReview(r.Context(), bookID, in)
	if err != nil {
		if errors.Is(err, ErrBookNotFound) {
			httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
			return
		}
		log.Printf("add review failed: request_id=%s book_id=%d err=%v", httpx.RequestIDFrom(r), bookID, err)
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, rv)
}

func bookIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("book_id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "book_id must be a positive integer", nil)
		return 0, false
	}
	return id, true
}

// decodeBody parses and validates the JSON body into dst, writing the error
// response itself when that fails.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if httpx.IsBodyTooLarge(err) {
			httpx.JSONError(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large", nil)
			return false
		}
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body", nil)
		return false
	}
	if details := httpx.ValidateStruct(dst); details != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", details)
		return false
	}
	return true
}
