package book

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bookreview/internal/httpx"
	"bookreview/internal/testutil"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (*http.ServeMux, *MockRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)
	mockRepo := NewMockRepository(ctrl)
	store, _ := newRedisCache(t)
	service := NewService(mockRepo, NewCachedLister(mockRepo, store))

	mux := http.NewServeMux()
	NewHTTPHandler(service).RegisterRoutes(mux)
	return mux, mockRepo
}

func TestHTTPHandler_List(t *testing.T) {
	mux, mockRepo := newTestHandler(t)

	t.Run("miss then hit", func(t *testing.T) {
		mockRepo.EXPECT().ListBooks(gomock.Any()).Return(testBooks, nil).Times(1)

		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/books", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "MISS", w.Header().Get(httpx.CacheHeader))
		assert.JSONEq(t, `[
			{"id":1,"title":"Atomic Habits","author":"James Clear","reviews":[{"id":1,"content":"Practical."}]},
			{"id":2,"title":"The Alchemist","author":"Paulo Coelho","reviews":[]}
		]`, w.Body.String())
		missBody := w.Body.String()

		w = httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/books", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "HIT", w.Header().Get(httpx.CacheHeader))
		assert.JSONEq(t, missBody, w.Body.String())
	})
}

func TestHTTPHandler_ListStoreError(t *testing.T) {
	mux, mockRepo := newTestHandler(t)
	mockRepo.EXPECT().ListBooks(gomock.Any()).Return(nil, context.DeadlineExceeded)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/books", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp httpx.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
}

func TestHTTPHandler_Create(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockRepository)
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "success",
			body: `{"title":"Atomic Habits","author":"James Clear"}`,
			setupMock: func(m *MockRepository) {
				m.EXPECT().
					CreateBook(gomock.Any(), NewBook{Title: "Atomic Habits", Author: "James Clear"}).
					Return(Book{ID: 7, Title: "Atomic Habits", Author: "James Clear", Reviews: []Review{}}, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing author",
			body:           `{"title":"Atomic Habits"}`,
			setupMock:      func(m *MockRepository) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
		{
			name:           "blank title",
			body:           `{"title":"   ","author":"James Clear"}`,
			setupMock:      func(m *MockRepository) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
		{
			name:           "malformed json",
			body:           `{"title":`,
			setupMock:      func(m *MockRepository) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "BAD_REQUEST",
		},
		{
			name: "store error",
			body: `{"title":"T","author":"A"}`,
			setupMock: func(m *MockRepository) {
				m.EXPECT().CreateBook(gomock.Any(), gomock.Any()).Return(Book{}, context.DeadlineExceeded)
			},
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux, mockRepo := newTestHandler(t)
			tt.setupMock(mockRepo)

			w := httptest.NewRecorder()
			mux.ServeHTTP(w, testutil.NewRequest(http.MethodPost, "/books", tt.body))

			resp := testutil.RecordHTTPResponse(w)
			testutil.AssertResponseCode(t, resp.Code, tt.expectedStatus)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, resp.ErrorCode())
			}
		})
	}
}

func TestHTTPHandler_CreateResponseBody(t *testing.T) {
	mux, mockRepo := newTestHandler(t)
	mockRepo.EXPECT().CreateBook(gomock.Any(), gomock.Any()).
		Return(Book{ID: 7, Title: "Atomic Habits", Author: "James Clear", Reviews: []Review{}}, nil)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/books", strings.NewReader(`{"title":"Atomic Habits","author":"James Clear"}`)))

	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":7,"title":"Atomic Habits","author":"James Clear","reviews":[]}`, w.Body.String())
}

func TestHTTPHandler_ListReviews(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		setupMock      func(*MockRepository)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "success",
			path: "/books/1/reviews",
			setupMock: func(m *MockRepository) {
				m.EXPECT().ListReviews(gomock.Any(), int64(1)).
					Return([]Review{{ID: 3, Content: "Great", BookID: 1}}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `[{"id":3,"content":"Great"}]`,
		},
		{
			name: "no reviews",
			path: "/books/2/reviews",
			setupMock: func(m *MockRepository) {
				m.EXPECT().ListReviews(gomock.Any(), int64(2)).Return([]Review{}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `[]`,
		},
		{
			name:           "non numeric id",
			path:           "/books/abc/reviews",
			setupMock:      func(m *MockRepository) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "zero id",
			path:           "/books/0/reviews",
			setupMock:      func(m *MockRepository) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "negative id",
			path:           "/books/-4/reviews",
			setupMock:      func(m *MockRepository) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "store error",
			path: "/books/1/reviews",
			setupMock: func(m *MockRepository) {
				m.EXPECT().ListReviews(gomock.Any(), int64(1)).Return(nil, context.DeadlineExceeded)
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux, mockRepo := newTestHandler(t)
			tt.setupMock(mockRepo)

			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, w.Body.String())
			}
		})
	}
}

func TestHTTPHandler_AddReview(t *testing.T) {
	tests := []struct {
		name           string
		bookID         int64
		body           string
		setupMock      func(*MockRepository)
		expectedStatus int
	}{
		{
			name:   "success",
			bookID: 1,
			body:   `{"content":"Loved it"}`,
			setupMock: func(m *MockRepository) {
				m.EXPECT().AddReview(gomock.Any(), int64(1), NewReview{Content: "Loved it"}).
					Return(Review{ID: 9, Content: "Loved it", BookID: 1}, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:   "book missing",
			bookID: 42,
			body:   `{"content":"Loved it"}`,
			setupMock: func(m *MockRepository) {
				m.EXPECT().AddReview(gomock.Any(), int64(42), gomock.Any()).Return(Review{}, ErrBookNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "empty content",
			bookID:         1,
			body:           `{"content":""}`,
			setupMock:      func(m *MockRepository) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "store error",
			bookID: 1,
			body:   `{"content":"Loved it"}`,
			setupMock: func(m *MockRepository) {
				m.EXPECT().AddReview(gomock.Any(), int64(1), gomock.Any()).Return(Review{}, context.DeadlineExceeded)
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux, mockRepo := newTestHandler(t)
			tt.setupMock(mockRepo)

			w := httptest.NewRecorder()
			path := fmt.Sprintf("/books/%d/reviews", tt.bookID)
			mux.ServeHTTP(w, testutil.NewRequest(http.MethodPost, path, tt.body))

			testutil.AssertResponseCode(t, w.Code, tt.expectedStatus)
		})
	}
}

func TestHTTPHandler_MethodNotAllowed(t *testing.T) {
	mux, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/books", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
