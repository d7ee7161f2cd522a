package services

import (
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProjectService(t *testing.T) (*CharityProjectService, sqlmock.Sqlmock, http.Handler) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	service := NewCharityProjectService(db, newTestAllocationService(db))
	service.now = func() time.Time { return sweepTime }

	router := chi.NewRouter()
	router.Get("/charity_project", service.ListProjects)
	router.Post("/charity_project", service.CreateProject)
	router.Patch("/charity_project/{id}", service.UpdateProject)
	router.Delete("/charity_project/{id}", service.DeleteProject)
	return service, mock, router
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

const (
	selectProjectByID  = "SELECT (.+) FROM charity_projects WHERE id = \\$1"
	lockProjectByID    = "SELECT (.+) FROM charity_projects WHERE id = \\$1 FOR UPDATE"
	selectProjectName  = "SELECT id FROM charity_projects WHERE name = \\$1"
	insertProject      = "INSERT INTO charity_projects"
	updateProjectSQL   = "UPDATE charity_projects SET name = \\$1, description = \\$2, full_amount = \\$3, fully_invested = \\$4, close_date = \\$5 WHERE id = \\$6"
	deleteProjectQuery = "DELETE FROM charity_projects WHERE id = \\$1"
)

func expectEmptySweep(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(selectDonations).WillReturnRows(sqlmock.NewRows(donationColumns))
	mock.ExpectQuery(selectProjects).WillReturnRows(sqlmock.NewRows(projectColumns))
}

func TestCharityProjectService_ListProjects(t *testing.T) {
	_, mock, router := newTestProjectService(t)
	closed := sweepTime.Add(-time.Minute)

	mock.ExpectQuery("SELECT (.+) FROM charity_projects ORDER BY id").
		WillReturnRows(sqlmock.NewRows(projectColumns).
			AddRow(1, "Cats", "Food for cats", 100, 100, true, sweepTime.Add(-time.Hour), closed).
			AddRow(2, "Dogs", "Food for dogs", 50, 0, false, sweepTime.Add(-time.Hour), nil))

	w := serve(router, "GET", "/charity_project", "")

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"name":"Cats"`)
	assert.Contains(t, body, `"close_date"`)
	assert.Equal(t, 1, strings.Count(body, `"close_date"`))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCharityProjectService_CreateProject(t *testing.T) {
	created := sweepTime.Add(-time.Hour)

	t.Run("new project is funded from waiting donations", func(t *testing.T) {
		_, mock, router := newTestProjectService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(selectProjectName).WithArgs("Cats").WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(insertProject).
			WithArgs("Cats", "Food for cats", 100, sweepTime).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
		mock.ExpectQuery(selectDonations).WillReturnRows(sqlmock.NewRows(donationColumns).
			AddRow(9, 1, nil, 40, 0, false, created, nil))
		mock.ExpectQuery(selectProjects).WillReturnRows(sqlmock.NewRows(projectColumns).
			AddRow(3, "Cats", "Food for cats", 100, 0, false, sweepTime, nil))
		mock.ExpectExec(updateDonation).WithArgs(40, true, sweepTime, 9).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(updateProject).WithArgs(40, false, nil, 3).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(insertAlloc).WithArgs("sweep-1", 9, 3, 40, sweepTime).WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()
		mock.ExpectQuery(selectProjectByID).WithArgs(3).
			WillReturnRows(sqlmock.NewRows(projectColumns).
				AddRow(3, "Cats", "Food for cats", 100, 40, false, sweepTime, nil))

		w := serve(router, "POST", "/charity_project", `{"name":"Cats","description":"Food for cats","full_amount":100}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"invested_amount":40`)
		assert.NotContains(t, w.Body.String(), `"close_date"`)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate name", func(t *testing.T) {
		_, mock, router := newTestProjectService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(selectProjectName).WithArgs("Cats").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectRollback()

		w := serve(router, "POST", "/charity_project", `{"name":"Cats","description":"Food for cats","full_amount":100}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("validation", func(t *testing.T) {
		_, mock, router := newTestProjectService(t)

		tests := []struct {
			name string
			body string
			code int
		}{
			{"zero amount", `{"name":"Cats","description":"x","full_amount":0}`, http.StatusUnprocessableEntity},
			{"negative amount", `{"name":"Cats","description":"x","full_amount":-5}`, http.StatusUnprocessableEntity},
			{"empty name", `{"name":"","description":"x","full_amount":10}`, http.StatusUnprocessableEntity},
			{"long name", `{"name":"` + strings.Repeat("a", 101) + `","description":"x","full_amount":10}`, http.StatusUnprocessableEntity},
			{"missing description", `{"name":"Cats","full_amount":10}`, http.StatusUnprocessableEntity},
			{"unknown field", `{"name":"Cats","description":"x","full_amount":10,"invested_amount":5}`, http.StatusBadRequest},
			{"malformed", `{"name":`, http.StatusBadRequest},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				w := serve(router, "POST", "/charity_project", tt.body)
				assert.Equal(t, tt.code, w.Code)
			})
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed sweep leaves nothing behind", func(t *testing.T) {
		_, mock, router := newTestProjectService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(selectProjectName).WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(insertProject).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
		mock.ExpectQuery(selectDonations).WillReturnError(errors.New("connection lost"))
		mock.ExpectRollback()

		w := serve(router, "POST", "/charity_project", `{"name":"Cats","description":"Food for cats","full_amount":100}`)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCharityProjectService_UpdateProject(t *testing.T) {
	created := sweepTime.Add(-time.Hour)

	t.Run("not found", func(t *testing.T) {
		_, mock, router := newTestProjectService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockProjectByID).WithArgs(42).WillReturnRows(sqlmock.NewRows(projectColumns))
		mock.ExpectRollback()

		w := serve(router, "PATCH", "/charity_project/42", `{"description":"new"}`)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("closed project", func(t *testing.T) {
		_, mock, router := newTestProjectService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockProjectByID).WithArgs(3).WillReturnRows(sqlmock.NewRows(projectColumns).
			AddRow(3, "Cats", "Food", 100, 100, true, created, sweepTime))
		mock.ExpectRollback()

		w := serve(router, "PATCH", "/charity_project/3", `{"description":"new"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("full amount below invested", func(t *testing.T) {
		_, mock, router := newTestProjectService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockProjectByID).WithArgs(3).WillReturnRows(sqlmock.NewRows(projectColumns).
			AddRow(3, "Cats", "Food", 100, 40, false, created, nil))
		mock.ExpectRollback()

		w := serve(router, "PATCH", "/charity_project/3", `{"full_amount":30}`)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("full amount equal to invested closes the project", func(t *testing.T) {
		_, mock, router := newTestProjectService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockProjectByID).WithArgs(3).WillReturnRows(sqlmock.NewRows(projectColumns).
			AddRow(3, "Cats", "Food", 100, 40, false, created, nil))
		mock.ExpectExec(updateProjectSQL).
			WithArgs("Cats", "Food", 40, true, sweepTime, 3).
			WillReturnResult(sqlmock.NewResult(0, 1))
		expectEmptySweep(mock)
		mock.ExpectCommit()
		mock.ExpectQuery(selectProjectByID).WithArgs(3).WillReturnRows(sqlmock.NewRows(projectColumns).
			AddRow(3, "Cats", "Food", 40, 40, true, created, sweepTime))

		w := serve(router, "PATCH", "/charity_project/3", `{"full_amount":40}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"fully_invested":true`)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("raised target takes in a waiting donation", func(t *testing.T) {
		_, mock, router := newTestProjectService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockProjectByID).WithArgs(3).WillReturnRows(sqlmock.NewRows(projectColumns).
			AddRow(3, "Cats", "Food", 100, 40, false, created, nil))
		mock.ExpectExec(updateProjectSQL).
			WithArgs("Cats", "Food", 150, false, nil, 3).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(selectDonations).WillReturnRows(sqlmock.NewRows(donationColumns).
			AddRow(7, 5, nil, 80, 0, false, created.Add(time.Minute), nil))
		mock.ExpectQuery(selectProjects).WillReturnRows(sqlmock.NewRows(projectColumns).
			AddRow(3, "Cats", "Food", 150, 40, false, created, nil))
		mock.ExpectExec(updateDonation).
			WithArgs(80, true, sweepTime, 7).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(updateProject).
			WithArgs(120, false, nil, 3).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(insertAlloc).
			WithArgs("sweep-1", 7, 3, 80, sweepTime).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()
		mock.ExpectQuery(selectProjectByID).WithArgs(3).WillReturnRows(sqlmock.NewRows(projectColumns).
			AddRow(3, "Cats", "Food", 150, 120, false, created, nil))

		w := serve(router, "PATCH", "/charity_project/3", `{"full_amount":150}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"invested_amount":120`)
		assert.Contains(t, w.Body.String(), `"fully_invested":false`)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("serialization failure on the row lock is retryable", func(t *testing.T) {
		_, mock, router := newTestProjectService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockProjectByID).WithArgs(3).WillReturnError(&pq.Error{Code: "40001"})
		mock.ExpectRollback()

		w := serve(router, "PATCH", "/charity_project/3", `{"full_amount":150}`)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "1", w.Header().Get("Retry-After"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rename to a taken name", func(t *testing.T) {
		_, mock, router := newTestProjectService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockProjectByID).WithArgs(3).WillReturnRows(sqlmock.NewRows(projectColumns).
			AddRow(3, "Cats", "Food", 100, 0, false, created, nil))
		mock.ExpectQuery(selectProjectName).WithArgs("Dogs").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
		mock.ExpectRollback()

		w := serve(router, "PATCH", "/charity_project/3", `{"name":"Dogs"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid id", func(t *testing.T) {
		_, _, router := newTestProjectService(t)
		w := serve(router, "PATCH", "/charity_project/abc", `{"name":"Dogs"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCharityProjectService_DeleteProject(t *testing.T) {
	created := sweepTime.Add(-time.Hour)

	t.Run("untouched project is deleted", func(t *testing.T) {
		_, mock, router := newTestProjectService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockProjectByID).WithArgs(3).WillReturnRows(sqlmock.NewRows(projectColumns).
			AddRow(3, "Cats", "Food", 100, 0, false, created, nil))
		mock.ExpectExec(deleteProjectQuery).WithArgs(3).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		w := serve(router, "DELETE", "/charity_project/3", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"id":3`)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invested project is kept", func(t *testing.T) {
		_, mock, router := newTestProjectService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockProjectByID).WithArgs(3).WillReturnRows(sqlmock.NewRows(projectColumns).
			AddRow(3, "Cats", "Food", 100, 1, false, created, nil))
		mock.ExpectRollback()

		w := serve(router, "DELETE", "/charity_project/3", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing project", func(t *testing.T) {
		_, mock, router := newTestProjectService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockProjectByID).WithArgs(8).WillReturnRows(sqlmock.NewRows(projectColumns))
		mock.ExpectRollback()

		w := serve(router, "DELETE", "/charity_project/8", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
