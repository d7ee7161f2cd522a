package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/charityfund/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrProjectNotFound     = errors.New("charity project not found")
	ErrDuplicateName       = errors.New("charity project name already taken")
	ErrProjectClosed       = errors.New("charity project is closed")
	ErrProjectInvested     = errors.New("charity project already has investments")
	ErrAmountBelowInvested = errors.New("full amount below invested amount")
)

type CharityProjectService struct {
	db        *sql.DB
	allocator *AllocationService
	validator *ValidationHelper
	logger    zerolog.Logger
	now       func() time.Time
}

func NewCharityProjectService(db *sql.DB, allocator *AllocationService) *CharityProjectService {
	return &CharityProjectService{
		db:        db,
		allocator: allocator,
		validator: NewValidationHelper(),
		logger:    log.With().Str("component", "charity_project").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// queryRower is satisfied by both *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const projectFields = `id, name, description, full_amount, invested_amount, fully_invested, create_date, close_date`

// ListProjects returns every charity project
// @Summary List charity projects
// @Tags charity_projects
// @Produce json
// @Success 200 {array} models.CharityProject
// @Failure 500 {object} ErrorResponse
// @Router /charity_project [get]
func (s *CharityProjectService) ListProjects(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.QueryContext(r.Context(), `SELECT `+projectFields+` FROM charity_projects ORDER BY id`)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list projects")
		SendErrorResponse(w, "Failed to fetch charity projects", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	projects := []*models.CharityProject{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to scan project")
			SendErrorResponse(w, "Failed to fetch charity projects", http.StatusInternalServerError, nil)
			return
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error().Err(err).Msg("Failed to list projects")
		SendErrorResponse(w, "Failed to fetch charity projects", http.StatusInternalServerError, nil)
		return
	}

	WriteJSON(w, http.StatusOK, projects)
}

// CreateProject creates a charity project and allocates waiting donations to it
// @Summary Create charity project
// @Description Superuser only. The project is funded from open donations before it is returned.
// @Tags charity_projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CharityProjectCreate true "Project"
// @Success 201 {object} models.CharityProject
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /charity_project [post]
func (s *CharityProjectService) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req models.CharityProjectCreate
	if !DecodeAndValidate(w, r, s.validator, &req) {
		return
	}

	ctx := r.Context()
	var projectID int64
	_, err := s.allocator.RunInSweep(ctx, func(tx *sql.Tx) error {
		if err := checkNameFree(ctx, tx, req.Name, 0); err != nil {
			return err
		}
		err := tx.QueryRowContext(ctx, `
			INSERT INTO charity_projects (name, description, full_amount, invested_amount, fully_invested, create_date)
			VALUES ($1, $2, $3, 0, false, $4)
			RETURNING id`,
			req.Name, req.Description, req.FullAmount, s.now()).Scan(&projectID)
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", ErrDuplicateName, req.Name)
		}
		return err
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("name", req.Name).Msg("Project creation failed")
		s.sendProjectError(w, err)
		return
	}

	project, err := getProject(ctx, s.db, projectID, false)
	if err != nil {
		s.logger.Error().Err(err).Int64("project_id", projectID).Msg("Failed to reload created project")
		SendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
		return
	}

	s.logger.Info().Int64("project_id", project.ID).Int64("invested", project.InvestedAmount).Msg("Project created")
	WriteJSON(w, http.StatusCreated, project)
}

// UpdateProject partially updates an open charity project
// @Summary Update charity project
// @Description Superuser only. Closed projects cannot be edited and the target cannot drop below the invested amount.
// @Tags charity_projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Param request body models.CharityProjectUpdate true "Fields to change"
// @Success 200 {object} models.CharityProject
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /charity_project/{id} [patch]
func (s *CharityProjectService) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := projectIDParam(w, r)
	if !ok {
		return
	}

	var req models.CharityProjectUpdate
	if !DecodeAndValidate(w, r, s.validator, &req) {
		return
	}

	ctx := r.Context()
	_, err := s.allocator.RunInSweep(ctx, func(tx *sql.Tx) error {
		project, err := getProject(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if err := s.applyUpdate(ctx, tx, project, req); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE charity_projects
			SET name = $1, description = $2, full_amount = $3, fully_invested = $4, close_date = $5
			WHERE id = $6`,
			project.Name, project.Description, project.FullAmount, project.FullyInvested, project.CloseDate, project.ID)
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", ErrDuplicateName, project.Name)
		}
		return err
	})
	if err != nil {
		s.logger.Warn().Err(err).Int64("project_id", id).Msg("Project update failed")
		s.sendProjectError(w, err)
		return
	}

	project, err := getProject(ctx, s.db, id, false)
	if err != nil {
		s.logger.Error().Err(err).Int64("project_id", id).Msg("Failed to reload updated project")
		SendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
		return
	}
	WriteJSON(w, http.StatusOK, project)
}

// applyUpdate checks req against the current state of project and applies it.
func (s *CharityProjectService) applyUpdate(ctx context.Context, tx *sql.Tx, project *models.CharityProject, req models.CharityProjectUpdate) error {
	if project.FullyInvested {
		return fmt.Errorf("%w: %d", ErrProjectClosed, project.ID)
	}
	if req.FullAmount != nil && *req.FullAmount < project.InvestedAmount {
		return fmt.Errorf("%w: %d < %d", ErrAmountBelowInvested, *req.FullAmount, project.InvestedAmount)
	}
	if req.Name != nil && *req.Name != project.Name {
		if err := checkNameFree(ctx, tx, *req.Name, project.ID); err != nil {
			return err
		}
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.FullAmount != nil {
		project.FullAmount = *req.FullAmount
		if project.FullAmount == project.InvestedAmount {
			project.Close(s.now())
		}
	}
	return nil
}

// DeleteProject removes a project nobody has invested in
// @Summary Delete charity project
// @Description Superuser only. Projects that received money can only be closed, not deleted.
// @Tags charity_projects
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Success 200 {object} models.CharityProject
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /charity_project/{id} [delete]
func (s *CharityProjectService) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := projectIDParam(w, r)
	if !ok {
		return
	}

	project, err := s.deleteProject(r.Context(), id)
	if err != nil {
		s.logger.Warn().Err(err).Int64("project_id", id).Msg("Project deletion failed")
		s.sendProjectError(w, err)
		return
	}

	s.logger.Info().Int64("project_id", id).Msg("Project deleted")
	WriteJSON(w, http.StatusOK, project)
}

func (s *CharityProjectService) deleteProject(ctx context.Context, id int64) (*models.CharityProject, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	project, err := getProject(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	if project.FullyInvested || project.InvestedAmount > 0 {
		return nil, fmt.Errorf("%w: %d", ErrProjectInvested, id)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM charity_projects WHERE id = $1`, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *CharityProjectService) sendProjectError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrProjectNotFound):
		SendErrorResponse(w, "Charity project not found", http.StatusNotFound, nil)
	case errors.Is(err, ErrDuplicateName):
		SendErrorResponse(w, "A project with this name already exists", http.StatusBadRequest, nil)
	case errors.Is(err, ErrProjectClosed):
		SendErrorResponse(w, "A closed project cannot be edited", http.StatusBadRequest, nil)
	case errors.Is(err, ErrProjectInvested):
		SendErrorResponse(w, "The project has received money and cannot be deleted", http.StatusBadRequest, nil)
	case errors.Is(err, ErrAmountBelowInvested):
		SendErrorResponse(w, "Full amount cannot be less than the invested amount", http.StatusUnprocessableEntity, nil)
	default:
		sendSweepError(w, err)
	}
}

func getProject(ctx context.Context, q queryRower, id int64, forUpdate bool) (*models.CharityProject, error) {
	query := `SELECT ` + projectFields + ` FROM charity_projects WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	project, err := scanProject(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrProjectNotFound, id)
	}
	return project, err
}

// checkNameFree fails with ErrDuplicateName when another project than
// exceptID already uses name.
func checkNameFree(ctx context.Context, tx *sql.Tx, name string, exceptID int64) error {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM charity_projects WHERE name = $1`, name).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return err
	case id != exceptID:
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func projectIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		SendErrorResponse(w, "Invalid project id", http.StatusBadRequest, nil)
		return 0, false
	}
	return id, true
}
