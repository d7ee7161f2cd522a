package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/charityfund/backend/internal/allocation"
	"github.com/charityfund/backend/internal/audit"
	"github.com/charityfund/backend/internal/config"
	"github.com/charityfund/backend/internal/metrics"
	"github.com/charityfund/backend/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// AllocationService runs allocation sweeps against Postgres. Each sweep loads
// the unfunded snapshot with row locks under serializable isolation, runs the
// engine and commits every mutation plus the allocation ledger rows at once.
type AllocationService struct {
	db         *sql.DB
	lock       sweepLocker
	audit      *audit.AuditLogger
	logger     zerolog.Logger
	now        func() time.Time
	newSweepID func() string
}

type sweepLocker interface {
	Acquire(ctx context.Context) (release func(), err error)
}

func NewAllocationService(db *sql.DB, redisClient *redis.Client) *AllocationService {
	s := &AllocationService{
		db:         db,
		audit:      audit.NewAuditLogger(),
		logger:     log.With().Str("component", "allocation").Logger(),
		now:        func() time.Time { return time.Now().UTC() },
		newSweepID: uuid.NewString,
	}
	if redisClient != nil {
		cfg := config.LoadAllocationConfig()
		s.lock = NewSweepLock(redisClient, cfg.LockExpiry, cfg.LockTries)
	}
	return s
}

// Sweep runs one allocation sweep in its own transaction.
func (s *AllocationService) Sweep(ctx context.Context) (*allocation.Result, error) {
	return s.RunInSweep(ctx, nil)
}

// RunInSweep runs fn and then a sweep inside the same serializable
// transaction and commits once. Request errors returned by fn (unknown or
// closed project, taken name and the like) are passed through untouched.
// Every other failure, from fn or the sweep, comes back as
// *allocation.PersistenceError.
func (s *AllocationService) RunInSweep(ctx context.Context, fn func(tx *sql.Tx) error) (*allocation.Result, error) {
	start := time.Now()
	res, err := s.runInSweep(ctx, fn)
	duration := time.Since(start)

	switch {
	case err == nil && res.Empty():
		metrics.RecordSweep(metrics.SweepNoop, 0, 0, duration)
	case err == nil:
		metrics.RecordSweep(metrics.SweepCommitted, len(res.Transfers), res.Total(), duration)
	default:
		var pe *allocation.PersistenceError
		if errors.As(err, &pe) {
			status := metrics.SweepFailed
			if pe.Conflict() {
				status = metrics.SweepConflict
			}
			metrics.RecordSweep(status, 0, 0, duration)
			s.audit.LogError("", err)
		}
	}
	return res, err
}

func (s *AllocationService) runInSweep(ctx context.Context, fn func(tx *sql.Tx) error) (*allocation.Result, error) {
	if s.lock != nil {
		release, err := s.lock.Acquire(ctx)
		if err != nil {
			return nil, allocation.NewPersistenceError("lock", err)
		}
		defer release()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, allocation.NewPersistenceError("begin", classify(err))
	}
	defer tx.Rollback()

	if fn != nil {
		if err := fn(tx); err != nil {
			if isRequestError(err) {
				return nil, err
			}
			return nil, allocation.NewPersistenceError("prepare", classify(err))
		}
	}

	res, err := s.SweepTx(ctx, tx)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, allocation.NewPersistenceError("commit", classify(err))
	}

	s.report(res)
	return res, nil
}

// SweepTx runs a sweep inside the caller's transaction. Nothing is
// committed; the caller owns tx.
func (s *AllocationService) SweepTx(ctx context.Context, tx *sql.Tx) (*allocation.Result, error) {
	donations, err := s.loadUnfundedDonations(ctx, tx)
	if err != nil {
		return nil, allocation.NewPersistenceError("load donations", classify(err))
	}

	projects, err := s.loadUnfundedProjects(ctx, tx)
	if err != nil {
		return nil, allocation.NewPersistenceError("load projects", classify(err))
	}

	res := allocation.Allocate(donations, projects, s.now())
	if res.Empty() {
		return res, nil
	}
	res.SweepID = s.newSweepID()

	for _, d := range res.Donations {
		if err := s.updateDonation(ctx, tx, d); err != nil {
			return nil, allocation.NewPersistenceError("update donation", classify(err))
		}
	}

	for _, p := range res.Projects {
		if err := s.updateProject(ctx, tx, p); err != nil {
			return nil, allocation.NewPersistenceError("update project", classify(err))
		}
	}

	for _, t := range res.Transfers {
		if err := s.insertAllocation(ctx, tx, res.SweepID, t, res.ClosedAt); err != nil {
			return nil, allocation.NewPersistenceError("insert allocation", classify(err))
		}
	}

	return res, nil
}

func (s *AllocationService) report(res *allocation.Result) {
	if res.Empty() {
		s.logger.Debug().Msg("Sweep found nothing to allocate")
		return
	}

	for _, t := range res.Transfers {
		s.audit.LogTransfer(res.SweepID, t.DonationID, t.ProjectID, t.Amount)
	}
	for _, d := range res.Donations {
		if d.FullyInvested {
			s.audit.LogClosed(res.SweepID, "donation", d.ID, *d.CloseDate)
		}
	}
	for _, p := range res.Projects {
		if p.FullyInvested {
			s.audit.LogClosed(res.SweepID, "project", p.ID, *p.CloseDate)
		}
	}

	s.logger.Info().
		Str("sweep_id", res.SweepID).
		Int("transfers", len(res.Transfers)).
		Int64("amount", res.Total()).
		Int("closed_donations", res.ClosedDonations()).
		Int("closed_projects", res.ClosedProjects()).
		Msg("Sweep committed")
}

func (s *AllocationService) loadUnfundedDonations(ctx context.Context, tx *sql.Tx) ([]*models.Donation, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, user_id, comment, full_amount, invested_amount, fully_invested, create_date, close_date
		FROM donations
		WHERE fully_invested = false
		ORDER BY create_date, id
		FOR UPDATE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var donations []*models.Donation
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		donations = append(donations, d)
	}
	return donations, rows.Err()
}

func (s *AllocationService) loadUnfundedProjects(ctx context.Context, tx *sql.Tx) ([]*models.CharityProject, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, name, description, full_amount, invested_amount, fully_invested, create_date, close_date
		FROM charity_projects
		WHERE fully_invested = false
		ORDER BY create_date, id
		FOR UPDATE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*models.CharityProject
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *AllocationService) updateDonation(ctx context.Context, tx *sql.Tx, d *models.Donation) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE donations
		SET invested_amount = $1, fully_invested = $2, close_date = $3
		WHERE id = $4 AND fully_invested = false`,
		d.InvestedAmount, d.FullyInvested, d.CloseDate, d.ID)
	if err != nil {
		return err
	}
	return expectOneRow(result, "donation", d.ID)
}

func (s *AllocationService) updateProject(ctx context.Context, tx *sql.Tx, p *models.CharityProject) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE charity_projects
		SET invested_amount = $1, fully_invested = $2, close_date = $3
		WHERE id = $4 AND fully_invested = false`,
		p.InvestedAmount, p.FullyInvested, p.CloseDate, p.ID)
	if err != nil {
		return err
	}
	return expectOneRow(result, "project", p.ID)
}

func (s *AllocationService) insertAllocation(ctx context.Context, tx *sql.Tx, sweepID string, t allocation.Transfer, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO allocations (sweep_id, donation_id, project_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		sweepID, t.DonationID, t.ProjectID, t.Amount, at)
	return err
}

func expectOneRow(result sql.Result, kind string, id int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s %d is no longer open", allocation.ErrConflict, kind, id)
	}
	return nil
}

// classify tags Postgres serialization failures, deadlocks and lock
// timeouts as conflicts.
func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01", "55P03":
			return fmt.Errorf("%w: %w", allocation.ErrConflict, err)
		}
	}
	return err
}

var requestErrors = []error{
	ErrProjectNotFound,
	ErrDuplicateName,
	ErrProjectClosed,
	ErrProjectInvested,
	ErrAmountBelowInvested,
	ErrDonationNotFound,
}

func isRequestError(err error) bool {
	for _, target := range requestErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDonation(row rowScanner) (*models.Donation, error) {
	var d models.Donation
	var comment sql.NullString
	var closeDate sql.NullTime
	if err := row.Scan(&d.ID, &d.UserID, &comment, &d.FullAmount, &d.InvestedAmount,
		&d.FullyInvested, &d.CreateDate, &closeDate); err != nil {
		return nil, err
	}
	d.Comment = comment.String
	if closeDate.Valid {
		d.CloseDate = &closeDate.Time
	}
	return &d, nil
}

func scanProject(row rowScanner) (*models.CharityProject, error) {
	var p models.CharityProject
	var closeDate sql.NullTime
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.FullAmount, &p.InvestedAmount,
		&p.FullyInvested, &p.CreateDate, &closeDate); err != nil {
		return nil, err
	}
	if closeDate.Valid {
		p.CloseDate = &closeDate.Time
	}
	return &p, nil
}

// sendSweepError maps a failed sweep to a retryable 503.
func sendSweepError(w http.ResponseWriter, err error) {
	if allocation.IsPersistenceError(err) {
		w.Header().Set("Retry-After", "1")
		SendErrorResponse(w, "Allocation could not be saved, please retry", http.StatusServiceUnavailable, nil)
		return
	}
	SendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
}

// TriggerSweep runs an allocation sweep on demand
// @Summary Run allocation sweep
// @Description Match unfunded donations to unfunded projects, oldest first
// @Tags allocations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{sweep_id=string,transfers=[]allocation.Transfer,total=int64}
// @Failure 503 {object} ErrorResponse
// @Router /allocations/sweep [post]
func (s *AllocationService) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	res, err := s.Sweep(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Manual sweep failed")
		sendSweepError(w, err)
		return
	}

	transfers := res.Transfers
	if transfers == nil {
		transfers = []allocation.Transfer{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"sweep_id":         res.SweepID,
		"transfers":        transfers,
		"total":            res.Total(),
		"closed_donations": res.ClosedDonations(),
		"closed_projects":  res.ClosedProjects(),
	})
}

// ListAllocations returns allocation ledger rows
// @Summary List allocations
// @Description List ledger rows, optionally filtered by donation or project
// @Tags allocations
// @Produce json
// @Security BearerAuth
// @Param donation_id query int false "Filter by donation"
// @Param project_id query int false "Filter by project"
// @Success 200 {array} models.Allocation
// @Failure 400 {object} ErrorResponse
// @Router /allocations [get]
func (s *AllocationService) ListAllocations(w http.ResponseWriter, r *http.Request) {
	var donationID, projectID int64
	var err error
	if v := r.URL.Query().Get("donation_id"); v != "" {
		if donationID, err = strconv.ParseInt(v, 10, 64); err != nil || donationID <= 0 {
			SendErrorResponse(w, "Invalid donation_id", http.StatusBadRequest, nil)
			return
		}
	}
	if v := r.URL.Query().Get("project_id"); v != "" {
		if projectID, err = strconv.ParseInt(v, 10, 64); err != nil || projectID <= 0 {
			SendErrorResponse(w, "Invalid project_id", http.StatusBadRequest, nil)
			return
		}
	}

	items, err := s.listAllocations(r.Context(), donationID, projectID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list allocations")
		SendErrorResponse(w, "Failed to fetch allocations", http.StatusInternalServerError, nil)
		return
	}
	WriteJSON(w, http.StatusOK, items)
}

func (s *AllocationService) listAllocations(ctx context.Context, donationID, projectID int64) ([]models.Allocation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sweep_id, donation_id, project_id, amount, created_at
		FROM allocations
		WHERE ($1 = 0 OR donation_id = $1) AND ($2 = 0 OR project_id = $2)
		ORDER BY id`, donationID, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.Allocation{}
	for rows.Next() {
		var a models.Allocation
		if err := rows.Scan(&a.ID, &a.SweepID, &a.DonationID, &a.ProjectID, &a.Amount, &a.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
