package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charityfund/backend/internal/middleware"
	"github.com/charityfund/backend/internal/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrDonationNotFound = errors.New("donation not found")

type DonationService struct {
	db        *sql.DB
	allocator *AllocationService
	validator *ValidationHelper
	logger    zerolog.Logger
	now       func() time.Time
}

func NewDonationService(db *sql.DB, allocator *AllocationService) *DonationService {
	return &DonationService{
		db:        db,
		allocator: allocator,
		validator: NewValidationHelper(),
		logger:    log.With().Str("component", "donation").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

const donationFields = `id, user_id, comment, full_amount, invested_amount, fully_invested, create_date, close_date`

// CreateDonation records a donation and allocates it to open projects
// @Summary Make a donation
// @Description The donation is allocated to open projects, oldest first, before the response is sent.
// @Tags donations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.DonationCreate true "Donation"
// @Success 201 {object} models.DonationShort
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /donation [post]
func (s *DonationService) CreateDonation(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req models.DonationCreate
	if !DecodeAndValidate(w, r, s.validator, &req) {
		return
	}

	donation := &models.Donation{
		UserID:  userID,
		Comment: req.Comment,
		Funding: models.NewFunding(req.FullAmount, s.now()),
	}

	ctx := r.Context()
	_, err := s.allocator.RunInSweep(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, `
			INSERT INTO donations (user_id, comment, full_amount, invested_amount, fully_invested, create_date)
			VALUES ($1, $2, $3, 0, false, $4)
			RETURNING id`,
			donation.UserID, nullString(donation.Comment), donation.FullAmount, donation.CreateDate).Scan(&donation.ID)
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("Donation failed")
		sendSweepError(w, err)
		return
	}

	s.logger.Info().Int64("donation_id", donation.ID).Int64("user_id", userID).Int64("amount", donation.FullAmount).Msg("Donation received")
	WriteJSON(w, http.StatusCreated, donation.Short())
}

// ListDonations returns every donation
// @Summary List all donations
// @Description Superuser only.
// @Tags donations
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Donation
// @Failure 500 {object} ErrorResponse
// @Router /donation [get]
func (s *DonationService) ListDonations(w http.ResponseWriter, r *http.Request) {
	donations, err := s.queryDonations(r.Context(), `SELECT `+donationFields+` FROM donations ORDER BY id`)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list donations")
		SendErrorResponse(w, "Failed to fetch donations", http.StatusInternalServerError, nil)
		return
	}
	WriteJSON(w, http.StatusOK, donations)
}

// MyDonations returns the caller's donations
// @Summary List my donations
// @Tags donations
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.DonationShort
// @Failure 401 {object} ErrorResponse
// @Router /donation/my [get]
func (s *DonationService) MyDonations(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	donations, err := s.queryDonations(r.Context(),
		`SELECT `+donationFields+` FROM donations WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to list user donations")
		SendErrorResponse(w, "Failed to fetch donations", http.StatusInternalServerError, nil)
		return
	}

	short := make([]models.DonationShort, 0, len(donations))
	for _, d := range donations {
		short = append(short, d.Short())
	}
	WriteJSON(w, http.StatusOK, short)
}

func (s *DonationService) queryDonations(ctx context.Context, query string, args ...any) ([]*models.Donation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	donations := []*models.Donation{}
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		donations = append(donations, d)
	}
	return donations, rows.Err()
}

// getOwnDonation loads donation id if it belongs to userID.
func getOwnDonation(ctx context.Context, q queryRower, id, userID int64) (*models.Donation, error) {
	d, err := scanDonation(q.QueryRowContext(ctx,
		`SELECT `+donationFields+` FROM donations WHERE id = $1 AND user_id = $2`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrDonationNotFound, id)
	}
	return d, err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
