package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/charityfund/backend/internal/middleware"
	"github.com/charityfund/backend/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type ReceiptHandler struct {
	service   *services.ReceiptService
	validator *services.ValidationHelper
}

func NewReceiptHandler(service *services.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// GetReceipt renders a QR receipt for one of the caller's donations
// @Summary Donation receipt
// @Description PNG QR code for a donation owned by the caller
// @Tags donations
// @Produce png
// @Security BearerAuth
// @Param id path int true "Donation ID"
// @Success 200 {file} binary
// @Header 200 {string} X-Receipt-Code "Code embedded in the QR image"
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /donation/{id}/receipt [get]
func (h *ReceiptHandler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	donationID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || donationID <= 0 {
		services.SendErrorResponse(w, "Invalid donation id", http.StatusBadRequest, nil)
		return
	}

	code, image, err := h.service.GenerateReceipt(r.Context(), donationID, userID)
	if errors.Is(err, services.ErrDonationNotFound) {
		services.SendErrorResponse(w, "Donation not found", http.StatusNotFound, nil)
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("donation_id", donationID).Msg("Receipt generation failed")
		services.SendErrorResponse(w, "Failed to generate receipt", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Receipt-Code", code)
	w.WriteHeader(http.StatusOK)
	w.Write(image)
}

// VerifyReceipt checks a scanned receipt code
// @Summary Verify receipt
// @Description Resolve a scanned receipt code to the donation it was issued for
// @Tags donations
// @Accept json
// @Produce json
// @Param request body object{code=string} true "Scanned code"
// @Success 200 {object} services.Receipt
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /receipts/verify [post]
func (h *ReceiptHandler) VerifyReceipt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code" validate:"required"`
	}

	if !services.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	receipt, err := h.service.VerifyReceipt(r.Context(), req.Code)
	switch {
	case errors.Is(err, services.ErrReceiptNotFound):
		services.SendErrorResponse(w, err.Error(), http.StatusNotFound, nil)
		return
	case errors.Is(err, services.ErrReceiptUnavailable):
		services.SendErrorResponse(w, err.Error(), http.StatusServiceUnavailable, nil)
		return
	case err != nil:
		log.Error().Err(err).Msg("Receipt verification failed")
		services.SendErrorResponse(w, "Failed to verify receipt", http.StatusInternalServerError, nil)
		return
	}

	services.WriteJSON(w, http.StatusOK, receipt)
}
