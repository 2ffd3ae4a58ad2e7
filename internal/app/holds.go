package app

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/metinatakli/seat-reservation-engine/api"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
	"github.com/metinatakli/seat-reservation-engine/internal/reservation"
)

func (app *Application) CreateHoldHandler(w http.ResponseWriter, r *http.Request) {
	var input api.CreateHoldRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	req := reservation.HoldRequest{
		ShowID: input.ShowId,
		Seats:  input.SeatNumbers,
		UserID: app.contextGetUserId(r),
	}

	if input.TtlSeconds != nil {
		req.TTL, err = holdTTL(*input.TtlSeconds, app.config.Reservation.MaxHoldTTL)
		if err != nil {
			app.reservationErrorResponse(w, r, err)
			return
		}
	}

	hold, err := app.reservations.RequestHold(r.Context(), req)
	if err != nil {
		app.reservationErrorResponse(w, r, err)
		return
	}

	app.contextGetLogger(r).Info("seats held", "show_id", hold.ShowID, "hold_id", hold.ID, "seats", hold.Seats)

	headers := make(http.Header)
	headers.Set("Location", "/holds/"+hold.ID.String())

	err = app.writeJSON(w, http.StatusCreated, api.HoldResponse{Hold: toApiHold(hold)}, headers)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetHoldHandler(w http.ResponseWriter, r *http.Request) {
	holdID, err := readUUIDParam(r, "holdId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	hold, err := app.reservations.GetHold(r.Context(), holdID, app.contextGetUserId(r))
	if err != nil {
		app.reservationErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, api.HoldResponse{Hold: toApiHold(hold)}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) ConfirmHoldHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	var input api.ConfirmHoldRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	booking, err := app.reservations.Confirm(r.Context(), input.HoldId, app.contextGetUserId(r), input.PaymentConfirmationToken)
	if err != nil {
		logger.Warn("hold confirmation failed", "hold_id", input.HoldId, "error", err)
		app.reservationErrorResponse(w, r, err)
		return
	}

	logger.Info("booking confirmed", "show_id", booking.ShowID, "booking_id", booking.ID)

	err = app.writeJSON(w, http.StatusOK, api.BookingResponse{Booking: toApiBooking(booking)}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) CancelHoldHandler(w http.ResponseWriter, r *http.Request) {
	var input api.CancelHoldRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	err = app.reservations.CancelHold(r.Context(), input.HoldId, app.contextGetUserId(r))
	if err != nil {
		app.reservationErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// holdTTL converts the requested seconds, refusing values past maxTTL before
// they can overflow a time.Duration.
func holdTTL(seconds int, maxTTL time.Duration) (time.Duration, error) {
	limit := int64(math.MaxInt64 / time.Second)
	if maxTTL > 0 {
		limit = int64(maxTTL / time.Second)
	}

	if int64(seconds) > limit {
		return 0, fmt.Errorf("%w: hold ttl must not exceed %s", domain.ErrInvalidRequest, time.Duration(limit)*time.Second)
	}

	return time.Duration(seconds) * time.Second, nil
}

func toApiHold(hold *domain.Hold) api.Hold {
	return api.Hold{
		HoldId:      hold.ID,
		ShowId:      hold.ShowID,
		SeatNumbers: hold.Seats,
		TotalAmount: hold.TotalAmount,
		State:       string(hold.State),
		ExpiresAt:   hold.ExpiresAt,
	}
}
