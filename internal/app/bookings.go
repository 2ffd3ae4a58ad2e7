package app

import (
	"net/http"

	"github.com/metinatakli/seat-reservation-engine/api"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
)

func (app *Application) GetBookingHandler(w http.ResponseWriter, r *http.Request) {
	bookingID, err := readUUIDParam(r, "bookingId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	booking, err := app.reservations.GetBooking(r.Context(), bookingID, app.contextGetUserId(r))
	if err != nil {
		app.reservationErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, api.BookingResponse{Booking: toApiBooking(booking)}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) CancelBookingHandler(w http.ResponseWriter, r *http.Request) {
	var input api.CancelBookingRequest

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

	err = app.reservations.CancelBooking(r.Context(), input.BookingId, app.contextGetUserId(r))
	if err != nil {
		app.reservationErrorResponse(w, r, err)
		return
	}

	app.contextGetLogger(r).Info("booking cancelled", "booking_id", input.BookingId)

	w.WriteHeader(http.StatusNoContent)
}

func (app *Application) GetUserBookingsHandler(w http.ResponseWriter, r *http.Request) {
	pagination, err := readPagination(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	bookings, metadata, err := app.reservations.BookingsByUser(r.Context(), app.contextGetUserId(r), pagination)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := api.UserBookingsResponse{
		Bookings: toApiBookings(bookings),
		Metadata: api.Metadata(*metadata),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetShowBookingsHandler(w http.ResponseWriter, r *http.Request) {
	showID, err := readIntParam(r, "showId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	bookings, err := app.reservations.BookingsByShow(r.Context(), showID)
	if err != nil {
		app.reservationErrorResponse(w, r, err)
		return
	}

	resp := api.ShowBookingsResponse{
		ShowId:   showID,
		Bookings: toApiBookings(bookings),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toApiBooking(booking *domain.Booking) api.Booking {
	return api.Booking{
		BookingId:   booking.ID,
		HoldId:      booking.HoldID,
		ShowId:      booking.ShowID,
		SeatNumbers: booking.Seats,
		TotalAmount: booking.TotalAmount,
		Status:      string(booking.Status),
		PaymentRef:  booking.PaymentRef,
		CreatedAt:   booking.CreatedAt,
		CancelledAt: booking.CancelledAt,
	}
}

func toApiBookings(bookings []domain.Booking) []api.Booking {
	result := make([]api.Booking, len(bookings))
	for i := range bookings {
		result[i] = toApiBooking(&bookings[i])
	}
	return result
}
