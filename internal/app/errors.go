package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/metinatakli/seat-reservation-engine/api"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
	appvalidator "github.com/metinatakli/seat-reservation-engine/internal/validator"
)

func (app *Application) logError(r *http.Request, err error) {
	app.contextGetLogger(r).Error(err.Error())
}

func newErrorResponse(r *http.Request, message string) api.ErrorResponse {
	return api.ErrorResponse{
		Message:   message,
		RequestId: middleware.GetReqID(r.Context()),
		Timestamp: time.Now(),
	}
}

// The errorResponse() method is a generic helper for sending JSON-formatted error
// messages to the client with a given status code.
func (app *Application) errorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	app.sendJSON(w, r, status, newErrorResponse(r, message))
}

func (app *Application) sendJSON(w http.ResponseWriter, r *http.Request, status int, resp any) {
	err := app.writeJSON(w, status, resp, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (app *Application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)

	message := "The server encountered a problem and could not process your request"
	app.errorResponse(w, r, http.StatusInternalServerError, message)
}

func (app *Application) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	message := "The requested resource not found"
	app.errorResponse(w, r, http.StatusNotFound, message)
}

func (app *Application) notFoundResponseWithErr(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusNotFound, err.Error())
}

func (app *Application) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	message := "The " + r.Method + " method is not supported for this resource"
	app.errorResponse(w, r, http.StatusMethodNotAllowed, message)
}

func (app *Application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func (app *Application) unauthorizedAccessResponse(w http.ResponseWriter, r *http.Request) {
	message := "You must be authenticated to access this resource"
	app.errorResponse(w, r, http.StatusUnauthorized, message)
}

func (app *Application) failedValidationResponse(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		app.badRequestResponse(w, r, err)
		return
	}

	resp := api.ValidationErrorResponse{
		ErrorResponse:    newErrorResponse(r, "One or more fields are invalid"),
		ValidationErrors: make([]api.ValidationError, 0, len(validationErrors)),
	}

	for _, fe := range validationErrors {
		resp.ValidationErrors = append(resp.ValidationErrors, api.ValidationError{
			Field: fe.Field(),
			Issue: appvalidator.ValidationMessage(fe),
		})
	}

	app.sendJSON(w, r, http.StatusUnprocessableEntity, resp)
}

func (app *Application) seatConflictResponse(w http.ResponseWriter, r *http.Request, err *domain.SeatUnavailableError) {
	resp := api.SeatConflictResponse{
		ErrorResponse: newErrorResponse(r, domain.ErrSeatUnavailable.Error()),
		ConflictSeats: err.Seats,
	}

	app.sendJSON(w, r, http.StatusConflict, resp)
}

// reservationErrorResponse maps a coordinator error to its HTTP status.
func (app *Application) reservationErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var unavailable *domain.SeatUnavailableError

	switch {
	case errors.As(err, &unavailable):
		app.seatConflictResponse(w, r, unavailable)
	case errors.Is(err, domain.ErrShowNotFound),
		errors.Is(err, domain.ErrHoldNotFound),
		errors.Is(err, domain.ErrBookingNotFound),
		errors.Is(err, domain.ErrSeatNotFound):
		app.notFoundResponseWithErr(w, r, err)
	case errors.Is(err, domain.ErrHoldExpired):
		app.errorResponse(w, r, http.StatusGone, domain.ErrHoldExpired.Error())
	case errors.Is(err, domain.ErrPaymentFailed):
		app.errorResponse(w, r, http.StatusPaymentRequired, domain.ErrPaymentFailed.Error())
	case errors.Is(err, domain.ErrInvalidRequest):
		app.badRequestResponse(w, r, err)
	default:
		app.serverErrorResponse(w, r, err)
	}
}
