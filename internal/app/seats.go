package app

import (
	"net/http"

	"github.com/metinatakli/seat-reservation-engine/api"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
)

func (app *Application) GetSeatMapHandler(w http.ResponseWriter, r *http.Request) {
	showID, err := readIntParam(r, "showId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	statuses, err := app.reservations.SeatMap(r.Context(), showID)
	if err != nil {
		app.reservationErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toSeatMapResponse(showID, statuses), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toSeatMapResponse(showID int, statuses map[int]domain.SeatStatus) api.SeatMapResponse {
	seats := make(map[int]string, len(statuses))
	for seat, status := range statuses {
		seats[seat] = status.State().String()
	}

	return api.SeatMapResponse{
		ShowId: showID,
		Seats:  seats,
	}
}
