package app

import (
	"net/http"

	"github.com/metinatakli/seat-reservation-engine/api"
)

// CreateSessionHandler signs a user in without credentials. It is only routed
// in dev and test environments; in production sessions are created by the
// authentication service sharing the session store.
func (app *Application) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	var input api.CreateSessionRequest

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

	// renew the token on every privilege change to prevent session fixation
	err = app.sessionManager.RenewToken(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	app.sessionManager.Put(r.Context(), SessionKeyUserId.String(), input.UserId)

	w.WriteHeader(http.StatusNoContent)
}

func (app *Application) Logout(w http.ResponseWriter, r *http.Request) {
	err := app.sessionManager.Destroy(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
