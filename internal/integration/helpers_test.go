package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/metinatakli/seat-reservation-engine/api"
	"github.com/stretchr/testify/require"
)

// fields generated by the server that differ on every run
var keysToIgnore = map[string]struct{}{
	"timestamp": {},
	"requestId": {},
	"createdAt": {},
	"expiresAt": {},
	"holdId":    {},
	"bookingId": {},
}

func prepareRequest(method, path string, body io.Reader, headers map[string]string, cookies []*http.Cookie) *http.Request {
	req := httptest.NewRequest(method, path, body)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	for _, c := range cookies {
		req.AddCookie(c)
	}

	return req
}

func jsonBody(t testing.TB, v any) io.Reader {
	t.Helper()

	body, err := json.Marshal(v)
	require.NoError(t, err)

	return bytes.NewReader(body)
}

func compareResponse(t *testing.T, body io.Reader, expectedResponse string) {
	t.Helper()

	var actual map[string]any
	require.NoError(t, json.NewDecoder(body).Decode(&actual))

	cleanMap(actual)

	var expected map[string]any
	require.NoError(t, json.Unmarshal([]byte(expectedResponse), &expected))

	opts := cmpopts.IgnoreMapEntries(func(k string, _ any) bool {
		_, ok := keysToIgnore[k]
		return ok
	})

	if diff := cmp.Diff(expected, actual, opts); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func cleanMap(m map[string]any) {
	for k, v := range m {
		if _, ok := keysToIgnore[k]; ok {
			delete(m, k)
			continue
		}

		switch nested := v.(type) {
		case map[string]any:
			cleanMap(nested)
		case []any:
			for _, item := range nested {
				if obj, ok := item.(map[string]any); ok {
					cleanMap(obj)
				}
			}
		}
	}
}

func do(t testing.TB, testApp *TestApp, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	testApp.App.Routes().ServeHTTP(rec, req)

	return rec
}

// login opens a session through the development endpoint. The session is
// stored in Redis, the same way the authentication service would store it.
func (a *TestApp) login(t testing.TB, userID int) []*http.Cookie {
	t.Helper()

	req := prepareRequest(http.MethodPost, "/sessions", jsonBody(t, api.CreateSessionRequest{UserId: userID}), nil, nil)
	rec := do(t, a, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	return cookies
}

func (a *TestApp) createHold(t testing.TB, cookies []*http.Cookie, input api.CreateHoldRequest) api.Hold {
	t.Helper()

	req := prepareRequest(http.MethodPost, "/holds", jsonBody(t, input), nil, cookies)
	rec := do(t, a, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp api.HoldResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	return resp.Hold
}

func (a *TestApp) confirmHold(t testing.TB, cookies []*http.Cookie, hold api.Hold) api.Booking {
	t.Helper()

	input := api.ConfirmHoldRequest{HoldId: hold.HoldId, PaymentConfirmationToken: TestPaymentToken}
	req := prepareRequest(http.MethodPost, "/holds/confirm", jsonBody(t, input), nil, cookies)
	rec := do(t, a, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp api.BookingResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	return resp.Booking
}

func (a *TestApp) book(t testing.TB, cookies []*http.Cookie, seats ...int) api.Booking {
	t.Helper()

	hold := a.createHold(t, cookies, api.CreateHoldRequest{ShowId: TestShowId, SeatNumbers: seats})
	return a.confirmHold(t, cookies, hold)
}

func (a *TestApp) seatMap(t testing.TB) map[int]string {
	t.Helper()

	req := prepareRequest(http.MethodGet, fmt.Sprintf("/shows/%d/seats", TestShowId), nil, nil, nil)
	rec := do(t, a, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.SeatMapResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	return resp.Seats
}

func body(s string) io.Reader {
	return strings.NewReader(s)
}
