package integration_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/metinatakli/seat-reservation-engine/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type SeatMapTestSuite struct {
	BaseSuite
}

func TestSeatMapSuite(t *testing.T) {
	if testing.Short() {
		t.Skip()
	}

	suite.Run(t, new(SeatMapTestSuite))
}

func (s *SeatMapTestSuite) TestGetSeatMapHandler() {
	scenarios := []Scenario{
		{
			Name:             "returns 400 for an invalid show id",
			Method:           http.MethodGet,
			URL:              "/shows/0/seats",
			ExpectedStatus:   http.StatusBadRequest,
			ExpectedResponse: `{"message": "showId must be a positive integer"}`,
		},
		{
			Name:             "returns 404 for a non-existent show",
			Method:           http.MethodGet,
			URL:              "/shows/999/seats",
			ExpectedStatus:   http.StatusNotFound,
			ExpectedResponse: `{"message": "show not found"}`,
		},
		{
			Name:           "returns every seat as available for a fresh show",
			Method:         http.MethodGet,
			URL:            "/shows/1/seats",
			ExpectedStatus: http.StatusOK,
			AfterTestFunc: func(t testing.TB, app *TestApp, res *http.Response) {
				var resp api.SeatMapResponse
				require.NoError(t, json.NewDecoder(res.Body).Decode(&resp))

				assert.Equal(t, TestShowId, resp.ShowId)
				require.Len(t, resp.Seats, TestShowSeats)
				for seat := 1; seat <= TestShowSeats; seat++ {
					assert.Equal(t, "Available", resp.Seats[seat])
				}
			},
		},
		{
			Name:           "returns held and booked seats",
			Method:         http.MethodGet,
			URL:            "/shows/1/seats",
			ExpectedStatus: http.StatusOK,
			BeforeTestFunc: func(t testing.TB, app *TestApp) {
				cookies := app.login(t, TestUserId)
				app.createHold(t, cookies, api.CreateHoldRequest{ShowId: TestShowId, SeatNumbers: []int{1, 2}})
				app.book(t, cookies, 50)
			},
			AfterTestFunc: func(t testing.TB, app *TestApp, res *http.Response) {
				var resp api.SeatMapResponse
				require.NoError(t, json.NewDecoder(res.Body).Decode(&resp))

				assert.Equal(t, "Held", resp.Seats[1])
				assert.Equal(t, "Held", resp.Seats[2])
				assert.Equal(t, "Available", resp.Seats[3])
				assert.Equal(t, "Booked", resp.Seats[50])
			},
		},
	}

	for _, scenario := range scenarios {
		scenario.Run(s.T(), s.app)
	}
}
