package integration_test

const (
	TestShowId    = 1
	TestShowSeats = 50
	TestMovieId   = 1
	TestTheaterId = 1

	TestUserId  = 1
	OtherUserId = 2

	TestPaymentToken = "tok_visa"
)
