package inventory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
	"github.com/redis/go-redis/v9"
)

const defaultSettledHoldTTL = 24 * time.Hour

// Seat values in the grid hash:
//
//	A                      available
//	H:<hold id>:<unix ms>  held until the given expiry
//	B:<booking id>         booked
//
// All keys of a show share the {show:<id>} hash tag so every script touches a
// single slot, and Redis runs each script atomically. That makes the script
// the per-show critical section.

var materializeScript = redis.NewScript(`
	-- KEYS[1] = seat grid hash
	-- ARGV[1] = total seats

	if redis.call("EXISTS", KEYS[1]) == 1 then
		return 0
	end

	for i = 1, tonumber(ARGV[1]) do
		redis.call("HSET", KEYS[1], i, "A")
	end

	return 1
`)

var tryHoldScript = redis.NewScript(`
	-- KEYS[1] = seat grid hash, KEYS[2] = hold hash
	-- ARGV[1] = hold id, ARGV[2] = expiry (unix ms), ARGV[3..] = seat numbers

	if redis.call("EXISTS", KEYS[1]) == 0 then
		return {"NO_SHOW"}
	end

	for i = 3, #ARGV do
		if not redis.call("HGET", KEYS[1], ARGV[i]) then
			return {"NO_SEAT", tonumber(ARGV[i])}
		end
	end

	if redis.call("EXISTS", KEYS[2]) == 1 then
		return {"DUPLICATE"}
	end

	local conflicts = {}
	for i = 3, #ARGV do
		if redis.call("HGET", KEYS[1], ARGV[i]) ~= "A" then
			table.insert(conflicts, tonumber(ARGV[i]))
		end
	end

	if #conflicts > 0 then
		return {"CONFLICT", unpack(conflicts)}
	end

	local held = "H:" .. ARGV[1] .. ":" .. ARGV[2]
	local seats = {}
	for i = 3, #ARGV do
		redis.call("HSET", KEYS[1], ARGV[i], held)
		table.insert(seats, ARGV[i])
	end

	redis.call("HSET", KEYS[2], "seats", table.concat(seats, ","), "expiry", ARGV[2], "state", "Active")

	return {"OK"}
`)

var confirmScript = redis.NewScript(`
	-- KEYS[1] = seat grid hash, KEYS[2] = hold hash, KEYS[3] = booking seats key
	-- ARGV[1] = hold id, ARGV[2] = booking id, ARGV[3] = now (unix ms), ARGV[4] = settled hold ttl (ms)

	local state = redis.call("HGET", KEYS[2], "state")
	if not state then
		return {"UNKNOWN"}
	end

	if state ~= "Active" then
		return {"SETTLED", state}
	end

	local seats = redis.call("HGET", KEYS[2], "seats")
	local expiry = tonumber(redis.call("HGET", KEYS[2], "expiry"))
	local held = "H:" .. ARGV[1] .. ":"
	local value = "B:" .. ARGV[2]
	local final = "Confirmed"

	if tonumber(ARGV[3]) >= expiry then
		value = "A"
		final = "Expired"
	end

	for seat in string.gmatch(seats, "[^,]+") do
		local current = redis.call("HGET", KEYS[1], seat)
		if current and string.sub(current, 1, #held) == held then
			redis.call("HSET", KEYS[1], seat, value)
		end
	end

	if final == "Confirmed" then
		redis.call("SET", KEYS[3], seats)
	end

	redis.call("HSET", KEYS[2], "state", final)
	redis.call("PEXPIRE", KEYS[2], ARGV[4])

	return {"OK", final}
`)

var settleScript = redis.NewScript(`
	-- KEYS[1] = seat grid hash, KEYS[2] = hold hash
	-- ARGV[1] = hold id, ARGV[2] = target state, ARGV[3] = now (unix ms, 0 skips the expiry check)
	-- ARGV[4] = settled hold ttl (ms)

	local state = redis.call("HGET", KEYS[2], "state")
	if not state then
		return ""
	end

	if state ~= "Active" then
		return state
	end

	local now = tonumber(ARGV[3])
	if now > 0 and now < tonumber(redis.call("HGET", KEYS[2], "expiry")) then
		return "Active"
	end

	local held = "H:" .. ARGV[1] .. ":"
	for seat in string.gmatch(redis.call("HGET", KEYS[2], "seats"), "[^,]+") do
		local current = redis.call("HGET", KEYS[1], seat)
		if current and string.sub(current, 1, #held) == held then
			redis.call("HSET", KEYS[1], seat, "A")
		end
	end

	redis.call("HSET", KEYS[2], "state", ARGV[2])
	redis.call("PEXPIRE", KEYS[2], ARGV[4])

	return ARGV[2]
`)

var releaseBookedScript = redis.NewScript(`
	-- KEYS[1] = seat grid hash, KEYS[2] = booking seats key
	-- ARGV[1] = booking id

	local seats = redis.call("GET", KEYS[2])
	if not seats then
		return 0
	end

	local booked = "B:" .. ARGV[1]
	for seat in string.gmatch(seats, "[^,]+") do
		if redis.call("HGET", KEYS[1], seat) == booked then
			redis.call("HSET", KEYS[1], seat, "A")
		end
	end

	redis.call("DEL", KEYS[2])

	return 1
`)

// Redis keeps seat grids in Redis hashes so several engine instances can
// share them.
type Redis struct {
	client         redis.UniversalClient
	settledHoldTTL time.Duration
}

func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{
		client:         client,
		settledHoldTTL: defaultSettledHoldTTL,
	}
}

func seatGridKey(showID int) string {
	return fmt.Sprintf("seats:{show:%d}", showID)
}

func holdKey(showID int, holdID uuid.UUID) string {
	return fmt.Sprintf("hold:{show:%d}:%s", showID, holdID)
}

func bookingSeatsKey(showID int, bookingID uuid.UUID) string {
	return fmt.Sprintf("booking:{show:%d}:%s", showID, bookingID)
}

func (r *Redis) Materialize(ctx context.Context, showID int, totalSeats int) error {
	if totalSeats < 1 {
		return fmt.Errorf("%w: show %d has no seats", domain.ErrInvalidLayout, showID)
	}

	err := materializeScript.Run(ctx, r.client, []string{seatGridKey(showID)}, totalSeats).Err()
	if err != nil {
		return fmt.Errorf("failed to materialize seat grid for show %d: %w", showID, err)
	}

	return nil
}

func (r *Redis) Statuses(ctx context.Context, showID int) (map[int]domain.SeatStatus, error) {
	values, err := r.client.HGetAll(ctx, seatGridKey(showID)).Result()
	if err != nil {
		return nil, err
	}

	if len(values) == 0 {
		return nil, domain.ErrShowNotFound
	}

	statuses := make(map[int]domain.SeatStatus, len(values))
	for field, value := range values {
		seat, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("malformed seat number %q in show %d: %w", field, showID, err)
		}

		status, err := decodeSeatStatus(value)
		if err != nil {
			return nil, fmt.Errorf("malformed status of seat %d in show %d: %w", seat, showID, err)
		}

		statuses[seat] = status
	}

	return statuses, nil
}

func decodeSeatStatus(value string) (domain.SeatStatus, error) {
	switch {
	case value == "A":
		return domain.Available{}, nil

	case strings.HasPrefix(value, "H:"):
		parts := strings.SplitN(value, ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("unexpected value %q", value)
		}

		holdID, err := uuid.Parse(parts[1])
		if err != nil {
			return nil, err
		}

		ms, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return nil, err
		}

		return domain.Held{HoldID: holdID, Expiry: time.UnixMilli(ms)}, nil

	case strings.HasPrefix(value, "B:"):
		bookingID, err := uuid.Parse(strings.TrimPrefix(value, "B:"))
		if err != nil {
			return nil, err
		}

		return domain.Booked{BookingID: bookingID}, nil
	}

	return nil, fmt.Errorf("unexpected value %q", value)
}

func (r *Redis) TryHold(ctx context.Context, showID int, seats []int, holdID uuid.UUID, expiry time.Time) error {
	keys := []string{seatGridKey(showID), holdKey(showID, holdID)}

	args := make([]interface{}, 0, len(seats)+2)
	args = append(args, holdID.String(), expiry.UnixMilli())
	for _, seat := range seats {
		args = append(args, seat)
	}

	res, err := tryHoldScript.Run(ctx, r.client, keys, args...).Slice()
	if err != nil {
		return fmt.Errorf("failed to run hold script: %w", err)
	}

	switch replyTag(res) {
	case "OK":
		return nil
	case "NO_SHOW":
		return domain.ErrShowNotFound
	case "NO_SEAT":
		return &domain.SeatNotFoundError{Seat: replyInts(res[1:])[0]}
	case "DUPLICATE":
		return fmt.Errorf("hold %s already exists", holdID)
	case "CONFLICT":
		return &domain.SeatUnavailableError{Seats: replyInts(res[1:])}
	}

	return fmt.Errorf("unexpected hold script reply: %v", res)
}

func (r *Redis) Confirm(ctx context.Context, showID int, holdID, bookingID uuid.UUID, now time.Time) error {
	keys := []string{seatGridKey(showID), holdKey(showID, holdID), bookingSeatsKey(showID, bookingID)}

	res, err := confirmScript.Run(ctx, r.client, keys,
		holdID.String(),
		bookingID.String(),
		now.UnixMilli(),
		r.settledHoldTTL.Milliseconds(),
	).Slice()
	if err != nil {
		return fmt.Errorf("failed to run confirm script: %w", err)
	}

	switch replyTag(res) {
	case "UNKNOWN":
		return fmt.Errorf("%w: hold %s is unknown", domain.ErrHoldExpired, holdID)
	case "SETTLED":
		return fmt.Errorf("%w: hold %s is %v", domain.ErrHoldExpired, holdID, res[1])
	case "OK":
		if len(res) == 2 && res[1] == string(domain.HoldConfirmed) {
			return nil
		}

		return fmt.Errorf("%w: hold %s expired before confirmation", domain.ErrHoldExpired, holdID)
	}

	return fmt.Errorf("unexpected confirm script reply: %v", res)
}

func (r *Redis) Release(ctx context.Context, showID int, holdID uuid.UUID) (domain.HoldState, error) {
	return r.settle(ctx, showID, holdID, domain.HoldCancelled, 0)
}

func (r *Redis) Expire(ctx context.Context, showID int, holdID uuid.UUID, now time.Time) (domain.HoldState, error) {
	return r.settle(ctx, showID, holdID, domain.HoldExpired, now.UnixMilli())
}

func (r *Redis) settle(ctx context.Context, showID int, holdID uuid.UUID, to domain.HoldState, nowMs int64) (domain.HoldState, error) {
	keys := []string{seatGridKey(showID), holdKey(showID, holdID)}

	state, err := settleScript.Run(ctx, r.client, keys,
		holdID.String(),
		string(to),
		nowMs,
		r.settledHoldTTL.Milliseconds(),
	).Text()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("failed to run release script: %w", err)
	}

	return domain.HoldState(state), nil
}

func (r *Redis) ReleaseBooked(ctx context.Context, showID int, bookingID uuid.UUID) error {
	keys := []string{seatGridKey(showID), bookingSeatsKey(showID, bookingID)}

	err := releaseBookedScript.Run(ctx, r.client, keys, bookingID.String()).Err()
	if err != nil {
		return fmt.Errorf("failed to run release booked script: %w", err)
	}

	return nil
}

func replyTag(res []interface{}) string {
	if len(res) == 0 {
		return ""
	}

	tag, _ := res[0].(string)

	return tag
}

func replyInts(values []interface{}) []int {
	ints := make([]int, 0, len(values))
	for _, v := range values {
		if n, ok := v.(int64); ok {
			ints = append(ints, int(n))
		}
	}

	return ints
}
