package rideclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"rideshare/internal/booking/domain"
	"rideshare/internal/shared/apperrors"
)

const (
	maxAttempts  = 3
	retryBackoff = 200 * time.Millisecond
)

// Client talks to the ride registry over HTTP. Every call carries the
// configured timeout; transport failures and 5xx replies are retried a
// bounded number of times and then surface as unavailable, never as a
// domain error.
type Client struct {
	base string
	http *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		base: baseURL,
		http: &http.Client{Timeout: timeout},
	}
}

func (c *Client) GetRide(ctx context.Context, rideID string) (*domain.RideView, error) {
	var resp struct {
		ID             string `json:"id"`
		DriverID       string `json:"driver_id"`
		Status         string `json:"status"`
		TotalSeats     int    `json:"total_seats"`
		AvailableSeats int    `json:"available_seats"`
	}
	err := c.do(ctx, http.MethodGet, "/rides/"+url.PathEscape(rideID), nil, &resp)
	if err != nil {
		return nil, err
	}
	return &domain.RideView{
		ID:             resp.ID,
		DriverID:       resp.DriverID,
		Status:         resp.Status,
		TotalSeats:     resp.TotalSeats,
		AvailableSeats: resp.AvailableSeats,
	}, nil
}

// VerifyOwnership asks the registry whether driverID owns the ride. A
// non-owner comes back as a forbidden error so callers can pass it through.
func (c *Client) VerifyOwnership(ctx context.Context, rideID, driverID string) error {
	var resp struct {
		Owner bool `json:"owner"`
	}
	path := "/rides/" + url.PathEscape(rideID) + "/ownership?driver_id=" + url.QueryEscape(driverID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return err
	}
	if !resp.Owner {
		return apperrors.Forbidden(fmt.Sprintf("driver %s does not own ride %s", driverID, rideID))
	}
	return nil
}

func (c *Client) AdjustSeats(ctx context.Context, rideID string, delta int) (int, error) {
	body := map[string]int{"delta": delta}
	var resp struct {
		AvailableSeats int `json:"available_seats"`
	}
	err := c.do(ctx, http.MethodPost, "/rides/"+url.PathEscape(rideID)+"/seats", body, &resp)
	if err != nil {
		return 0, err
	}
	return resp.AvailableSeats, nil
}

// RideIDsByDriver lists the driver's ride IDs, used to resolve the
// driver-pending booking query.
func (c *Client) RideIDsByDriver(ctx context.Context, driverID string) ([]string, error) {
	var resp []struct {
		ID string `json:"id"`
	}
	err := c.do(ctx, http.MethodGet, "/rides/driver/"+url.PathEscape(driverID), nil, &resp)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(resp))
	for _, r := range resp {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return apperrors.Unavailable("ride registry call cancelled", ctx.Err())
			case <-time.After(retryBackoff << (attempt - 1)):
			}
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		retry, err := decode(resp, out)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		lastErr = err
	}

	return apperrors.Unavailable("ride registry unreachable", lastErr)
}

// decode reads the reply; the second return reports whether the failure is
// transient and worth retrying.
func decode(resp *http.Response, out any) (bool, error) {
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return false, nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return false, fmt.Errorf("decode reply: %w", err)
		}
		return false, nil
	}

	var remote struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&remote)
	if remote.Error == "" {
		remote.Error = resp.Status
	}

	if resp.StatusCode >= 500 {
		return true, apperrors.Unavailable(remote.Error, nil)
	}
	return false, apperrors.FromStatus(resp.StatusCode, remote.Error)
}
