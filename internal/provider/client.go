// Пакет provider — клиент REST API сторонней платформы бронирования.
// Чистый I/O: бизнес-логики нет, трансформ в каноническую форму
// живёт рядом в transform.go.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tourops/guide-scheduler/internal/calendar"
)

// RawBooking — нативная форма брони у провайдера, как она приходит
// по проводу. Наружу из пакета уходит только канонический Booking.
type RawBooking struct {
	BookingID string `json:"bookingId"`
	ProductID string `json:"productId"`
	Status    string `json:"status"`
	Date      string `json:"date"`      // "2006-01-02"
	StartTime string `json:"startTime"` // "15:04"

	Pax struct {
		Adults   int `json:"adults"`
		Children int `json:"children"`
		Infants  int `json:"infants"`
	} `json:"pax"`

	Customer struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone"`
	} `json:"customer"`
}

type RemoteBookingClient interface {
	// Брони продукта за интервал дат (границы включительно).
	FetchBookings(ctx context.Context, productID string, start, end time.Time) ([]RawBooking, error)
}

// Реализация поверх net/http.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type bookingsResponse struct {
	Bookings []RawBooking `json:"bookings"`
}

func (c *HTTPClient) FetchBookings(ctx context.Context, productID string, start, end time.Time) ([]RawBooking, error) {
	endpoint := fmt.Sprintf("%s/v1/products/%s/bookings", c.baseURL, url.PathEscape(productID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	q := req.URL.Query()
	q.Set("start", start.UTC().Format(calendar.DateLayout))
	q.Set("end", end.UTC().Format(calendar.DateLayout))
	req.URL.RawQuery = q.Encode()

	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bookings for product %s: %w", productID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("provider returned %d for product %s: %s", resp.StatusCode, productID, body)
	}

	var out bookingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode bookings for product %s: %w", productID, err)
	}
	return out.Bookings, nil
}
