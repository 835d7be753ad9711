package catalogservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client клиент для работы с CatalogService
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        Logger
}

// NewClient создает новый экземпляр клиента CatalogService
func NewClient(baseURL string, timeout time.Duration, log Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// GetService получает услугу и её базовую цену
func (c *Client) GetService(ctx context.Context, serviceID int64) (*Service, error) {
	var service Service
	if err := c.get(ctx, fmt.Sprintf("/internal/services/%d", serviceID), ErrServiceNotFound, &service); err != nil {
		return nil, err
	}
	return &service, nil
}

// GetVehicle получает тип транспорта и его надбавку
func (c *Client) GetVehicle(ctx context.Context, vehicleID int64) (*Vehicle, error) {
	var vehicle Vehicle
	if err := c.get(ctx, fmt.Sprintf("/internal/vehicles/%d", vehicleID), ErrVehicleNotFound, &vehicle); err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// GetChannel получает настройки канала продаж
func (c *Client) GetChannel(ctx context.Context, code string) (*Channel, error) {
	var channel Channel
	if err := c.get(ctx, "/internal/channels/"+url.PathEscape(code), ErrChannelNotFound, &channel); err != nil {
		return nil, err
	}
	return &channel, nil
}

// GetChannelWithGracefulDegradation получает канал продаж с graceful degradation.
// При недоступности каталога возвращает канал без права ручной оплаты
func (c *Client) GetChannelWithGracefulDegradation(ctx context.Context, code string) (*Channel, error) {
	channel, err := c.GetChannel(ctx, code)
	if err != nil {
		if errors.Is(err, ErrChannelNotFound) {
			c.log.Warn("Channel %q not found in catalog, manual payment disabled", code)
			return &Channel{Code: code}, nil
		}

		c.log.Error("CatalogService unavailable, applying graceful degradation for channel=%s: %v", code, err)
		return &Channel{Code: code}, fmt.Errorf("%w: channel=%s, error=%v", ErrServiceDegraded, code, err)
	}

	return channel, nil
}

func (c *Client) get(ctx context.Context, path string, notFound error, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", ErrInternal, err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: failed to execute request: %v", ErrInternal, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return notFound
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: unexpected status code %d: %s", ErrInvalidResponse, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", ErrInvalidResponse, err)
	}

	return nil
}
