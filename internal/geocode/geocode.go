package geocode

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client ходит в Nominatim за координатами адреса. Геокодирование
// всегда best-effort: любой сбой здесь не должен останавливать операцию,
// которая его запросила.
type Client struct {
	http *resty.Client
}

type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func NewClient(baseURL string) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5 * time.Second).
		SetHeader("User-Agent", "ReciclaAi-Geocoder")
	return &Client{http: c}
}

// Lookup возвращает (lat, lon) для адреса или ошибку, если адрес не найден
func (c *Client) Lookup(ctx context.Context, street, number, district, city, state, postalCode string) (float64, float64, error) {
	parts := []string{}
	if street != "" {
		parts = append(parts, strings.TrimSpace(street+" "+number))
	}
	for _, p := range []string{district, city, state, postalCode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	parts = append(parts, "Brasil")

	var results []searchResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":      strings.Join(parts, ", "),
			"format": "json",
			"limit":  "1",
		}).
		SetResult(&results).
		Get("/search")
	if err != nil {
		return 0, 0, err
	}
	if resp.StatusCode() != 200 || len(results) == 0 {
		return 0, 0, fmt.Errorf("no geocoding result for address")
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return 0, 0, err
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}
