package infrastructure

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"TelegramBotReminder/domain"
)

// GeoNamesLocator resolves coordinates with the GeoNames timezone web service.
type GeoNamesLocator struct {
	client   *resty.Client
	username string
}

func NewGeoNamesLocator(baseURL, username string, timeout time.Duration) *GeoNamesLocator {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)

	return &GeoNamesLocator{client: c, username: username}
}

type timezoneResponse struct {
	TimezoneID string `json:"timezoneId"`
	Status     *struct {
		Message string `json:"message"`
		Value   int    `json:"value"`
	} `json:"status"`
}

// Timezone returns the IANA timezone id at lat/lng. Every failure, including an
// answer without timezoneId, is reported as domain.ErrTimezoneLookup.
func (l *GeoNamesLocator) Timezone(ctx context.Context, lat, lng float64) (string, error) {
	var body timezoneResponse
	resp, err := l.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat":      strconv.FormatFloat(lat, 'f', -1, 64),
			"lng":      strconv.FormatFloat(lng, 'f', -1, 64),
			"username": l.username,
		}).
		SetResult(&body).
		ForceContentType("application/json").
		Get("/timezoneJSON")
	if err != nil {
		return "", errors.Wrapf(domain.ErrTimezoneLookup, "geonames request: %v", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", errors.Wrapf(domain.ErrTimezoneLookup, "geonames status %d", resp.StatusCode())
	}
	if body.Status != nil {
		return "", errors.Wrapf(domain.ErrTimezoneLookup, "geonames error %d: %s", body.Status.Value, body.Status.Message)
	}
	if body.TimezoneID == "" {
		return "", errors.Wrap(domain.ErrTimezoneLookup, "geonames answer has no timezoneId")
	}
	return body.TimezoneID, nil
}
