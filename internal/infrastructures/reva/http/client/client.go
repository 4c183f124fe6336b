package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	derr "github.com/ggonzalez94/court-reservations/internal/domain/errors"
	"github.com/ggonzalez94/court-reservations/internal/domain/models"
	"github.com/ggonzalez94/court-reservations/internal/infrastructures/reva/dto"
	"github.com/ggonzalez94/court-reservations/internal/infrastructures/reva/mappers"
)

const (
	csrfCookieName    = "XSRF-TOKEN"
	sessionCookieName = "laravel_session"

	// Upstream URL-encodes the trailing "=" padding of the CSRF cookie;
	// the token is rejected unless the padding is stripped before it is
	// sent back as a header.
	csrfPaddingSuffix = "%3D"
)

type Client struct {
	baseURL    string
	warmupPath string
	timeout    time.Duration
	httpClient *http.Client
}

func NewClient(baseURL, warmupPath string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://clubs.reva.la"
	}
	if strings.TrimSpace(warmupPath) == "" {
		warmupPath = "/club-padelbo"
	}
	if !strings.HasPrefix(warmupPath, "/") {
		warmupPath = "/" + warmupPath
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		warmupPath: warmupPath,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Acquire performs one warm-up request against a public club page and
// captures the credential cookies from the response. A fresh cookie jar is
// used per call so sessions never leak across aggregation runs.
func (c *Client) Acquire(ctx context.Context) (models.Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return models.Session{}, fmt.Errorf("create cookie jar: %w", err)
	}
	warmupClient := &http.Client{Jar: jar, Timeout: c.timeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.warmupPath, nil)
	if err != nil {
		return models.Session{}, fmt.Errorf("create warm-up request: %w", err)
	}

	resp, err := warmupClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return models.Session{}, err
		}
		return models.Session{}, fmt.Errorf("%w: warm-up request: %v", derr.ErrSessionAcquisition, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return models.Session{}, fmt.Errorf("%w: warm-up status: %s", derr.ErrSessionAcquisition, resp.Status)
	}

	cookieURL, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return models.Session{}, fmt.Errorf("parse base url: %w", err)
	}

	var csrfToken, sessionID string
	for _, cookie := range jar.Cookies(cookieURL) {
		switch cookie.Name {
		case csrfCookieName:
			csrfToken = cookie.Value
		case sessionCookieName:
			sessionID = cookie.Value
		}
	}

	if csrfToken == "" || sessionID == "" {
		return models.Session{}, fmt.Errorf("%w: expected cookies missing from warm-up response", derr.ErrSessionAcquisition)
	}

	return models.Session{
		CSRFToken:  trimCSRFPadding(csrfToken),
		SessionID:  sessionID,
		AcquiredAt: time.Now(),
	}, nil
}

// GetTimes queries the schedule of one venue for one calendar day.
func (c *Client) GetTimes(ctx context.Context, session models.Session, establishmentID int64, day time.Time, durationMinutes int) ([]models.ScheduleEntry, error) {
	reqBody := dto.GetTimesRequest{
		EstablishmentID: establishmentID,
		Duration:        durationMinutes,
		Date:            day.In(models.BusinessLocation()).Format("2006-01-02"),
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/get-times", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cookie", sessionCookieName+"="+session.SessionID)
	req.Header.Set("x-xsrf-token", session.CSRFToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: do request: %v", derr.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: unexpected status: %s", derr.ErrSourceUnavailable, resp.Status)
	}

	var blocks []dto.TimeBlock
	if err := json.NewDecoder(resp.Body).Decode(&blocks); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return mappers.ToScheduleEntries(blocks), nil
}

func trimCSRFPadding(token string) string {
	for strings.HasSuffix(token, csrfPaddingSuffix) {
		token = strings.TrimSuffix(token, csrfPaddingSuffix)
	}
	return token
}
