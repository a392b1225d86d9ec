package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"remommender/internal/domain"
)

const (
	recommendPath     = "/recommend/from-speech"
	sessionStartPath  = "/session/start"
	sessionClearPath  = "/session/clear"
	sessionEndPath    = "/session/end"
	sessionPlayedPath = "/session/add-played-song"
)

// Client talks to the remommender REST backend. It keeps the backend's session cookie.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// NewClient creates a backend client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend base url %q: %w", baseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("backend base url %q must use http or https", baseURL)
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL: parsed,
		http:    &http.Client{Timeout: timeout, Jar: jar},
	}, nil
}

// AbsoluteURL resolves a backend-relative media or API path.
func (c *Client) AbsoluteURL(relative string) string {
	if relative == "" {
		return ""
	}
	if parsed, err := url.Parse(relative); err == nil && parsed.IsAbs() {
		return relative
	}
	return c.baseURL.String() + "/" + strings.TrimLeft(relative, "/")
}

// BuildQuery encodes the recommendation filters for one request.
func BuildQuery(s domain.RecommendationSettings) url.Values {
	q := url.Values{}
	q.Set("arousal_weight", formatFloat(s.ArousalWeight))
	q.Set("valence_weight", formatFloat(s.ValenceWeight))
	q.Set("invert_arousal", strconv.FormatBool(s.InvertArousal))
	q.Set("invert_valence", strconv.FormatBool(s.InvertValence))

	filters := []struct {
		name   string
		filter domain.Filter
	}{
		{"authenticity", s.Authenticity},
		{"timeliness", s.Timeliness},
		{"complexity", s.Complexity},
		{"danceability", s.Danceability},
		{"tonal", s.Tonal},
		{"voice", s.Voice},
		{"bpm", s.BPM},
	}
	for _, f := range filters {
		if f.filter.Enabled {
			q.Set(f.name, formatFloat(f.filter.Value))
		}
	}

	if s.GenreEnabled && s.Genre != nil {
		q.Set("genre", *s.Genre)
	}
	return q
}

type recommendResponse struct {
	Song              *domain.Song            `json:"song"`
	Features          *domain.EmotionFeatures `json:"features"`
	SpeechFeatures    *domain.EmotionFeatures `json:"speech_features"`
	SwitchProbability *float64                `json:"switch_probability"`
}

// RecommendFromSpeech uploads segment and returns the backend's recommendation.
func (c *Client) RecommendFromSpeech(ctx context.Context, segment domain.Segment, settings domain.RecommendationSettings) (domain.RefreshResult, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="speech.%s"`, segment.Format.Extension()))
	header.Set("Content-Type", segment.Format.String())
	part, err := writer.CreatePart(header)
	if err != nil {
		return domain.RefreshResult{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(segment.Data); err != nil {
		return domain.RefreshResult{}, fmt.Errorf("write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return domain.RefreshResult{}, fmt.Errorf("close multipart body: %w", err)
	}

	endpoint := c.endpoint(recommendPath, BuildQuery(settings))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return domain.RefreshResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	payload, err := c.do(req)
	if err != nil {
		return domain.RefreshResult{}, err
	}

	var decoded recommendResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return domain.RefreshResult{}, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	if decoded.Song == nil || decoded.Song.ID == "" {
		return domain.RefreshResult{}, fmt.Errorf("%w: response has no song", domain.ErrMalformedResponse)
	}

	result := domain.RefreshResult{Song: *decoded.Song}
	switch {
	case decoded.Features != nil:
		result.Features = *decoded.Features
	case decoded.SpeechFeatures != nil:
		result.Features = *decoded.SpeechFeatures
	}
	if decoded.SwitchProbability != nil {
		result.SwitchProbability = *decoded.SwitchProbability
	}
	return result, nil
}

func (c *Client) StartSession(ctx context.Context) error {
	return c.post(ctx, sessionStartPath, nil)
}

func (c *Client) ClearSession(ctx context.Context) error {
	return c.post(ctx, sessionClearPath, nil)
}

func (c *Client) EndSession(ctx context.Context) error {
	return c.post(ctx, sessionEndPath, nil)
}

// AddPlayedSong records a played song in the backend's no-repeat history.
func (c *Client) AddPlayedSong(ctx context.Context, songID string) error {
	return c.post(ctx, sessionPlayedPath, url.Values{"song_id": {songID}})
}

func (c *Client) post(ctx context.Context, path string, query url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, query), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	_, err = c.do(req)
	return err
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do executes req and returns the body of a 2xx response.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpload, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrUpload, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status, Detail: errorDetail(payload)}
	}
	return payload, nil
}

// StatusError is a non-2xx backend response.
type StatusError struct {
	Code   int
	Status string
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned %s", e.Status)
	}
	return fmt.Sprintf("backend returned %s: %s", e.Status, e.Detail)
}

// Unwrap classifies every backend status failure as an upload failure.
func (e *StatusError) Unwrap() error {
	return domain.ErrUpload
}

func errorDetail(payload []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(payload, &body); err != nil || len(body.Detail) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(body.Detail, &text); err == nil {
		return text
	}
	return string(body.Detail)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
