// Spotify API implementation of [Service]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/machinemessiah/tagify-sub000/internal/metrics"
	"github.com/machinemessiah/tagify-sub000/internal/models"
	"github.com/machinemessiah/tagify-sub000/internal/shared"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	defaultRedirectURI  = "http://localhost:8080/callback"
	defaultRateInterval = 100 * time.Millisecond

	// Spotify caps playlist-track pages at 100 and batch track lookups at 50.
	defaultPageSize = 100
	tracksBatchSize = 50
)

type spotifyError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	URI        string          `json:"uri"`
}

func (t SpotifyTrack) toModel() models.Track {
	track := models.Track{
		ID:       t.ID,
		Title:    t.Name,
		Album:    t.Album.Name,
		Duration: t.DurationMS,
	}
	if len(t.Artists) > 0 {
		track.Artist = t.Artists[0].Name
	}
	return track
}

// Members of removed or region-locked tracks come back with a null track, so
// the field is a pointer.
type playlistTrackItem struct {
	Track *SpotifyTrack `json:"track"`
}

type spotifyTrackPage struct {
	Items []playlistTrackItem `json:"items"`
	Next  *string             `json:"next"`
	Total int                 `json:"total"`
}

type spotifySimplePlaylist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type spotifyPlaylistPage struct {
	Items []spotifySimplePlaylist `json:"items"`
	Next  *string                 `json:"next"`
}

type spotifyAudioFeatures struct {
	Tempo float64 `json:"tempo"`
}

// SpotifyService implements [Service] and [OAuthService] for the Spotify Web
// API. Uses [oauth2] for authentication with automatic token refresh and a
// [rate.Limiter] to space out API calls.
type SpotifyService struct {
	config         *oauth2.Config
	tokenSource    oauth2.TokenSource
	onTokenRefresh func(*oauth2.Token)
	httpClient     *http.Client
	baseURL        string
	limiter        *rate.Limiter
	pageSize       int
	logger         *log.Logger
}

// NewSpotifyService creates a new Spotify service with the given OAuth2
// credentials. Call Authenticate before issuing API requests.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = defaultRedirectURI
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"playlist-read-private",
			"playlist-read-collaborative",
			"playlist-modify-public",
			"playlist-modify-private",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:     config,
		httpClient: http.DefaultClient,
		baseURL:    spotifyBaseURL,
		limiter:    rate.NewLimiter(rate.Every(defaultRateInterval), 1),
		pageSize:   defaultPageSize,
		logger:     shared.NewLogger(nil),
	}, nil
}

// Authenticate installs a token source from the credentials. Expects either a
// persisted token set ("access_token", optionally "refresh_token" and
// "token_expiry") or a fresh "auth_code" to exchange.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken, ok := credentials["access_token"]; ok && accessToken != "" {
		s.installToken(ctx, tokenFromCredentials(credentials))
		return nil
	}

	if authCode, ok := credentials["auth_code"]; ok && authCode != "" {
		token, err := s.config.Exchange(ctx, authCode)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
		}
		s.installToken(ctx, token)
		return nil
	}

	return fmt.Errorf("%w: access_token or auth_code required", shared.ErrMissingCredentials)
}

func (s *SpotifyService) installToken(ctx context.Context, token *oauth2.Token) {
	s.tokenSource = &refreshableTokenSource{
		source:   s.config.TokenSource(ctx, token),
		callback: s.onTokenRefresh,
	}
}

func tokenFromCredentials(credentials map[string]string) *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  credentials["access_token"],
		RefreshToken: credentials["refresh_token"],
		TokenType:    "Bearer",
	}
	if v := credentials["token_expiry"]; v != "" {
		if expiry, err := time.Parse(time.RFC3339, v); err == nil {
			token.Expiry = expiry
		}
	}
	return token
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// GetOAuthConfig exposes the OAuth2 configuration for the callback server.
func (s *SpotifyService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// Exchange trades an authorization code for a token set.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	return token, nil
}

// SetTokenRefreshCallback registers a function invoked with each new token the
// source produces, so the caller can persist it.
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.onTokenRefresh = fn
	if rts, ok := s.tokenSource.(*refreshableTokenSource); ok {
		rts.callback = fn
	}
}

// SetLogger replaces the service logger.
func (s *SpotifyService) SetLogger(logger *log.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetRateInterval overrides the minimum spacing between API calls.
func (s *SpotifyService) SetRateInterval(interval time.Duration) {
	if interval > 0 {
		s.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
}

// SetPageSize overrides the page length for membership fetches.
func (s *SpotifyService) SetPageSize(n int) {
	if n > 0 && n <= defaultPageSize {
		s.pageSize = n
	}
}

// doRequest performs an authenticated HTTP request against the Spotify API.
// Waits on the rate limiter before each attempt and retries once on a 429
// after honoring Retry-After.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	if s.tokenSource == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	token, err := s.tokenSource.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrTokenExpired, err)
	}

	var payload []byte
	if body != nil {
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reqBody)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+token.AccessToken)
		req.Header.Set("Content-Type", "application/json")

		call := callLabel(endpoint)
		start := time.Now()

		resp, err := s.httpClient.Do(req)
		metrics.RemoteCallDuration.WithLabelValues(call).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.RemoteCallsTotal.WithLabelValues(call, "error").Inc()
			return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}
		metrics.RemoteCallsTotal.WithLabelValues(call, strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode == http.StatusTooManyRequests && attempt == 0 {
			wait := retryAfter(resp)
			resp.Body.Close()
			s.logger.Warn("rate limited, backing off", "endpoint", endpoint, "wait", wait)

			select {
			case <-time.After(wait):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		return decodeResponse(resp, endpoint, result)
	}
}

func decodeResponse(resp *http.Response, endpoint string, result any) error {
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: status 401 from %s", shared.ErrTokenExpired, endpoint)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", shared.ErrRateLimited, endpoint)
	case resp.StatusCode == http.StatusNotFound && strings.HasPrefix(endpoint, "/playlists/"):
		return fmt.Errorf("%w: %s", shared.ErrCollectionNotFound, endpoint)
	default:
		var apiErr spotifyError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("%w: status %d from %s: %s", shared.ErrAPIRequest, resp.StatusCode, endpoint, apiErr.Error.Message)
		}
		return fmt.Errorf("%w: status %d from %s", shared.ErrAPIRequest, resp.StatusCode, endpoint)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Second
}

// callLabel reduces an endpoint to its first path segment, keeping the
// metric's call label low-cardinality.
func callLabel(endpoint string) string {
	path := endpoint
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	return path
}

func trackURI(itemKey string) string {
	return "spotify:track:" + itemKey
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Service interface implementation

// ListMembers returns every member key of a playlist in playlist order,
// following pagination until exhausted. Entries whose track is null
// (removed or unavailable) are skipped.
func (s *SpotifyService) ListMembers(ctx context.Context, collectionID string) ([]string, error) {
	endpoint := fmt.Sprintf("/playlists/%s/tracks?fields=items(track(id)),next,total&limit=%d", collectionID, s.pageSize)

	var members []string
	for {
		var page spotifyTrackPage
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if item.Track == nil || item.Track.ID == "" {
				continue
			}
			members = append(members, item.Track.ID)
		}

		if page.Next == nil || *page.Next == "" {
			break
		}
		endpoint = strings.TrimPrefix(*page.Next, s.baseURL)
	}

	return members, nil
}

// IsMember reports whether the item currently appears in the playlist.
func (s *SpotifyService) IsMember(ctx context.Context, itemKey, collectionID string) (bool, error) {
	members, err := s.ListMembers(ctx, collectionID)
	if err != nil {
		return false, err
	}

	for _, key := range members {
		if key == itemKey {
			return true, nil
		}
	}
	return false, nil
}

// AddMember appends the item to the playlist. Re-reads the membership first:
// when the item is already present the append is skipped and WasAdded is
// false, so repeated calls never create duplicates.
func (s *SpotifyService) AddMember(ctx context.Context, itemKey, collectionID string) (AddResult, error) {
	member, err := s.IsMember(ctx, itemKey, collectionID)
	if err != nil {
		return AddResult{}, err
	}
	if member {
		return AddResult{Success: true, WasAdded: false}, nil
	}

	body := map[string]any{"uris": []string{trackURI(itemKey)}}
	endpoint := fmt.Sprintf("/playlists/%s/tracks", collectionID)
	if err := s.doRequest(ctx, http.MethodPost, endpoint, body, nil); err != nil {
		return AddResult{}, err
	}

	return AddResult{Success: true, WasAdded: true}, nil
}

// RemoveMember removes the item from the playlist. The API deletes every
// occurrence of the track in one call. Returns false without issuing a delete
// when the item is not a member.
func (s *SpotifyService) RemoveMember(ctx context.Context, itemKey, collectionID string) (bool, error) {
	member, err := s.IsMember(ctx, itemKey, collectionID)
	if err != nil {
		return false, err
	}
	if !member {
		return false, nil
	}

	body := map[string]any{"tracks": []map[string]string{{"uri": trackURI(itemKey)}}}
	endpoint := fmt.Sprintf("/playlists/%s/tracks", collectionID)
	if err := s.doRequest(ctx, http.MethodDelete, endpoint, body, nil); err != nil {
		return false, err
	}

	return true, nil
}

// ListCollectionIDs returns the ids of every playlist the authenticated user
// has, following pagination.
func (s *SpotifyService) ListCollectionIDs(ctx context.Context) ([]string, error) {
	endpoint := "/me/playlists?limit=50"

	var ids []string
	for {
		var page spotifyPlaylistPage
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		for _, playlist := range page.Items {
			ids = append(ids, playlist.ID)
		}

		if page.Next == nil || *page.Next == "" {
			break
		}
		endpoint = strings.TrimPrefix(*page.Next, s.baseURL)
	}

	return ids, nil
}

// CreateCollection creates a private playlist for the authenticated user and
// returns its id.
func (s *SpotifyService) CreateCollection(ctx context.Context, name, description string) (string, error) {
	user, err := s.UserProfile(ctx)
	if err != nil {
		return "", err
	}

	body := map[string]any{"name": name, "description": description, "public": false}
	endpoint := fmt.Sprintf("/users/%s/playlists", user.ID)

	var created spotifySimplePlaylist
	if err := s.doRequest(ctx, http.MethodPost, endpoint, body, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("%w: create returned no playlist id", shared.ErrAPIRequest)
	}

	return created.ID, nil
}

// GetTrack retrieves a single track's metadata.
func (s *SpotifyService) GetTrack(ctx context.Context, itemKey string) (*models.Track, error) {
	var track SpotifyTrack
	if err := s.doRequest(ctx, http.MethodGet, "/tracks/"+itemKey, nil, &track); err != nil {
		return nil, err
	}

	t := track.toModel()
	return &t, nil
}

// GetTracks retrieves metadata for a batch of tracks, issuing one API call per
// 50 keys. Unknown keys come back null and are omitted from the result.
func (s *SpotifyService) GetTracks(ctx context.Context, itemKeys []string) ([]models.Track, error) {
	var tracks []models.Track

	for start := 0; start < len(itemKeys); start += tracksBatchSize {
		end := start + tracksBatchSize
		if end > len(itemKeys) {
			end = len(itemKeys)
		}

		endpoint := "/tracks?ids=" + url.QueryEscape(strings.Join(itemKeys[start:end], ","))

		var response struct {
			Tracks []*SpotifyTrack `json:"tracks"`
		}
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
			return nil, err
		}

		for _, t := range response.Tracks {
			if t == nil || t.ID == "" {
				continue
			}
			tracks = append(tracks, t.toModel())
		}
	}

	return tracks, nil
}

// GetTempo returns the track's tempo from Spotify's audio features, rounded
// to whole BPM. A zero tempo from the API maps to unset.
func (s *SpotifyService) GetTempo(ctx context.Context, itemKey string) (models.NullInt, error) {
	var features spotifyAudioFeatures
	if err := s.doRequest(ctx, http.MethodGet, "/audio-features/"+itemKey, nil, &features); err != nil {
		return models.NullInt{}, err
	}

	return models.IntFrom(int(math.Round(features.Tempo))), nil
}

// refreshableTokenSource wraps an [oauth2.TokenSource] and invokes a callback
// whenever the wrapped source produces a different access token, so refreshed
// tokens can be persisted before the process exits.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)
	mu       sync.Mutex
	last     string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	changed := token.AccessToken != r.last
	r.last = token.AccessToken
	r.mu.Unlock()

	if changed && r.callback != nil {
		func() {
			// a panicking callback does not fail the token fetch
			defer func() {
				_ = recover()
			}()
			r.callback(token)
		}()
	}

	return token, nil
}
