package publish

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"newsreel/internal/services"
)

const (
	tokenURL = "https://oauth2.googleapis.com/token"
	authURL  = "https://accounts.google.com/o/oauth2/auth"
)

// Metadata describes the uploaded video.
type Metadata struct {
	Title       string
	Description string
	Tags        []string
	CategoryID  string
	Privacy     string
	Language    string
}

// Uploader posts a video file and returns its id.
type Uploader interface {
	Upload(ctx context.Context, path string, meta Metadata) (string, error)
}

// Credentials holds the OAuth client and refresh token.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// YouTubeOption customizes the client.
type YouTubeOption func(*YouTubeClient)

// WithEndpoint points the Data API at another base URL.
func WithEndpoint(endpoint string) YouTubeOption {
	return func(c *YouTubeClient) { c.endpoint = endpoint }
}

// WithTokenURL overrides the OAuth token endpoint.
func WithTokenURL(url string) YouTubeOption {
	return func(c *YouTubeClient) { c.tokenURL = url }
}

// WithBaseClient sets the HTTP client used for token refresh and uploads.
func WithBaseClient(client *http.Client) YouTubeOption {
	return func(c *YouTubeClient) { c.base = client }
}

// YouTubeClient uploads through the YouTube Data API v3 using a refresh
// token.
type YouTubeClient struct {
	creds    Credentials
	endpoint string
	tokenURL string
	base     *http.Client
}

// NewYouTubeClient constructs the uploader.
func NewYouTubeClient(creds Credentials, opts ...YouTubeOption) *YouTubeClient {
	c := &YouTubeClient{creds: creds, tokenURL: tokenURL, base: &http.Client{Timeout: 30 * time.Minute}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *YouTubeClient) service(ctx context.Context) (*youtube.Service, error) {
	if c.creds.ClientID == "" || c.creds.ClientSecret == "" || c.creds.RefreshToken == "" {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "authenticate", "client_id, client_secret and refresh_token are required", nil)
	}
	conf := &oauth2.Config{
		ClientID:     c.creds.ClientID,
		ClientSecret: c.creds.ClientSecret,
		Endpoint:     oauth2.Endpoint{AuthURL: authURL, TokenURL: c.tokenURL},
		Scopes:       []string{youtube.YoutubeUploadScope},
	}
	tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, c.base)
	// An expired token forces a refresh on the first request.
	source := conf.TokenSource(tokenCtx, &oauth2.Token{RefreshToken: c.creds.RefreshToken, Expiry: time.Now().Add(-time.Hour)})
	client := &http.Client{
		Timeout:   c.base.Timeout,
		Transport: &oauth2.Transport{Source: source, Base: c.base.Transport},
	}
	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "build client", "youtube service", err)
	}
	return svc, nil
}

// Upload sends path with meta and returns the new video id.
func (c *YouTubeClient) Upload(ctx context.Context, path string, meta Metadata) (string, error) {
	svc, err := c.service(ctx)
	if err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", services.Wrap(services.ErrMissingInput, stageName, "open video", path, err)
	}
	defer f.Close()

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:                meta.Title,
			Description:          meta.Description,
			Tags:                 meta.Tags,
			CategoryId:           meta.CategoryID,
			DefaultLanguage:      meta.Language,
			DefaultAudioLanguage: meta.Language,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           meta.Privacy,
			SelfDeclaredMadeForKids: false,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}
	call := svc.Videos.Insert([]string{"snippet", "status"}, video).
		Media(f, googleapi.ContentType("video/mp4"), googleapi.ChunkSize(googleapi.DefaultUploadChunkSize)).
		Context(ctx)
	uploaded, err := call.Do()
	if err != nil {
		return "", services.Wrap(services.ErrExternalService, stageName, "upload", fmt.Sprintf("insert %s", path), err)
	}
	if strings.TrimSpace(uploaded.Id) == "" {
		return "", services.Wrap(services.ErrExternalService, stageName, "upload", "response carried no video id", nil)
	}
	return uploaded.Id, nil
}

// WatchURL returns the public URL of a video id.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}
