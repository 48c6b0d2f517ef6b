package matchapi

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultAPIURL  = "http://localhost:8000/api/v1"
	DefaultTimeout = 30 * time.Second
	userAgent      = "jdh4601/closetbot"

	jobsPath    = "/analysis/jobs"
	healthPath  = "/health/"
	resultsPath = "results"
)

// Client talks to the analysis API. It holds no per-job state; every call is
// bounded by the caller's context and the HTTP client timeout.
type Client struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

func New(logger *zap.Logger, token string) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		token:  strings.TrimSpace(token),
		APIURL: DefaultAPIURL,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger:    logger,
		UserAgent: userAgent,
	}
}

func (c *Client) url(parts ...string) string {
	base := strings.TrimRight(c.APIURL, "/")
	return base + strings.Join(parts, "")
}
