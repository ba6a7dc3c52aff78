package headhunter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/hh-interviewer/internal/interview"
)

const (
	apiURL    = "https://api.hh.ru"
	userAgent = "spigell/hh-interviewer (spigelly@gmail.com)"
	// Max value for search per page.
	perPage = "100"
)

// Client reads vacancies from the HeadHunter API and serves them to the
// interview engine as jobs. A token is optional for public vacancies.
type Client struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

var _ interview.JobLookup = (*Client)(nil)

func New(logger *zap.Logger, token string) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		token:  strings.TrimSpace(token),
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:    logger,
		UserAgent: userAgent,
	}
}

// Job fetches the vacancy and converts it. Unknown ids yield interview.ErrJobNotFound.
func (c *Client) Job(ctx context.Context, id string) (*interview.Job, error) {
	v, err := c.GetVacancy(ctx, id)
	if err != nil {
		return nil, err
	}
	job := v.Job()
	return &job, nil
}

func (c *Client) GetVacancy(ctx context.Context, id string) (*Vacancy, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, interview.ErrJobNotFound
	}

	var v Vacancy
	if err := c.getJSON(ctx, fmt.Sprintf("%s%s/%s", c.APIURL, SearchPath, url.PathEscape(id)), nil, &v); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: vacancy %s", interview.ErrJobNotFound, id)
		}
		return nil, fmt.Errorf("get vacancy %s: %w", id, err)
	}
	return &v, nil
}

func (c *Client) Search(ctx context.Context, params *SearchParams) (*Vacancies, error) {
	return c.search(ctx, params)
}
