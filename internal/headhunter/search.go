package headhunter

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

const (
	SearchPath = "/vacancies"
)

type SearchParams struct {
	Text string `yaml:"text"`
	// hhparam is custom tag for reflect. Please see below.
	Areas       []int    `hhparam:"area"`
	OrderBy     string   `yaml:"order_by" mapstructure:"order_by"`
	SearchField string   `yaml:"search_field" mapstructure:"search_field"`
	Schedules   []string `hhparam:"schedule"`
	PerPage     string   `yaml:"per_page" mapstructure:"per_page"`
	Experience  string   `yaml:"experience"`
	Period      uint     `yaml:"period"`
	// Limit caps the number of returned vacancies. It is not sent to the API.
	Limit int `hhparam:"-"`
}

func (c *Client) search(ctx context.Context, params *SearchParams) (*Vacancies, error) {
	var vacancies []*Vacancy

	p := *params
	if p.PerPage == "" {
		p.PerPage = perPage
		if p.Limit > 0 && p.Limit < 100 {
			p.PerPage = strconv.Itoa(p.Limit)
		}
	}

	q := buildParams(&p)
	apiURLSearch := fmt.Sprintf("%s%s", c.APIURL, SearchPath)

	items, err := c.GetItems(ctx, apiURLSearch, q, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("search vacancies: %w", err)
	}

	cfg := &mapstructure.DecoderConfig{
		Metadata: nil,
		Result:   &vacancies,
		TagName:  "json",
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(items); err != nil {
		return nil, fmt.Errorf("decode vacancies: %w", err)
	}

	return &Vacancies{
		Items: vacancies,
	}, nil
}

// buildParams turns SearchParams into query values. The hhparam tag names the
// API parameter and falls back to the yaml tag; "-" skips the field. Zero
// scalars are omitted and slices become repeated parameters.
func buildParams(params *SearchParams) url.Values {
	q := url.Values{}
	v := reflect.ValueOf(params).Elem()

	for _, field := range reflect.VisibleFields(v.Type()) {
		key, ok := field.Tag.Lookup("hhparam")
		if !ok {
			key = field.Tag.Get("yaml")
		}
		if key == "-" || key == "" {
			continue
		}

		value := v.FieldByIndex(field.Index)
		if value.Kind() == reflect.Slice {
			for i := 0; i < value.Len(); i++ {
				q.Add(key, fmt.Sprint(value.Index(i).Interface()))
			}
			continue
		}
		if value.IsZero() {
			continue
		}
		q.Set(key, fmt.Sprint(value.Interface()))
	}

	return q
}
