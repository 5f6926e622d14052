package daily

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/warren/pkg/model"
	"github.com/m-mizutani/warren/pkg/tool"
)

const defaultWeatherBaseURL = "https://api.openweathermap.org/data/2.5"

var weatherInPattern = regexp.MustCompile(`(?i)^what(?:'s| is) the weather (?:like )?in (.+?)\??$`)

// Weather fetches current conditions from OpenWeatherMap.
type Weather struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type WeatherOption func(*Weather)

func WithWeatherBaseURL(u string) WeatherOption {
	return func(x *Weather) {
		x.baseURL = u
	}
}

func WithWeatherClient(c *http.Client) WeatherOption {
	return func(x *Weather) {
		x.client = c
	}
}

func NewWeather(apiKey string, opts ...WeatherOption) *Weather {
	x := &Weather{
		apiKey:  apiKey,
		baseURL: defaultWeatherBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

func (x *Weather) Name() string {
	return "weather"
}

func (x *Weather) Description() string {
	return "Current weather for a city: 'weather London' or 'what is the weather in Tokyo'"
}

func (x *Weather) Schema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"city": {Type: "string", Description: "City name"},
		},
		Required: []string{"city"},
	}
}

func (x *Weather) Match(utterance string) (tool.Args, bool) {
	return tool.MatchRules([]tool.Rule{
		tool.PrefixRule{Prefix: "weather in", ArgKey: "city"},
		tool.PrefixRule{Prefix: "weather", ArgKey: "city"},
		tool.RegexpRule{Pattern: weatherInPattern, Keys: []string{"city"}},
	}, utterance)
}

type weatherResponse struct {
	Name    string `json:"name"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

func (x *Weather) Execute(ctx context.Context, args tool.Args) *model.Result {
	if x.apiKey == "" {
		return model.NewErrorResult(x.Name(), model.ErrorKindExecution,
			goerr.New("weather API key is not configured"))
	}

	endpoint := fmt.Sprintf("%s/weather?q=%s&appid=%s&units=metric",
		x.baseURL, url.QueryEscape(args["city"]), url.QueryEscape(x.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindExecution,
			goerr.Wrap(err, "failed to build weather request"))
	}

	resp, err := x.client.Do(req)
	if err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindExecution,
			goerr.Wrap(err, "weather request failed"))
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return model.NewErrorResult(x.Name(), model.ErrorKindNotFound,
			goerr.New("city not found", goerr.V("city", args["city"])))
	case http.StatusUnauthorized:
		return model.NewErrorResult(x.Name(), model.ErrorKindExecution,
			goerr.New("weather API rejected the key"))
	default:
		return model.NewErrorResult(x.Name(), model.ErrorKindExecution,
			goerr.New("unexpected weather API status", goerr.V("status", resp.StatusCode)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindExecution,
			goerr.Wrap(err, "failed to read weather response"))
	}

	var data weatherResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindExecution,
			goerr.Wrap(err, "failed to parse weather response"))
	}

	description := "unknown"
	if len(data.Weather) > 0 {
		description = data.Weather[0].Description
	}

	return model.NewResult(x.Name(), fmt.Sprintf(
		"Weather in %s: %s, %.1f°C (feels like %.1f°C), humidity %d%%, wind %.1f m/s",
		data.Name, description, data.Main.Temp, data.Main.FeelsLike,
		data.Main.Humidity, data.Wind.Speed))
}
