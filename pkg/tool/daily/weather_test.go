package daily_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/warren/pkg/model"
	"github.com/m-mizutani/warren/pkg/tool/daily"
)

func TestWeatherMatch(t *testing.T) {
	weather := daily.NewWeather("dummy")

	args, ok := weather.Match("weather London")
	gt.True(t, ok)
	gt.Equal(t, args["city"], "London")

	args, ok = weather.Match("what is the weather in Tokyo?")
	gt.True(t, ok)
	gt.Equal(t, args["city"], "Tokyo")

	args, ok = weather.Match("weather in New York")
	gt.True(t, ok)
	gt.Equal(t, args["city"], "New York")

	_, ok = weather.Match("weather")
	gt.True(t, !ok)
}

func TestWeatherExecute(t *testing.T) {
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.Equal(t, r.URL.Query().Get("q"), "London")
		gt.Equal(t, r.URL.Query().Get("appid"), "test-key")
		gt.Equal(t, r.URL.Query().Get("units"), "metric")
		w.Write([]byte(`{
			"name": "London",
			"weather": [{"description": "light rain"}],
			"main": {"temp": 12.3, "feels_like": 10.8, "humidity": 81},
			"wind": {"speed": 4.2}
		}`))
	}))
	defer server.Close()

	weather := daily.NewWeather("test-key", daily.WithWeatherBaseURL(server.URL))
	result := weather.Execute(ctx, map[string]string{"city": "London"})
	gt.True(t, result.OK())
	gt.S(t, result.Payload).Contains("London")
	gt.S(t, result.Payload).Contains("light rain")
	gt.S(t, result.Payload).Contains("12.3")
}

func TestWeatherCityNotFound(t *testing.T) {
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	weather := daily.NewWeather("test-key", daily.WithWeatherBaseURL(server.URL))
	result := weather.Execute(ctx, map[string]string{"city": "Atlantis"})
	gt.True(t, !result.OK())
	gt.Equal(t, result.Err.Kind, model.ErrorKindNotFound)
}

func TestWeatherWithoutKey(t *testing.T) {
	ctx := context.Background()

	weather := daily.NewWeather("")
	result := weather.Execute(ctx, map[string]string{"city": "London"})
	gt.True(t, !result.OK())
	gt.Equal(t, result.Err.Kind, model.ErrorKindExecution)
}
