package unit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/route-forecast/internal/domain/forecast"
	"github.com/yanqian/route-forecast/internal/domain/routeplanner"
	"github.com/yanqian/route-forecast/internal/infra/forecastcache"
	"github.com/yanqian/route-forecast/internal/infra/itineraryarchive"
	"github.com/yanqian/route-forecast/internal/infra/itineraryrepo"
	"github.com/yanqian/route-forecast/internal/infra/openweather"
	apperrors "github.com/yanqian/route-forecast/pkg/errors"
)

const owner = "chat-1001"

func TestRouteConversationAgainstOpenWeather(t *testing.T) {
	upstream := newFakeOpenWeather(t)
	gateway := newLocalGateway(upstream.URL)
	repo := itineraryrepo.NewMemoryRepository()
	archive := itineraryarchive.NewMemoryArchive("itineraries")
	svc := routeplanner.NewService(routeplanner.Config{FetchTimeout: 2 * time.Second}, routeplanner.NewRegistry(4), gateway, repo, archive, newTestLogger())

	reply := handle(t, svc, routeplanner.Event{OwnerID: owner, Text: "/weather"})
	require.Equal(t, routeplanner.StageAwaitingDayCount, reply.Stage)

	reply = handle(t, svc, routeplanner.Event{OwnerID: owner, Choice: "2"})
	require.Equal(t, routeplanner.StageAwaitingDeparture, reply.Stage)

	reply = handle(t, svc, routeplanner.Event{OwnerID: owner, Text: "Paris"})
	require.Equal(t, routeplanner.StageAwaitingDestination, reply.Stage)

	reply = handle(t, svc, routeplanner.Event{OwnerID: owner, Text: "Atlantis"})
	require.Equal(t, routeplanner.StageAwaitingDestination, reply.Stage)
	require.True(t, apperrors.IsCode(reply.Rejection, apperrors.CodeCityNotFound))

	reply = handle(t, svc, routeplanner.Event{OwnerID: owner, Text: "Oslo"})
	require.Equal(t, routeplanner.StageAwaitingConfirmation, reply.Stage)

	reply = handle(t, svc, routeplanner.Event{OwnerID: owner, Choice: routeplanner.ChoiceAddStop})
	require.Equal(t, routeplanner.StageAwaitingExtraStop, reply.Stage)

	reply = handle(t, svc, routeplanner.Event{OwnerID: owner, Text: "paris"})
	require.True(t, apperrors.IsCode(reply.Rejection, apperrors.CodeDuplicateStop))

	reply = handle(t, svc, routeplanner.Event{OwnerID: owner, Text: "Berlin"})
	require.Equal(t, routeplanner.StageAwaitingConfirmation, reply.Stage)
	require.True(t, strings.HasPrefix(reply.Directive.Text, "City added!"))

	reply = handle(t, svc, routeplanner.Event{OwnerID: owner, Choice: routeplanner.ChoiceConfirm})
	require.Equal(t, routeplanner.StageIdle, reply.Stage)
	text := reply.Directive.Text
	paris, berlin, oslo := strings.Index(text, "1. Paris"), strings.Index(text, "2. Berlin"), strings.Index(text, "3. Oslo")
	require.True(t, paris >= 0 && berlin > paris && oslo > berlin, text)
	require.Equal(t, 6, strings.Count(text, "Temperature:"))
	require.Equal(t, 2, strings.Count(text, "not the best choice for a walk"))
	require.Equal(t, int32(3), upstream.forecastCalls.Load())

	items, err := svc.Itineraries(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, []string{"Paris", "Berlin", "Oslo"}, stopCities(items[0]))
	_, ok := archive.Object(fmt.Sprintf("itineraries/%s/%s.json", owner, items[0].ID))
	require.True(t, ok)

	handle(t, svc, routeplanner.Event{OwnerID: owner, Text: "/weather"})
	handle(t, svc, routeplanner.Event{OwnerID: owner, Choice: "2"})
	reply = handle(t, svc, routeplanner.Event{OwnerID: owner, Text: "PARIS"})
	require.Equal(t, routeplanner.StageAwaitingDestination, reply.Stage)
	require.Equal(t, int32(3), upstream.forecastCalls.Load(), "cached forecast should be reused")
}

func TestRouteConversationSurfacesUpstreamOutage(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(upstream.Close)

	svc := routeplanner.NewService(routeplanner.Config{FetchTimeout: 2 * time.Second}, routeplanner.NewRegistry(4), newLocalGateway(upstream.URL), nil, nil, newTestLogger())
	handle(t, svc, routeplanner.Event{OwnerID: owner, Text: "/weather"})
	handle(t, svc, routeplanner.Event{OwnerID: owner, Choice: "1"})

	reply := handle(t, svc, routeplanner.Event{OwnerID: owner, Text: "Paris"})
	require.Equal(t, routeplanner.StageAwaitingDeparture, reply.Stage)
	require.True(t, apperrors.IsCode(reply.Rejection, apperrors.CodeServiceUnavailable))
}

type fakeOpenWeather struct {
	*httptest.Server
	forecastCalls atomic.Int32
}

// newFakeOpenWeather serves six UTC days of 3-hourly samples. Oslo is freezing, every other city is mild.
func newFakeOpenWeather(t *testing.T) *fakeOpenWeather {
	t.Helper()
	fake := &fakeOpenWeather{}
	coords := map[string]float64{"paris": 48.85, "berlin": 52.52, "oslo": 59.91}
	fake.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/geo/1.0/direct":
			q := r.URL.Query().Get("q")
			lat, ok := coords[strings.ToLower(q)]
			if !ok {
				_, _ = w.Write([]byte(`[]`))
				return
			}
			_ = json.NewEncoder(w).Encode([]map[string]any{{"name": q, "country": "EU", "lat": lat, "lon": 10.0}})
		case "/data/2.5/forecast":
			fake.forecastCalls.Add(1)
			temp := 18.0
			if r.URL.Query().Get("lat") == "59.91" {
				temp = -7.0
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"list": forecastList(temp)})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(fake.Close)
	return fake
}

func forecastList(temp float64) []map[string]any {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	var items []map[string]any
	for i := 0; i < 6*8; i++ {
		ts := start.Add(time.Duration(i) * 3 * time.Hour)
		items = append(items, map[string]any{
			"dt":     ts.Unix(),
			"dt_txt": ts.Format("2006-01-02 15:04:05"),
			"pop":    0.1,
			"main":   map[string]any{"temp": temp, "humidity": 60},
			"wind":   map[string]any{"speed": 3.5},
		})
	}
	return items
}

func newLocalGateway(baseURL string) forecast.Gateway {
	client := openweather.NewClient(openweather.Options{BaseURL: baseURL, APIKey: "test", Timeout: time.Second}, newTestLogger())
	return forecast.NewService(forecast.Config{CacheTTL: time.Minute}, client, client, forecastcache.NewMemoryStore(), newTestLogger())
}

func handle(t *testing.T, svc routeplanner.Service, ev routeplanner.Event) routeplanner.Reply {
	t.Helper()
	reply, err := svc.Handle(context.Background(), ev)
	require.NoError(t, err)
	return reply
}

func stopCities(it routeplanner.Itinerary) []string {
	out := make([]string, 0, len(it.Stops))
	for _, stop := range it.Stops {
		out = append(out, stop.City)
	}
	return out
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
