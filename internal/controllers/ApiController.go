package controllers

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	json "github.com/goccy/go-json"
	"github.com/spf13/cast"
	"math"
	"net/http"
	"strconv"
	"streamwatch/internal/aggregation"
	"streamwatch/internal/models"
	"streamwatch/internal/producers"
	"streamwatch/internal/providers"
	"streamwatch/internal/services"
	"streamwatch/internal/statistic"
	"streamwatch/internal/storage"
	"time"
)

const maxRequestBodySize = 1 << 20 // 1 MB

const dateLayout = "2006-01-02"

// maxWindowHours bounds the group chart window to one year.
const maxWindowHours = 24 * 366

var errBadRequest = errors.New("bad request")

type ApiController struct {
	logger  providers.Logger
	service services.MonitorServiceInterface
	cache   providers.CacheProviderInterface
}

type groupRequest struct {
	Name string `json:"name"`
}

type channelRequest struct {
	GroupID           string `json:"group_id"`
	Platform          string `json:"platform"`
	PlatformChannelID string `json:"platform_channel_id"`
	DisplayName       string `json:"display_name"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewApiController(logger providers.Logger, service services.MonitorServiceInterface, cache providers.CacheProviderInterface) *ApiController {
	return &ApiController{
		logger:  logger,
		service: service,
		cache:   cache,
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, producers.ErrChannelNotFound):
		return http.StatusNotFound
	case errors.Is(err, statistic.ErrPollInProgress):
		return http.StatusConflict
	case errors.Is(err, errBadRequest),
		errors.Is(err, storage.ErrInvalidName),
		errors.Is(err, storage.ErrInvalidPlatform),
		errors.Is(err, services.ErrInvalidSample),
		errors.Is(err, aggregation.ErrUnknownRange),
		errors.Is(err, aggregation.ErrInvalidRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError answers with the status mapped from err. Internal errors are
// logged and their message is not sent to the client.
func writeError(logger providers.Logger, w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Errorf(providers.GetLogTypeByRequestType(r.Method), "%s %s: %s", r.Method, r.URL.Path, err)
		msg = "Internal Server Error"
	}
	gson, _ := json.Marshal(errorResponse{Error: msg})
	writeJSON(w, status, gson)
}

func (ac *ApiController) respond(w http.ResponseWriter, r *http.Request, status int, result any) {
	gson, err := json.Marshal(result)
	if err != nil {
		ac.fail(w, r, err)
		return
	}
	writeJSON(w, status, gson)
}

func (ac *ApiController) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(ac.logger, w, r, err)
}

func (ac *ApiController) serveFromCacheOrCompute(w http.ResponseWriter, r *http.Request, cacheKey string, compute func(ctx context.Context) (any, error)) {
	if data, ok := ac.cache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, data)
		return
	}

	result, err := compute(r.Context())
	if err != nil {
		ac.fail(w, r, err)
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		ac.fail(w, r, err)
		return
	}

	ac.cache.Set(cacheKey, gson)
	writeJSON(w, http.StatusOK, gson)
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s", errBadRequest, err)
	}
	return nil
}

func requireParam(r *http.Request, name string) (string, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return "", fmt.Errorf("%w: %s is required", errBadRequest, name)
	}
	return v, nil
}

func parseHistoryQuery(r *http.Request) (services.HistoryQuery, error) {
	q := r.URL.Query()
	hq := services.HistoryQuery{
		GroupID: q.Get("group"),
		Range:   aggregation.RangeKind(q.Get("range")),
		Start:   q.Get("start"),
		End:     q.Get("end"),
	}
	if at := q.Get("at"); at != "" {
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return hq, fmt.Errorf("%w: at: %s", errBadRequest, err)
		}
		hq.At = t
	}
	if date := q.Get("date"); date != "" {
		t, err := time.Parse(dateLayout, date)
		if err != nil {
			return hq, fmt.Errorf("%w: date: %s", errBadRequest, err)
		}
		hq.Date = t
	}
	return hq, nil
}

// mutated drops every cached response after a write.
func (ac *ApiController) mutated() {
	ac.cache.Clear()
}

func (ac *ApiController) Dashboard(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, r, "dashboard", func(ctx context.Context) (any, error) {
		return ac.service.Dashboard(ctx)
	})
}

func (ac *ApiController) ListGroups(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, r, "groups", func(ctx context.Context) (any, error) {
		return ac.service.ListGroups(ctx)
	})
}

func (ac *ApiController) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var payload groupRequest
	if err := decodeBody(w, r, &payload); err != nil {
		ac.fail(w, r, err)
		return
	}
	group, err := ac.service.CreateGroup(r.Context(), payload.Name)
	if err != nil {
		ac.fail(w, r, err)
		return
	}
	ac.mutated()
	ac.respond(w, r, http.StatusCreated, group)
}

func (ac *ApiController) RenameGroup(w http.ResponseWriter, r *http.Request) {
	id, err := requireParam(r, "id")
	if err != nil {
		ac.fail(w, r, err)
		return
	}
	var payload groupRequest
	if err = decodeBody(w, r, &payload); err != nil {
		ac.fail(w, r, err)
		return
	}
	group, err := ac.service.RenameGroup(r.Context(), id, payload.Name)
	if err != nil {
		ac.fail(w, r, err)
		return
	}
	ac.mutated()
	ac.respond(w, r, http.StatusOK, group)
}

func (ac *ApiController) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	id, err := requireParam(r, "id")
	if err != nil {
		ac.fail(w, r, err)
		return
	}
	if err = ac.service.DeleteGroup(r.Context(), id); err != nil {
		ac.fail(w, r, err)
		return
	}
	ac.mutated()
	w.WriteHeader(http.StatusNoContent)
}

func (ac *ApiController) ListChannels(w http.ResponseWriter, r *http.Request) {
	group := r.URL.Query().Get("group")
	ac.serveFromCacheOrCompute(w, r, "channels:"+group, func(ctx context.Context) (any, error) {
		return ac.service.ListChannels(ctx, group)
	})
}

func (ac *ApiController) CreateChannel(w http.ResponseWriter, r *http.Request) {
	var payload channelRequest
	if err := decodeBody(w, r, &payload); err != nil {
		ac.fail(w, r, err)
		return
	}
	ch, err := ac.service.CreateChannel(r.Context(), models.Channel{
		GroupID:           payload.GroupID,
		Platform:          models.Platform(payload.Platform),
		PlatformChannelID: payload.PlatformChannelID,
		DisplayName:       payload.DisplayName,
	})
	if err != nil {
		ac.fail(w, r, err)
		return
	}
	ac.mutated()
	ac.respond(w, r, http.StatusCreated, ch)
}

func (ac *ApiController) DeleteChannel(w http.ResponseWriter, r *http.Request) {
	id, err := requireParam(r, "id")
	if err != nil {
		ac.fail(w, r, err)
		return
	}
	if err = ac.service.DeleteChannel(r.Context(), id); err != nil {
		ac.fail(w, r, err)
		return
	}
	ac.mutated()
	w.WriteHeader(http.StatusNoContent)
}

func (ac *ApiController) GroupDetails(w http.ResponseWriter, r *http.Request) {
	id, err := requireParam(r, "id")
	if err != nil {
		ac.fail(w, r, err)
		return
	}
	var hours float64
	if raw := r.URL.Query().Get("hours"); raw != "" {
		hours, err = cast.ToFloat64E(raw)
		if err != nil || math.IsNaN(hours) || hours < 0 || hours > maxWindowHours {
			ac.fail(w, r, fmt.Errorf("%w: hours must be a number between 0 and %d", errBadRequest, maxWindowHours))
			return
		}
	}
	key := "group:" + id + ":" + strconv.FormatFloat(hours, 'f', -1, 64)
	ac.serveFromCacheOrCompute(w, r, key, func(ctx context.Context) (any, error) {
		return ac.service.GroupDetails(ctx, id, hours)
	})
}

func (ac *ApiController) History(w http.ResponseWriter, r *http.Request) {
	hq, err := parseHistoryQuery(r)
	if err != nil {
		ac.fail(w, r, err)
		return
	}
	ac.serveFromCacheOrCompute(w, r, "history:"+r.URL.RawQuery, func(ctx context.Context) (any, error) {
		return ac.service.History(ctx, hq)
	})
}

func (ac *ApiController) Export(w http.ResponseWriter, r *http.Request) {
	hq, err := parseHistoryQuery(r)
	if err != nil {
		ac.fail(w, r, err)
		return
	}
	format := r.URL.Query().Get("format")
	if format != "" && format != "csv" && format != "json" {
		ac.fail(w, r, fmt.Errorf("%w: unknown format %q", errBadRequest, format))
		return
	}

	rows, err := ac.service.Export(r.Context(), hq)
	if err != nil {
		ac.fail(w, r, err)
		return
	}

	if format == "json" {
		ac.respond(w, r, http.StatusOK, rows)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="viewer-history.csv"`)
	w.WriteHeader(http.StatusOK)
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"Channel", "Timestamp", "Viewers", "Peak", "Live"})
	for _, row := range rows {
		_ = cw.Write([]string{
			row.ChannelName,
			row.Timestamp.Format(time.RFC3339),
			strconv.Itoa(row.Viewers),
			strconv.Itoa(row.Peak),
			strconv.FormatBool(row.IsLive),
		})
	}
	cw.Flush()
	if err = cw.Error(); err != nil {
		ac.logger.Warnf(providers.TypeGet, "Export write failed: %s", err)
	}
}

func (ac *ApiController) IngestSample(w http.ResponseWriter, r *http.Request) {
	var payload models.Sample
	if err := decodeBody(w, r, &payload); err != nil {
		ac.fail(w, r, err)
		return
	}
	sample, err := ac.service.IngestSample(r.Context(), payload)
	if err != nil {
		ac.fail(w, r, err)
		return
	}
	ac.mutated()
	ac.respond(w, r, http.StatusCreated, sample)
}
