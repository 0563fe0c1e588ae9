// Package api exposes the historical candle query surface over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	candleDomain "github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/domain/candle"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/metrics"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/errors"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/logger"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/timeframe"
)

// CandleRow is one candle in the wire response. Timestamps are epoch
// milliseconds of the bucket start.
type CandleRow struct {
	T  int64   `json:"t"`
	O  float64 `json:"o"`
	H  float64 `json:"h"`
	L  float64 `json:"l"`
	C  float64 `json:"c"`
	V  float64 `json:"v"`
	VF float64 `json:"vf"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler serves the historical candle endpoints.
type Handler struct {
	usecase candleDomain.Usecase
	logger  logger.Interface
	metrics *metrics.Metrics
}

// NewHandler creates an API handler.
func NewHandler(usecase candleDomain.Usecase, m *metrics.Metrics, log logger.Interface) *Handler {
	return &Handler{
		usecase: usecase,
		logger:  log,
		metrics: m,
	}
}

// Register mounts the handler's routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/candles", h.GetCandles)
	mux.HandleFunc("/healthz", h.Healthz)
}

// GetCandles answers GET /api/v1/candles.
//
// Query parameters: symbol (required), exchange, timeframe (default 1m),
// from/to (epoch milliseconds), limit.
func (h *Handler) GetCandles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	req, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	candles, err := h.usecase.Query(r.Context(), req)
	h.metrics.QueryDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		switch {
		case errors.ErrorCodeEquals(err, errors.InvalidArgument):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.ErrorCodeEquals(err, errors.DataUnavailable):
			writeError(w, http.StatusInternalServerError, string(errors.DBQueryFailed))
		default:
			h.logger.Error(errors.TracerFromError(err))
			writeError(w, http.StatusInternalServerError, string(errors.GeneralInternalServerError))
		}
		return
	}

	rows := make([]CandleRow, 0, len(candles))
	for _, c := range candles {
		rows = append(rows, CandleRow{
			T:  c.BucketStart.UnixMilli(),
			O:  c.Open,
			H:  c.High,
			L:  c.Low,
			C:  c.Close,
			V:  c.Volume,
			VF: c.FinancialVolume,
		})
	}

	writeJSON(w, http.StatusOK, rows)
}

// Healthz answers liveness probes.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func parseQuery(r *http.Request) (candleDomain.QueryRequest, error) {
	q := r.URL.Query()

	req := candleDomain.QueryRequest{
		Symbol:   q.Get("symbol"),
		Exchange: q.Get("exchange"),
	}

	tfName := q.Get("timeframe")
	if tfName == "" {
		tfName = "1m"
	}
	tf, err := timeframe.Parse(tfName)
	if err != nil {
		return req, errors.NewErrorDetails("unsupported timeframe", string(errors.InvalidArgument), "timeframe")
	}
	req.Timeframe = tf

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return req, errors.NewErrorDetails("limit must be an integer", string(errors.InvalidArgument), "limit")
		}
		req.Limit = limit
	}

	if raw := q.Get("from"); raw != "" {
		from, err := parseEpochMilli(raw)
		if err != nil {
			return req, errors.NewErrorDetails("from must be epoch milliseconds", string(errors.InvalidArgument), "from")
		}
		req.From = &from
	}

	if raw := q.Get("to"); raw != "" {
		to, err := parseEpochMilli(raw)
		if err != nil {
			return req, errors.NewErrorDetails("to must be epoch milliseconds", string(errors.InvalidArgument), "to")
		}
		req.To = &to
	}

	return req, nil
}

func parseEpochMilli(raw string) (time.Time, error) {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
