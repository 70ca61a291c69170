package httpapi

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/emryou/solar-log-hub/internal/domain"
	"github.com/emryou/solar-log-hub/internal/export"
	"github.com/emryou/solar-log-hub/internal/service"
)

// QueryHandler 历史查询与导出
type QueryHandler struct {
	query  *service.QueryService
	logger *zap.Logger
}

func NewQueryHandler(query *service.QueryService, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{query: query, logger: logger}
}

// Latest GET /data/api/v1/devices/{id}/latest
func (h *QueryHandler) Latest(w http.ResponseWriter, r *http.Request, deviceID string) {
	samples, err := h.query.Latest(r.Context(), tenantScope(r), deviceID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]any, 0, len(samples))
	for _, sp := range samples {
		out = append(out, sp.ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": out}))
}

func filterFromQuery(r *http.Request) domain.SampleFilter {
	q := r.URL.Query()
	return domain.SampleFilter{
		DeviceID: q.Get("device_id"),
		SensorID: q.Get("sensor_id"),
		Start:    parseTime(q.Get("start")),
		End:      parseTime(q.Get("end")),
		Limit:    parseInt(q.Get("limit"), 0),
	}
}

// Range GET /data/api/v1/samples
func (h *QueryHandler) Range(w http.ResponseWriter, r *http.Request) {
	samples, err := h.query.Range(r.Context(), tenantScope(r), filterFromQuery(r))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]any, 0, len(samples))
	for _, sp := range samples {
		out = append(out, sp.ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": out, "total": len(out)}))
}

// Statistics GET /data/api/v1/samples/statistics
func (h *QueryHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.query.Statistics(r.Context(), tenantScope(r), filterFromQuery(r))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]any, 0, len(stats))
	for _, st := range stats {
		out = append(out, map[string]any{
			"sensor_id":   st.SensorID,
			"sensor_name": st.SensorName,
			"count":       st.Count,
			"min":         st.Min,
			"max":         st.Max,
			"avg":         st.Avg,
		})
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": out}))
}

// Export GET /data/api/v1/samples/export?format=csv|xlsx
// 导出走无上限范围查询
func (h *QueryHandler) Export(w http.ResponseWriter, r *http.Request) {
	samples, err := h.query.RangeUnbounded(r.Context(), tenantScope(r), filterFromQuery(r))
	if err != nil {
		writeError(w, err)
		return
	}

	format := strings.ToLower(r.URL.Query().Get("format"))
	switch format {
	case "", "csv":
		data := export.GenerateCSV(samples)
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+export.CSVFilename(time.Now())+`"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	case "xlsx":
		data, err := export.GenerateXLSX(samples)
		if err != nil {
			h.logger.Error("xlsx export failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, Fail("export failed"))
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="`+export.XLSXFilename(time.Now())+`"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	default:
		writeJSON(w, http.StatusBadRequest, Fail("unknown export format: "+format))
	}
}
