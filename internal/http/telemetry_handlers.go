package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/emryou/solar-log-hub/internal/service"
)

// TelemetryHandler 遥测上报入口（设备自报身份，不经租户头）
type TelemetryHandler struct {
	ingest *service.IngestService
	logger *zap.Logger
}

func NewTelemetryHandler(ingest *service.IngestService, logger *zap.Logger) *TelemetryHandler {
	return &TelemetryHandler{ingest: ingest, logger: logger}
}

type submitRequest struct {
	DeviceName string            `json:"device_name"`
	Readings   []service.Reading `json:"readings"`
}

type submitSimpleRequest struct {
	DeviceName   string  `json:"device_name"`
	Radiation    float64 `json:"radiation"`
	Temperature1 float64 `json:"temperature1"`
	Temperature2 float64 `json:"temperature2"`
}

// Submit POST /data/api/v1/telemetry
// 富变体：命名读数列表，逐条对目录解析
func (h *TelemetryHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}

	accepted, err := h.ingest.Submit(r.Context(), req.DeviceName, req.Readings)
	if err != nil {
		h.logger.Warn("telemetry batch rejected",
			zap.String("device", req.DeviceName),
			zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"accepted": accepted}))
}

// SubmitSimple POST /data/api/v1/telemetry/simple
// 简单变体：radiation/temperature1/temperature2 三个固定字段
func (h *TelemetryHandler) SubmitSimple(w http.ResponseWriter, r *http.Request) {
	var req submitSimpleRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}

	accepted, err := h.ingest.SubmitSimple(r.Context(), req.DeviceName,
		req.Radiation, req.Temperature1, req.Temperature2)
	if err != nil {
		h.logger.Warn("telemetry batch rejected",
			zap.String("device", req.DeviceName),
			zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"accepted": accepted}))
}
