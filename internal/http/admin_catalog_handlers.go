package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/emryou/solar-log-hub/internal/domain"
	"github.com/emryou/solar-log-hub/internal/service"
)

// CatalogHandler 设备/传感器/解码配置管理
type CatalogHandler struct {
	catalog *service.CatalogService
	logger  *zap.Logger
}

func NewCatalogHandler(catalog *service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

// Devices 处理 /admin/api/v1/devices 与 /admin/api/v1/devices/{id}[/sensors]
func (h *CatalogHandler) Devices(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/admin/api/v1/devices")
	path = strings.TrimPrefix(path, "/")

	switch {
	case path == "":
		switch r.Method {
		case http.MethodGet:
			h.listDevices(w, r)
		case http.MethodPost:
			h.createDevice(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case strings.HasSuffix(path, "/sensors"):
		deviceID := strings.TrimSuffix(path, "/sensors")
		switch r.Method {
		case http.MethodGet:
			h.listSensors(w, r, deviceID)
		case http.MethodPost:
			h.createSensor(w, r, deviceID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	default:
		switch r.Method {
		case http.MethodGet:
			h.getDevice(w, r, path)
		case http.MethodDelete:
			h.deleteDevice(w, r, path)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

// Sensors 处理 /admin/api/v1/sensors/{id}[/decoding]
func (h *CatalogHandler) Sensors(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/admin/api/v1/sensors")
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if strings.HasSuffix(path, "/decoding") {
		sensorID := strings.TrimSuffix(path, "/decoding")
		switch r.Method {
		case http.MethodGet:
			h.getDecoding(w, r, sensorID)
		case http.MethodPut:
			h.setDecoding(w, r, sensorID)
		case http.MethodDelete:
			h.deleteDecoding(w, r, sensorID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getSensor(w, r, path)
	case http.MethodPut:
		h.updateSensor(w, r, path)
	case http.MethodDelete:
		h.deleteSensor(w, r, path)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *CatalogHandler) listDevices(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.ListDevices(r.Context(), tenantScope(r))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]any, 0, len(items))
	for _, d := range items {
		out = append(out, d.ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": out, "total": len(out)}))
}

func (h *CatalogHandler) createDevice(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		OrgID       string `json:"org_id"`
		DeviceName  string `json:"device_name"`
		Address     string `json:"address"`
		Description string `json:"description"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	// 非 admin 只能在本租户下建设备
	if scope := tenantScope(r); scope != "" {
		payload.OrgID = scope
	}
	dev, err := h.catalog.CreateDevice(r.Context(), payload.OrgID, payload.DeviceName, payload.Address, payload.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	h.logger.Info("device created", zap.String("device_name", dev.DeviceName))
	writeJSON(w, http.StatusOK, Ok(dev.ToJSON()))
}

// deviceInScope 租户范围检查：范围外的设备按不存在处理
func (h *CatalogHandler) deviceInScope(r *http.Request, deviceID string) (*domain.Device, error) {
	dev, err := h.catalog.GetDevice(r.Context(), deviceID)
	if err != nil {
		return nil, err
	}
	if scope := tenantScope(r); scope != "" && dev.OrgID != scope {
		return nil, &domain.NotFoundError{Resource: "device", Key: deviceID}
	}
	return dev, nil
}

func (h *CatalogHandler) getDevice(w http.ResponseWriter, r *http.Request, deviceID string) {
	dev, err := h.deviceInScope(r, deviceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(dev.ToJSON()))
}

func (h *CatalogHandler) deleteDevice(w http.ResponseWriter, r *http.Request, deviceID string) {
	if _, err := h.deviceInScope(r, deviceID); err != nil {
		writeError(w, err)
		return
	}
	if err := h.catalog.DeleteDevice(r.Context(), deviceID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"device_id": deviceID, "deleted": true}))
}

func (h *CatalogHandler) listSensors(w http.ResponseWriter, r *http.Request, deviceID string) {
	if _, err := h.deviceInScope(r, deviceID); err != nil {
		writeError(w, err)
		return
	}
	items, err := h.catalog.ListSensors(r.Context(), deviceID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]any, 0, len(items))
	for _, s := range items {
		out = append(out, s.ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": out, "total": len(out)}))
}

func (h *CatalogHandler) createSensor(w http.ResponseWriter, r *http.Request, deviceID string) {
	var payload struct {
		SensorName string `json:"sensor_name"`
		SensorType string `json:"sensor_type"`
		Unit       string `json:"unit"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	if _, err := h.deviceInScope(r, deviceID); err != nil {
		writeError(w, err)
		return
	}
	sensor, err := h.catalog.CreateSensor(r.Context(), deviceID, payload.SensorName, payload.SensorType, payload.Unit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(sensor.ToJSON()))
}

// sensorInScope 传感器归属检查（经由设备归属）
func (h *CatalogHandler) sensorInScope(r *http.Request, sensorID string) (*domain.Sensor, error) {
	sensor, err := h.catalog.GetSensor(r.Context(), sensorID)
	if err != nil {
		return nil, err
	}
	if _, err := h.deviceInScope(r, sensor.DeviceID); err != nil {
		return nil, &domain.NotFoundError{Resource: "sensor", Key: sensorID}
	}
	return sensor, nil
}

func (h *CatalogHandler) getSensor(w http.ResponseWriter, r *http.Request, sensorID string) {
	sensor, err := h.sensorInScope(r, sensorID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(sensor.ToJSON()))
}

func (h *CatalogHandler) updateSensor(w http.ResponseWriter, r *http.Request, sensorID string) {
	sensor, err := h.sensorInScope(r, sensorID)
	if err != nil {
		writeError(w, err)
		return
	}
	var payload struct {
		SensorName *string `json:"sensor_name"`
		SensorType *string `json:"sensor_type"`
		Unit       *string `json:"unit"`
		Active     *bool   `json:"active"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	if payload.SensorName != nil {
		sensor.SensorName = *payload.SensorName
	}
	if payload.SensorType != nil {
		sensor.SensorType = *payload.SensorType
	}
	if payload.Unit != nil {
		sensor.Unit = *payload.Unit
	}
	if payload.Active != nil {
		sensor.Active = *payload.Active
	}
	if err := h.catalog.UpdateSensor(r.Context(), sensor); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(sensor.ToJSON()))
}

func (h *CatalogHandler) deleteSensor(w http.ResponseWriter, r *http.Request, sensorID string) {
	if _, err := h.sensorInScope(r, sensorID); err != nil {
		writeError(w, err)
		return
	}
	if err := h.catalog.DeleteSensor(r.Context(), sensorID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"sensor_id": sensorID, "deleted": true}))
}

func (h *CatalogHandler) getDecoding(w http.ResponseWriter, r *http.Request, sensorID string) {
	if _, err := h.sensorInScope(r, sensorID); err != nil {
		writeError(w, err)
		return
	}
	cfg, err := h.catalog.GetDecodingConfig(r.Context(), sensorID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(cfg.ToJSON()))
}

func (h *CatalogHandler) setDecoding(w http.ResponseWriter, r *http.Request, sensorID string) {
	if _, err := h.sensorInScope(r, sensorID); err != nil {
		writeError(w, err)
		return
	}
	payload := struct {
		RegisterAddress int     `json:"register_address"`
		RegisterKind    string  `json:"register_kind"`
		Encoding        string  `json:"encoding"`
		Scale           float64 `json:"scale"`
		Offset          float64 `json:"offset"`
	}{Scale: 1.0, Offset: 0.0}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	cfg, err := h.catalog.SetDecodingConfig(r.Context(), sensorID,
		payload.RegisterAddress, payload.RegisterKind, payload.Encoding, payload.Scale, payload.Offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(cfg.ToJSON()))
}

func (h *CatalogHandler) deleteDecoding(w http.ResponseWriter, r *http.Request, sensorID string) {
	if _, err := h.sensorInScope(r, sensorID); err != nil {
		writeError(w, err)
		return
	}
	if err := h.catalog.DeleteDecodingConfig(r.Context(), sensorID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"sensor_id": sensorID, "decoding_deleted": true}))
}
