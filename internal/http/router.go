package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterTelemetryRoutes 遥测上报
func (r *Router) RegisterTelemetryRoutes(t *TelemetryHandler) {
	r.Handle("/data/api/v1/telemetry", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		t.Submit(w, req)
	})
	r.Handle("/data/api/v1/telemetry/simple", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		t.SubmitSimple(w, req)
	})
}

// RegisterQueryRoutes 历史查询、统计与导出
func (r *Router) RegisterQueryRoutes(q *QueryHandler) {
	// devices/{id}/latest
	r.Handle("/data/api/v1/devices/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		rest := strings.TrimPrefix(req.URL.Path, "/data/api/v1/devices/")
		if !strings.HasSuffix(rest, "/latest") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		deviceID := strings.TrimSuffix(rest, "/latest")
		if deviceID == "" || strings.Contains(deviceID, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		q.Latest(w, req, deviceID)
	})

	r.Handle("/data/api/v1/samples", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		q.Range(w, req)
	})
	r.Handle("/data/api/v1/samples/statistics", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		q.Statistics(w, req)
	})
	r.Handle("/data/api/v1/samples/export", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		q.Export(w, req)
	})
}

// RegisterLiveRoutes 实时订阅
func (r *Router) RegisterLiveRoutes(l *LiveHandler) {
	r.Handle("/data/api/v1/live", l.Subscribe)
}

// RegisterAdminRoutes 管理入口（租户/设备/传感器/配置）
func (r *Router) RegisterAdminRoutes(orgs *OrganizationsHandler, catalog *CatalogHandler, settings *SettingsHandler) {
	r.Handle("/admin/api/v1/organizations", orgs.ServeHTTP)
	r.Handle("/admin/api/v1/organizations/", orgs.ServeHTTP)

	r.Handle("/admin/api/v1/devices", catalog.Devices)
	r.Handle("/admin/api/v1/devices/", catalog.Devices)

	r.Handle("/admin/api/v1/sensors/", catalog.Sensors)

	r.Handle("/admin/api/v1/settings", settings.ServeHTTP)
	r.Handle("/admin/api/v1/settings/", settings.ServeHTTP)
}

// RegisterHealthRoutes 健康检查
func (r *Router) RegisterHealthRoutes() {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}
