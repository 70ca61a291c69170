package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/emryou/solar-log-hub/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	// 兼容 Unix 秒
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC()
	}
	return time.Time{}
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// writeError 错误分类映射到 HTTP 状态码
func writeError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
	case domain.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, Fail(err.Error()))
	case domain.IsConflict(err):
		writeJSON(w, http.StatusConflict, Fail(err.Error()))
	case domain.IsConfiguration(err):
		writeJSON(w, http.StatusUnprocessableEntity, Fail(err.Error()))
	default:
		writeJSON(w, http.StatusInternalServerError, Fail(err.Error()))
	}
}

// 外部认证方通过请求头提供租户身份与角色
const (
	HeaderOrgID = "X-Org-ID"
	HeaderRole  = "X-Role"
)

// tenantScope 返回查询的租户范围：admin 角色不过滤（空串）
func tenantScope(r *http.Request) string {
	if r.Header.Get(HeaderRole) == domain.RoleAdmin {
		return ""
	}
	return r.Header.Get(HeaderOrgID)
}
