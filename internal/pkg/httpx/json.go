// Package httpx 是 HTTP 接口层共用的编解码辅助函数。
package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"storefront/internal/pkg/apperr"
)

const maxBodyBytes = 1 << 20

// ErrorBody 是错误响应体
type ErrorBody struct {
	Error  string              `json:"error"`
	Fields []apperr.FieldError `json:"fields,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError 输出错误。ExternalStoreError 只返回通用信息，不透出底层原因。
func WriteError(w http.ResponseWriter, status int, err error) {
	body := ErrorBody{Error: err.Error()}

	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		body.Fields = verr.Fields
	}
	if status >= http.StatusInternalServerError {
		body = ErrorBody{Error: "internal error, please try again later"}
	}
	WriteJSON(w, status, body)
}

// DecodeJSON 解析请求体，拒绝未知字段
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		verr := &apperr.ValidationError{}
		verr.Add("body", "invalid JSON: "+err.Error())
		return verr
	}
	return nil
}
