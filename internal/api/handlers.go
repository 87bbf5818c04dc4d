package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"PriceScanner/internal/domain"
	"PriceScanner/internal/export"
)

const maxRequestBytes = 1 << 20

type queryRequest struct {
	ProductName string `json:"product_name"`
}

type queryResponse struct {
	Success bool           `json:"success"`
	Data    *domain.Report `json:"data,omitempty"`
	Origin  domain.Origin  `json:"origin,omitempty"`
	QueryID string         `json:"query_id,omitempty"`
	Error   string         `json:"error,omitempty"`
}

type downloadRequest struct {
	Data   *domain.Report `json:"data"`
	Format string         `json:"format"`
}

func (h *Handler) query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Please provide a valid product name")
		return
	}

	run := h.runner.Execute(r.Context(), req.ProductName)
	if run.Err != nil {
		status, msg := mapFailure(run)
		writeJSON(w, status, queryResponse{QueryID: run.ID, Error: msg})
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Success: true,
		Data:    run.Report,
		Origin:  run.Origin,
		QueryID: run.ID,
	})
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := decodeBody(w, r, &req); err != nil || req.Data == nil || req.Format == "" {
		writeError(w, http.StatusBadRequest, "Missing required parameters")
		return
	}

	format, err := export.ParseFormat(req.Format)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unsupported format")
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, *req.Data); err != nil {
		if h.logger != nil {
			h.logger.Error("download failed", "format", format, "error", err)
		}
		writeError(w, http.StatusInternalServerError, "Download failed")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(format, h.now())+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// mapFailure turns a failed run into a status code and user-facing message.
func mapFailure(run domain.QueryRun) (int, string) {
	switch run.Failure {
	case domain.FailureInvalidQuery:
		return http.StatusBadRequest, "Please provide a valid product name"
	case domain.FailureNoData:
		return http.StatusNotFound, "No product data found"
	case domain.FailureNoMatch:
		return http.StatusNotFound, "No matching products found"
	case domain.FailureConfiguration:
		return http.StatusInternalServerError, run.ErrorMessage
	default:
		return http.StatusInternalServerError, "Query failed, please try again"
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected trailing data")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, queryResponse{Error: message})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(message))
}
