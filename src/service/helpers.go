package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/mosaicnetworks/attest/src/common"
	"github.com/mosaicnetworks/attest/src/ledger"
)

// ErrorResponse is the body of every error answer. Code is the ledger error
// name when the request was rejected by the ledger.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Service) writeError(w http.ResponseWriter, status int, err error) {
	resp := ErrorResponse{Error: err.Error()}
	if t, ok := ledger.TypeOf(err); ok {
		resp.Code = t.Name()
	}

	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).Error("Request failed")
	} else {
		s.logger.WithError(err).Debug("Bad request")
	}

	writeJSON(w, status, resp)
}

// statusOf maps ledger and store errors to HTTP statuses.
func statusOf(err error) int {
	switch {
	case common.IsStore(err, common.KeyNotFound),
		ledger.Is(err, ledger.InvalidMessageID):
		return http.StatusNotFound
	case ledger.Is(err, ledger.MalformedSignature),
		ledger.Is(err, ledger.MalformedText):
		return http.StatusBadRequest
	case ledger.IsRejection(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func uintVar(r *http.Request, name string) (uint64, error) {
	v, err := strconv.ParseUint(mux.Vars(r)[name], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", name, err)
	}
	return v, nil
}

func uintQuery(r *http.Request, name string) (uint64, error) {
	param := r.URL.Query().Get(name)
	if param == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(param, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", name, err)
	}
	return v, nil
}

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

// pageParams reads ?from and ?limit. A missing limit means defaultPageSize.
func pageParams(r *http.Request) (uint64, int, error) {
	from, err := uintQuery(r, "from")
	if err != nil {
		return 0, 0, err
	}
	limit, err := uintQuery(r, "limit")
	if err != nil {
		return 0, 0, err
	}
	switch {
	case limit == 0:
		limit = defaultPageSize
	case limit > maxPageSize:
		limit = maxPageSize
	}
	return from, int(limit), nil
}

func readBody(r *http.Request) ([]byte, error) {
	raw, err := ioutil.ReadAll(io.LimitReader(r.Body, maxTxSize+1))
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("empty body")
	}
	if len(raw) > maxTxSize {
		return nil, fmt.Errorf("body larger than %d bytes", maxTxSize)
	}
	return raw, nil
}

func decodeBody(r *http.Request, v interface{}) error {
	raw, err := readBody(r)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
