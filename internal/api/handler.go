package api

import (
	"encoding/json"
	"net/http"

	"github.com/babylonlabs-io/simple-staking/internal/types"
	"github.com/rs/zerolog/log"
)

type Result struct {
	Data   any
	Status int
}

func NewResult(data any) *Result {
	return &Result{Data: data, Status: http.StatusOK}
}

type handlerFunc func(r *http.Request) (*Result, *types.Error)

func registerHandler(handler handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := handler(r)
		if err != nil {
			if err.StatusCode >= http.StatusInternalServerError {
				log.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
			} else {
				log.Ctx(r.Context()).Debug().Err(err).Str("path", r.URL.Path).Msg("request rejected")
			}
			writeJSON(w, r, err.StatusCode, errorResponse(err))
			return
		}

		status := result.Status
		if status == 0 {
			status = http.StatusOK
		}
		writeJSON(w, r, status, result.Data)
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to write response")
	}
}

// decodeBody reads a JSON request body. The size limit is applied by the router.
func decodeBody(r *http.Request, v any) *types.Error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid request body: " + err.Error())
	}
	return nil
}
