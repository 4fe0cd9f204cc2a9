package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Aitbek01/arena-gauntlet/repositories"
	"github.com/Aitbek01/arena-gauntlet/services"
	"github.com/go-chi/chi/v5"
)

type jsonResponse map[string]interface{}

var (
	errInvalidLimit  = errors.New("limit must be between 1 and 500")
	errInvalidPeriod = errors.New("period must be a positive integer")
)

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case err.Error() == "http: request body too large":
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err)
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, message interface{}) {
	env := jsonResponse{"error": message}
	if err := writeJSON(w, status, env, nil); err != nil {
		slog.Error("write error response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("internal server error", slog.String("path", r.URL.Path), slog.Any("error", err))
	message := "the server encountered a problem and could not process your request"
	errorResponse(w, r, http.StatusInternalServerError, message)
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func notFoundResponse(w http.ResponseWriter, r *http.Request) {
	message := "the requested resource could not be found"
	errorResponse(w, r, http.StatusNotFound, message)
}

func conflictResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusConflict, message)
}

func unauthorizedResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusUnauthorized, message)
}

func forbiddenResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusForbidden, message)
}

func getIDFromURL(r *http.Request, param string) (int64, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid %s parameter", param)
	}
	return id, nil
}

// mapServiceErrorToHTTP translates service layer errors into HTTP responses.
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	var notReached *services.CheckpointNotReachedError

	switch {
	case errors.Is(err, repositories.ErrCompetitorNotFound),
		errors.Is(err, repositories.ErrRunNotFound),
		errors.Is(err, repositories.ErrPendingRunNotFound),
		errors.Is(err, repositories.ErrDuelNotFound),
		errors.Is(err, repositories.ErrRewardPolicyNotFound),
		errors.Is(err, services.ErrNoPendingRun):
		notFoundResponse(w, r)

	case errors.Is(err, services.ErrAlreadyQueued),
		errors.Is(err, services.ErrRunAlreadyPending),
		errors.Is(err, services.ErrDailyWindowUsed),
		errors.Is(err, repositories.ErrDuelNotPending),
		errors.Is(err, repositories.ErrPendingRunConflict):
		conflictResponse(w, r, err.Error())

	case errors.As(err, &notReached):
		// Retryable: the randomness round has not arrived yet.
		errorResponse(w, r, http.StatusConflict, jsonResponse{
			"message":        notReached.Error(),
			"required_round": notReached.Required,
			"current_round":  notReached.Current,
		})

	case errors.Is(err, services.ErrNotQueued),
		errors.Is(err, services.ErrCompetitorIneligible),
		errors.Is(err, services.ErrInvalidLoadout),
		errors.Is(err, services.ErrInvalidSkin),
		errors.Is(err, services.ErrQueueBelowThreshold),
		errors.Is(err, services.ErrInsufficientQueue),
		errors.Is(err, services.ErrWrongPhase),
		errors.Is(err, services.ErrRandomnessExpired),
		errors.Is(err, services.ErrDuelNotTimedOut),
		errors.Is(err, services.ErrInvalidRewardPercentages):
		badRequestResponse(w, r, err)

	case errors.Is(err, services.ErrNotOwner):
		forbiddenResponse(w, r, err.Error())

	default:
		serverErrorResponse(w, r, err)
	}
}
