package handlers

import (
	"errors"
	"net/http"

	"github.com/arjun7095/Chat-Application/models"
	"github.com/arjun7095/Chat-Application/signaling"
	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
)

var (
	json     = jsoniter.ConfigCompatibleWithStandardLibrary
	validate = validator.New(validator.WithRequiredStructEnabled())
)

// sendJSONError 統一發送 JSON 格式錯誤響應
func sendJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, models.ErrorResponse{Message: message})
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Str("module", "handlers").Msg("failed to write response")
	}
}

// decodeBody 解析並驗證請求內容，失敗時已寫出 400
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		log.Debug().Err(err).Str("module", "handlers").Msg("JSON decode error")
		sendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return false
	}
	if err := validate.Struct(v); err != nil {
		sendJSONError(w, validationMessage(err), http.StatusBadRequest)
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return "Invalid field: " + verrs[0].Field()
	}
	return "Invalid request payload"
}

// sendCoordinatorError 將 signaling 的錯誤分類轉成 HTTP 狀態碼
func sendCoordinatorError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, signaling.ErrNotFound):
		sendJSONError(w, "Room not found", http.StatusNotFound)
	case errors.Is(err, signaling.ErrDuplicateName):
		sendJSONError(w, "Room already exists", http.StatusConflict)
	case errors.Is(err, signaling.ErrForbidden):
		sendJSONError(w, "Only the room creator can delete the room", http.StatusForbidden)
	default:
		log.Error().Err(err).Str("module", "handlers").Str("action", action).Msg("request failed")
		sendJSONError(w, "Failed to "+action, http.StatusInternalServerError)
	}
}
