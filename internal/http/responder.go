package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/court-reservations/internal/application"
)

var (
	errBadRequestBody      = errors.New("無効なリクエスト形式です。")
	errInvalidID           = errors.New("無効な ID です。")
	errMissingSessionToken = errors.New("認証トークンを指定してください")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{ErrorCode: statusErrorCode(status), Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{
			ErrorCode: "VALIDATION_ERROR",
			Message:   "入力内容に誤りがあります。",
			Errors:    localizeValidationErrors(vErr),
		})
		return
	}

	var cErr *application.ConflictError
	if errors.As(err, &cErr) {
		ids := cErr.ConflictingIDs
		if ids == nil {
			ids = []int64{}
		}
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode:      "RESERVATION_CONFLICT",
			Message:        "指定された時間帯は既に予約されています。",
			ConflictingIDs: ids,
		})
		return
	}

	switch {
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{ErrorCode: "ALREADY_EXISTS", Message: "既に登録されています。"})
	case errors.Is(err, application.ErrEventFull):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{ErrorCode: "EVENT_FULL", Message: "イベントの定員に達しています。"})
	case errors.Is(err, application.ErrInvalidCredentials):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{ErrorCode: "AUTH_INVALID_CREDENTIALS", Message: "メールアドレスまたはパスワードが正しくありません"})
	case errors.Is(err, application.ErrAccountDisabled):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{ErrorCode: "AUTH_ACCOUNT_DISABLED", Message: "このアカウントは無効化されています。"})
	case errors.Is(err, application.ErrSessionExpired), errors.Is(err, application.ErrSessionRevoked):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{ErrorCode: "AUTH_SESSION_EXPIRED", Message: "セッションが無効です。再度ログインしてください。"})
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{ErrorCode: "AUTH_FORBIDDEN", Message: "この操作を実行する権限がありません。"})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{ErrorCode: "NOT_FOUND", Message: "指定されたリソースが見つかりません。"})
	default:
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{ErrorCode: "INTERNAL_ERROR", Message: "サーバー内部でエラーが発生しました。"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func statusErrorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "AUTH_REQUIRED"
	case http.StatusForbidden:
		return "AUTH_FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	default:
		return "INTERNAL_ERROR"
	}
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "リクエスト内容が正しくありません。"
	case http.StatusUnauthorized:
		return "認証が必要です。"
	case http.StatusForbidden:
		return "この操作を実行する権限がありません。"
	case http.StatusNotFound:
		return "指定されたリソースが見つかりません。"
	case http.StatusConflict:
		return "要求はリソースの現在の状態と競合しています。"
	default:
		return "サーバー内部でエラーが発生しました。"
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

func translateValidationMessage(message string) string {
	switch message {
	case "email is required":
		return "メールアドレスは必須です。"
	case "email is invalid":
		return "メールアドレスの形式が不正です。"
	case "full_name is required":
		return "氏名は必須です。"
	case "role must be one of customer, employee, manager":
		return "ロールは customer, employee, manager のいずれかを指定してください。"
	case "court_name is required":
		return "コート名は必須です。"
	case "court_type is required":
		return "コート種別は必須です。"
	case "capacity must be positive":
		return "収容人数は正の整数で指定してください。"
	case "hourly_rate must be a non-negative number":
		return "時間料金は 0 以上で指定してください。"
	case "court_id is required":
		return "コート ID は必須です。"
	case "court does not exist":
		return "指定されたコートは存在しません。"
	case "court is not available for booking":
		return "指定されたコートは現在予約を受け付けていません。"
	case "reservor_id is required":
		return "予約者 ID は必須です。"
	case "reservor does not exist":
		return "指定された予約者は存在しません。"
	case "rate must be a non-negative number":
		return "料金は 0 以上で指定してください。"
	case "start_date_time is required", "start and end are required":
		return "開始日時は必須です。"
	case "end_date_time is required":
		return "終了日時は必須です。"
	case "end_date_time must be after start_date_time":
		return "終了日時は開始日時より後である必要があります。"
	case "start_date_time must not be in the past":
		return "過去の日時は予約できません。"
	case "must be an RFC3339 timestamp with an explicit offset":
		return "タイムゾーン付きの RFC3339 形式で指定してください。"
	case "must be a date in YYYY-MM-DD format":
		return "YYYY-MM-DD 形式の日付を指定してください。"
	case "status must be one of Pending, Confirmed, Cancelled":
		return "ステータスは Pending, Confirmed, Cancelled のいずれかを指定してください。"
	case "status must be one of pending, in_progress, completed":
		return "ステータスは pending, in_progress, completed のいずれかを指定してください。"
	case "status transition is not allowed":
		return "このステータスには変更できません。"
	case "must be a positive integer":
		return "正の整数で指定してください。"
	case "to must be after from":
		return "終了日は開始日より後である必要があります。"
	case "title is required":
		return "タイトルは必須です。"
	case "max_participants must be positive":
		return "定員は正の整数で指定してください。"
	case "max_participants cannot drop below the current participant count":
		return "定員は現在の参加者数より少なくできません。"
	case "assigned_to is required":
		return "担当者は必須です。"
	case "assignee does not exist":
		return "指定された担当者は存在しません。"
	case "assignee is deactivated":
		return "指定された担当者は無効化されています。"
	case "tasks can only be assigned to staff":
		return "タスクはスタッフにのみ割り当てられます。"
	default:
		if strings.HasPrefix(message, "password must be at least ") {
			n := strings.TrimSuffix(strings.TrimPrefix(message, "password must be at least "), " characters")
			if _, err := strconv.Atoi(n); err == nil {
				return "パスワードは " + n + " 文字以上で指定してください。"
			}
		}
		return message
	}
}

type errorResponse struct {
	ErrorCode      string            `json:"error_code,omitempty"`
	Message        string            `json:"message"`
	Errors         map[string]string `json:"errors,omitempty"`
	ConflictingIDs []int64           `json:"conflicting_ids,omitempty"`
}

// fieldValidationError builds a ValidationError for request level parse failures.
func fieldValidationError(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &application.ValidationError{FieldErrors: fields}
}
