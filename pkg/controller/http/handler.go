package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/lexiconnect/pkg/domain/model"
	"github.com/secmon-lab/lexiconnect/pkg/domain/types"
	"github.com/secmon-lab/lexiconnect/pkg/service/lexiconnect"
	"github.com/secmon-lab/lexiconnect/pkg/usecase"
	"github.com/secmon-lab/lexiconnect/pkg/utils/errutil"
	"github.com/secmon-lab/lexiconnect/pkg/utils/safe"
)

const maxRequestBody = 64 << 10

type caseUnreadResponse struct {
	CaseID       int64           `json:"case_id"`
	State        types.CaseState `json:"state"`
	LastSeen     string          `json:"last_seen,omitempty"`
	LastNotified string          `json:"last_notified,omitempty"`
	Dismissed    bool            `json:"dismissed"`
}

type unreadResponse struct {
	UnreadCaseIDs []int64              `json:"unread_case_ids"`
	Cases         []caseUnreadResponse `json:"cases"`
}

type itemResponse struct {
	Kind       types.ItemKind `json:"kind"`
	ID         int64          `json:"id"`
	CreatedAt  string         `json:"created_at"`
	Text       string         `json:"text"`
	AuthorName string         `json:"author_name,omitempty"`
	AuthorRole types.Role     `json:"author_role,omitempty"`
	DocTitle   string         `json:"doc_title,omitempty"`
	ReviewLink string         `json:"review_link,omitempty"`
	Changes    string         `json:"changes,omitempty"`
}

type conversationResponse struct {
	CaseID    int64          `json:"case_id"`
	Signature string         `json:"signature"`
	Latest    string         `json:"latest,omitempty"`
	Items     []itemResponse `json:"items"`
}

type readRequest struct {
	Timestamp string `json:"timestamp"`
}

type readResponse struct {
	CaseID   int64           `json:"case_id"`
	LastSeen string          `json:"last_seen"`
	State    types.CaseState `json:"state"`
}

type dismissResponse struct {
	CaseID    int64 `json:"case_id"`
	Dismissed bool  `json:"dismissed"`
}

type toastResponse struct {
	ID        string `json:"id"`
	CaseID    int64  `json:"case_id"`
	CaseTitle string `json:"case_title"`
	Latest    string `json:"latest"`
	Preview   string `json:"preview"`
	CreatedAt string `json:"created_at"`
}

type watchRequest struct {
	CaseID int64 `json:"case_id"`
}

type watchResponse struct {
	CaseID       int64                 `json:"case_id"`
	Generation   uint64                `json:"generation"`
	Signature    string                `json:"signature,omitempty"`
	Error        string                `json:"error,omitempty"`
	UpdatedAt    string                `json:"updated_at,omitempty"`
	Conversation *conversationResponse `json:"conversation,omitempty"`
}

func toConversationResponse(conv *model.Conversation) *conversationResponse {
	resp := &conversationResponse{
		CaseID:    conv.CaseID,
		Signature: conv.Signature(),
		Items:     make([]itemResponse, len(conv.Items)),
	}
	if latest, ok := conv.Latest(); ok {
		resp.Latest = model.FormatTimestamp(latest)
	}
	for i, item := range conv.Items {
		resp.Items[i] = itemResponse{
			Kind:       item.Kind,
			ID:         item.ID,
			CreatedAt:  model.FormatTimestamp(item.CreatedAt),
			Text:       item.Text,
			AuthorName: item.AuthorName,
			AuthorRole: item.AuthorRole,
			DocTitle:   item.DocTitle,
			ReviewLink: item.ReviewLink,
			Changes:    item.Changes,
		}
	}
	return resp
}

func toWatchResponse(snap usecase.WatchSnapshot) watchResponse {
	resp := watchResponse{
		CaseID:     snap.CaseID,
		Generation: snap.Generation,
		Signature:  snap.Signature,
		Error:      snap.Error,
		UpdatedAt:  model.FormatTimestamp(snap.UpdatedAt),
	}
	if snap.Conversation != nil {
		resp.Conversation = toConversationResponse(snap.Conversation)
	}
	return resp
}

func (s *Server) unreadHandler(w http.ResponseWriter, r *http.Request) {
	summary := s.uc.Unread.Summary()

	resp := unreadResponse{
		UnreadCaseIDs: summary.UnreadCaseIDs,
		Cases:         make([]caseUnreadResponse, len(summary.Cases)),
	}
	if resp.UnreadCaseIDs == nil {
		resp.UnreadCaseIDs = []int64{}
	}
	for i, c := range summary.Cases {
		resp.Cases[i] = caseUnreadResponse{
			CaseID:       c.CaseID,
			State:        c.State,
			LastSeen:     model.FormatTimestamp(c.LastSeen),
			LastNotified: model.FormatTimestamp(c.LastNotified),
			Dismissed:    c.Dismissed,
		}
	}

	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) conversationHandler(w http.ResponseWriter, r *http.Request) {
	caseID, err := caseIDParam(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	conv, err := s.uc.Conversation.Conversation(r.Context(), caseID)
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, toConversationResponse(conv))
}

func (s *Server) markReadHandler(w http.ResponseWriter, r *http.Request) {
	caseID, err := caseIDParam(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req readRequest
	if err := decodeBody(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	var t time.Time
	if req.Timestamp != "" {
		parsed, ok := model.ParseTimestamp(req.Timestamp)
		if !ok {
			handleError(w, r, goerr.Wrap(usecase.ErrInvalidTimestamp, "unparsable timestamp", goerr.V("timestamp", req.Timestamp)))
			return
		}
		t = parsed
	}

	applied, err := s.uc.Unread.MarkRead(r.Context(), caseID, t)
	if err != nil {
		handleError(w, r, err)
		return
	}

	lastSeen, ok := s.uc.Store().LastSeen(caseID)
	if !ok {
		lastSeen = applied
	}
	writeJSON(w, r, http.StatusOK, readResponse{
		CaseID:   caseID,
		LastSeen: model.FormatTimestamp(lastSeen),
		State:    s.uc.Store().State(caseID),
	})
}

func (s *Server) dismissHandler(w http.ResponseWriter, r *http.Request) {
	caseID, err := caseIDParam(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.uc.Unread.Dismiss(r.Context(), caseID); err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dismissResponse{CaseID: caseID, Dismissed: true})
}

func (s *Server) undismissHandler(w http.ResponseWriter, r *http.Request) {
	caseID, err := caseIDParam(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.uc.Unread.Undismiss(r.Context(), caseID); err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dismissResponse{CaseID: caseID, Dismissed: false})
}

// toastHandler takes the pending toast. ?peek=true leaves it pending.
func (s *Server) toastHandler(w http.ResponseWriter, r *http.Request) {
	var t *model.Toast
	if r.URL.Query().Get("peek") == "true" {
		t = s.toasts.Peek()
	} else {
		t = s.toasts.Take()
	}
	if t == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, r, http.StatusOK, toastResponse{
		ID:        t.ID,
		CaseID:    t.CaseID,
		CaseTitle: t.CaseTitle,
		Latest:    model.FormatTimestamp(t.Latest),
		Preview:   t.Preview,
		CreatedAt: model.FormatTimestamp(t.CreatedAt),
	})
}

func (s *Server) watchSnapshotHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, toWatchResponse(s.uc.Watcher.Snapshot()))
}

func (s *Server) watchSelectHandler(w http.ResponseWriter, r *http.Request) {
	var req watchRequest
	if err := decodeBody(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	if err := s.uc.Watcher.Select(r.Context(), req.CaseID); err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusAccepted, toWatchResponse(s.uc.Watcher.Snapshot()))
}

func (s *Server) watchRefreshHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := s.uc.Watcher.Refresh(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toWatchResponse(snap))
}

func caseIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "caseID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, goerr.Wrap(usecase.ErrInvalidCaseID, "invalid case id in path", goerr.V(usecase.CaseIDKey, raw))
	}
	return id, nil
}

// errBadRequest marks malformed request bodies
var errBadRequest = errors.New("bad request")

// decodeBody decodes a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		return goerr.Wrap(errBadRequest, "failed to read request body", goerr.V("error", err.Error()))
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return goerr.Wrap(errBadRequest, "invalid JSON body", goerr.V("error", err.Error()))
	}
	return nil
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, usecase.ErrInvalidCaseID),
		errors.Is(err, usecase.ErrInvalidTimestamp):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrCaseNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrEmptyConversation),
		errors.Is(err, usecase.ErrNotWatching):
		return http.StatusConflict
	case errors.Is(err, lexiconnect.ErrUnauthorized),
		errors.Is(err, lexiconnect.ErrUnexpectedStatus),
		errors.Is(err, lexiconnect.ErrMalformed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func handleError(w http.ResponseWriter, r *http.Request, err error) {
	errutil.HandleHTTP(r.Context(), w, err, statusOf(err))
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	safe.Write(r.Context(), w, data)
}
