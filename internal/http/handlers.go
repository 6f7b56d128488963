package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fairshare/internal/core"
	"fairshare/internal/ledger"
	"fairshare/internal/log"
	"fairshare/internal/middleware/trace"
	"fairshare/internal/services"
)

type netResponse struct {
	TransactionID string      `json:"transactionId"`
	UserID        core.UserID `json:"userId"`
	Net           core.Money  `json:"net"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.api.Ready(r.Context()); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		ServiceUnavailableError("storage unavailable").Write(w)
		return
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(s.Metrics()).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	in, err := DecodeExpenseInput(w, r)
	if err != nil {
		logger.WarnContext(ctx, "Malformed transaction request", log.FieldError, err)
		s.fail(w, r, BadRequestError(err.Error()))
		return
	}

	tx, err := s.api.Create(ctx, in)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrInvalidInput):
		s.fail(w, r, UnprocessableEntityError(err.Error()))
		return
	case errors.Is(err, ledger.ErrUnbalanced):
		s.fail(w, r, ConflictError(err.Error()))
		return
	default:
		logger.ErrorContext(ctx, "Transaction create failed",
			log.FieldOperation, log.OpCreate,
			log.FieldTitle, in.Title,
			log.FieldError, err)
		s.fail(w, r, InternalServerError("failed to record transaction"))
		return
	}

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/transactions/"+tx.ID).
		Body(tx).
		Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	limit, err := ParseLimit(r.URL.Query(), 0)
	if err != nil {
		s.fail(w, r, BadRequestError(err.Error()))
		return
	}
	NewJSONResponse().Body(nonNil(s.api.List(limit))).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, ok := s.api.Get(chi.URLParam(r, "id"))
	if !ok {
		s.fail(w, r, NotFoundError("transaction not found"))
		return
	}
	NewJSONResponse().Body(tx).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if _, err := s.api.Delete(ctx, id); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Transaction delete failed",
			log.FieldOperation, log.OpDelete,
			log.FieldTransactionID, id,
			log.FieldError, err)
		s.fail(w, r, InternalServerError("failed to delete transaction"))
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleClearTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.api.Clear(ctx); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Ledger clear failed",
			log.FieldOperation, log.OpClear,
			log.FieldError, err)
		s.fail(w, r, InternalServerError("failed to clear transactions"))
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleOwedToMe(w http.ResponseWriter, r *http.Request) {
	user, ok := s.user(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(nonNil(s.api.OwedToMe(user))).Write(w)
}

func (s *Server) handleOwing(w http.ResponseWriter, r *http.Request) {
	user, ok := s.user(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(nonNil(s.api.IOwe(user))).Write(w)
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	user, ok := s.user(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(s.api.Totals(user)).Write(w)
}

func (s *Server) handleRecentCounterparts(w http.ResponseWriter, r *http.Request) {
	user, ok := s.user(w, r)
	if !ok {
		return
	}
	limit, err := ParseLimit(r.URL.Query(), core.DefaultRecentCounterparts)
	if err != nil {
		s.fail(w, r, BadRequestError(err.Error()))
		return
	}
	NewJSONResponse().Body(nonNil(s.api.RecentCounterparts(user, limit))).Write(w)
}

func (s *Server) handleNet(w http.ResponseWriter, r *http.Request) {
	user, ok := s.user(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	net, found := s.api.Net(id, user)
	if !found {
		s.fail(w, r, NotFoundError("transaction not found"))
		return
	}
	NewJSONResponse().Body(netResponse{TransactionID: id, UserID: user, Net: net}).Write(w)
}

func (s *Server) handlePreviewEqualSplit(w http.ResponseWriter, r *http.Request) {
	user, ok := s.user(w, r)
	if !ok {
		return
	}
	in, err := DecodeEqualSplitInput(w, r)
	if err != nil {
		s.fail(w, r, BadRequestError(err.Error()))
		return
	}
	entries, err := s.api.PreviewEqualSplit(in, user)
	if err != nil {
		s.fail(w, r, UnprocessableEntityError(err.Error()))
		return
	}
	NewJSONResponse().Body(nonNil(entries)).Write(w)
}

func (s *Server) user(w http.ResponseWriter, r *http.Request) (core.UserID, bool) {
	user, err := ParseUserID(chi.URLParam(r, "userID"), s.viewpoint)
	if err != nil {
		s.fail(w, r, BadRequestError(err.Error()))
		return "", false
	}
	return user, true
}

// fail stamps the request ID onto an error response and writes it.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, b *JSONResponseBuilder) {
	if body, ok := b.body.(ErrorBody); ok {
		body.RequestID = trace.GetRequestID(r.Context())
		b.Body(body)
	}
	b.Write(w)
}

// nonNil keeps empty lists encoding as [] instead of null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
