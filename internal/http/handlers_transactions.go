package http

import (
	"net/http"
	"sync/atomic"

	"tracker/internal/core"
	"tracker/internal/log"
)

type transactionList struct {
	Transactions []core.Transaction `json:"transactions"`
	core.Summary
}

// handleListTransactions lists the caller's filtered transactions, newest
// first, together with the totals of the same filter.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r.Context())
	f, err := ParseFilter(r.URL.Query(), owner)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	txs, err := s.transactions.ListTransactions(ctx, f)
	if err != nil {
		s.writeServiceError(w, r, log.ComponentTransaction, log.OpList, err)
		return
	}
	summary, err := s.reports.Summary(ctx, f)
	if err != nil {
		s.writeServiceError(w, r, log.ComponentReport, log.OpReport, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}

	NewJSONResponse().Data(transactionList{Transactions: txs, Summary: summary}).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		BadRequestError("invalid transaction id").Write(w)
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	tx, err := s.transactions.GetTransaction(ctx, ownerFrom(r.Context()), id)
	if err != nil {
		s.writeServiceError(w, r, log.ComponentTransaction, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(tx).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	tx, ok := s.parseTransactionBody(w, r)
	if !ok {
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	created, err := s.transactions.CreateTransaction(ctx, tx)
	if err != nil {
		s.writeServiceError(w, r, log.ComponentTransaction, log.OpCreate, err)
		return
	}

	atomic.AddInt64(&s.appMetrics.transactionsCreated, 1)
	s.logTransaction(r, log.OpCreate, created)
	NewJSONResponse().Status(http.StatusCreated).Data(created).Write(w)
}

// handleUpdateTransaction replaces every field of the transaction.
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		BadRequestError("invalid transaction id").Write(w)
		return
	}
	tx, ok := s.parseTransactionBody(w, r)
	if !ok {
		return
	}
	tx.ID = id

	ctx, cancel := withTimeout(r)
	defer cancel()

	updated, err := s.transactions.UpdateTransaction(ctx, tx)
	if err != nil {
		s.writeServiceError(w, r, log.ComponentTransaction, log.OpUpdate, err)
		return
	}

	atomic.AddInt64(&s.appMetrics.transactionsUpdated, 1)
	s.logTransaction(r, log.OpUpdate, updated)
	NewJSONResponse().Data(updated).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		BadRequestError("invalid transaction id").Write(w)
		return
	}
	owner := ownerFrom(r.Context())

	ctx, cancel := withTimeout(r)
	defer cancel()

	if err := s.transactions.DeleteTransaction(ctx, owner, id); err != nil {
		s.writeServiceError(w, r, log.ComponentTransaction, log.OpDelete, err)
		return
	}

	atomic.AddInt64(&s.appMetrics.transactionsDeleted, 1)
	log.FromContext(r.Context()).WithComponent(log.ComponentTransaction).InfoContext(r.Context(), "Transaction deleted",
		log.FieldOwnerID, owner, log.FieldTxID, id)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) parseTransactionBody(w http.ResponseWriter, r *http.Request) (core.Transaction, bool) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return core.Transaction{}, false
	}
	tx, err := ParseTransaction(p, ownerFrom(r.Context()))
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return core.Transaction{}, false
	}
	return tx, true
}

func (s *Server) logTransaction(r *http.Request, op string, tx core.Transaction) {
	log.NewStructuredLogger(log.FromContext(r.Context())).LogTransaction(r.Context(), op,
		tx.Owner, tx.ID, tx.Type.String(), tx.Amount.Cents(), tx.CategoryID, tx.Date.String())
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()

	cats, err := s.transactions.ListCategories(ctx)
	if err != nil {
		s.writeServiceError(w, r, log.ComponentTransaction, log.OpList, err)
		return
	}
	if cats == nil {
		cats = []core.Category{}
	}
	NewJSONResponse().Data(map[string]any{"categories": cats}).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	c, err := s.transactions.CreateCategory(ctx, p.Get("name"))
	if err != nil {
		s.writeServiceError(w, r, log.ComponentTransaction, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(c).Write(w)
}
