package http

import (
	"errors"
	"net/http"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/metrics"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	month := MonthFilter(r)

	list, err := s.expenses.List(ctx, month)
	if err != nil {
		log.LogError(ctx, "List expenses failed", err, log.ComponentExpense, log.OpList,
			log.NewFields().With(log.FieldMonth, month))
		InternalServerError().Write(w)
		return
	}
	NewJSONResponse().Body(list).Write(w)
}

// handleGetExpense answers with the entry, or a null body when it is absent.
func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := ParseID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	entry, err := s.expenses.Get(ctx, id)
	if err != nil {
		log.LogError(ctx, "Get expense failed", err, log.ComponentExpense, log.OpRead,
			log.NewFields().With(log.FieldExpenseID, id))
		InternalServerError().Write(w)
		return
	}
	if entry == nil {
		NewJSONResponse().Body(nil).Write(w)
		return
	}
	NewJSONResponse().Body(entry).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	in, err := ParseExpenseInput(w, r)
	if err != nil {
		metrics.RecordExpenseWrite(log.OpCreate, false)
		BadRequestError(ErrInvalidBody.Error()).Write(w)
		return
	}

	id, err := s.expenses.Create(ctx, in)
	if err != nil {
		metrics.RecordExpenseWrite(log.OpCreate, false)
		s.writeServiceError(w, r, err, log.OpCreate, log.NewFields().With(log.FieldDate, in.Date))
		return
	}

	metrics.RecordExpenseWrite(log.OpCreate, true)
	log.FromContext(ctx).WithComponent(log.ComponentExpense).InfoContext(ctx, "Expense created",
		log.FieldExpenseID, id,
		log.FieldDate, in.Date,
		log.FieldItemCount, len(in.Items))
	SuccessResponse().Write(w)
}

// handleUpdateExpense answers success even when no row matched the id.
func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := ParseID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	in, err := ParseExpenseInput(w, r)
	if err != nil {
		metrics.RecordExpenseWrite(log.OpUpdate, false)
		BadRequestError(ErrInvalidBody.Error()).Write(w)
		return
	}

	matched, err := s.expenses.Update(ctx, id, in)
	if err != nil {
		metrics.RecordExpenseWrite(log.OpUpdate, false)
		s.writeServiceError(w, r, err, log.OpUpdate, log.NewFields().With(log.FieldExpenseID, id))
		return
	}

	metrics.RecordExpenseWrite(log.OpUpdate, true)
	logger := log.FromContext(ctx).WithComponent(log.ComponentExpense)
	if matched {
		logger.InfoContext(ctx, "Expense updated", log.FieldExpenseID, id, log.FieldDate, in.Date)
	} else {
		logger.InfoContext(ctx, "Expense update matched no entry", log.FieldExpenseID, id)
	}
	SuccessResponse().Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := ParseID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	if err := s.expenses.Delete(ctx, id); err != nil {
		metrics.RecordExpenseWrite(log.OpDelete, false)
		s.writeServiceError(w, r, err, log.OpDelete, log.NewFields().With(log.FieldExpenseID, id))
		return
	}

	metrics.RecordExpenseWrite(log.OpDelete, true)
	log.FromContext(ctx).WithComponent(log.ComponentExpense).InfoContext(ctx, "Expense deleted", log.FieldExpenseID, id)
	SuccessResponse().Write(w)
}

// writeServiceError maps validation errors to 400 and everything else to a
// generic 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, op string, fields log.LogFields) {
	switch {
	case errors.Is(err, core.ErrEmptyDate), errors.Is(err, core.ErrInvalidID):
		BadRequestError(err.Error()).Write(w)
	default:
		log.LogError(r.Context(), "Expense write failed", err, log.ComponentExpense, op, fields)
		InternalServerError().Write(w)
	}
}
