package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/julianstephens/lifeplan/internal/auth"
	apperrors "github.com/julianstephens/lifeplan/internal/errors"
	"github.com/julianstephens/lifeplan/internal/logicalday"
	"github.com/julianstephens/lifeplan/internal/models"
	"github.com/julianstephens/lifeplan/internal/planner"
)

const maxBodyBytes = 1 << 20

type rangeRequest struct {
	Start logicalday.Date `json:"start"`
	End   logicalday.Date `json:"end"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type listResponse[T any] struct {
	Items []T `json:"items"`
}

func userID(r *http.Request) string {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", apperrors.ErrInvalidInput, err)
	}
	return nil
}

// dateRange reads start/end query parameters. Missing bounds default to the user's
// horizon starting today.
func (a *API) dateRange(r *http.Request) (logicalday.Date, logicalday.Date, error) {
	q := r.URL.Query()
	start, end, err := a.Planner.Horizon(r.Context(), userID(r), a.HorizonDays)
	if err != nil {
		return start, end, err
	}
	if s := q.Get("start"); s != "" {
		if start, err = logicalday.Parse(s); err != nil {
			return start, end, err
		}
		if q.Get("end") == "" {
			end = start.AddDays(a.horizon() - 1)
		}
	}
	if s := q.Get("end"); s != "" {
		if end, err = logicalday.Parse(s); err != nil {
			return start, end, err
		}
	}
	return start, end, nil
}

func (a *API) horizon() int {
	if a.HorizonDays < 1 {
		return 1
	}
	return a.HorizonDays
}

func includeDeleted(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("deleted"))
	return v
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleToday(w http.ResponseWriter, r *http.Request) {
	day, err := a.Planner.Today(r.Context(), userID(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

func (a *API) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := a.Planner.Profile(r.Context(), userID(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	var req models.Profile
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	req.UserID = userID(r)
	p, err := a.Planner.SaveProfile(r.Context(), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) handleCheck(w http.ResponseWriter, r *http.Request) {
	result, err := a.Planner.Check(r.Context(), userID(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleListInstances(w http.ResponseWriter, r *http.Request) {
	start, end, err := a.dateRange(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	agenda, err := a.Planner.Agenda(r.Context(), userID(r), start, end)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, agenda)
}

func (a *API) handleEnsure(w http.ResponseWriter, r *http.Request) {
	var req rangeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	if req.Start.IsZero() || req.End.IsZero() {
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "start and end are required")
		return
	}
	result, err := a.Planner.Ensure(r.Context(), userID(r), req.Start, req.End)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleMarkInstance(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	in, err := a.Planner.Mark(r.Context(), userID(r), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

func (a *API) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := a.Planner.ListRules(r.Context(), userID(r), includeDeleted(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[models.RecurrenceRule]{Items: nonNil(rules)})
}

func (a *API) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req planner.RuleInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	rule, err := a.Planner.CreateRule(r.Context(), userID(r), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

func (a *API) handleReplaceRule(w http.ResponseWriter, r *http.Request) {
	var req planner.RuleSpec
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	rule, err := a.Planner.ReplaceRule(r.Context(), userID(r), chi.URLParam(r, "id"), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (a *API) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := a.Planner.DeleteRule(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type habitResponse struct {
	Habit models.Habit          `json:"habit"`
	Rule  models.RecurrenceRule `json:"rule"`
}

func (a *API) handleListHabits(w http.ResponseWriter, r *http.Request) {
	habits, err := a.Planner.ListHabits(r.Context(), userID(r), includeDeleted(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[models.Habit]{Items: nonNil(habits)})
}

func (a *API) handleCreateHabit(w http.ResponseWriter, r *http.Request) {
	var req planner.HabitInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	habit, rule, err := a.Planner.CreateHabit(r.Context(), userID(r), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, habitResponse{Habit: habit, Rule: rule})
}

func (a *API) handleDeleteHabit(w http.ResponseWriter, r *http.Request) {
	if err := a.Planner.DeleteHabit(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleRestoreHabit(w http.ResponseWriter, r *http.Request) {
	if err := a.Planner.RestoreHabit(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleStreak(w http.ResponseWriter, r *http.Request) {
	stats, err := a.Planner.Streak(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleStreaks(w http.ResponseWriter, r *http.Request) {
	streaks, err := a.Planner.Streaks(r.Context(), userID(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[planner.HabitStreak]{Items: nonNil(streaks)})
}

type transactionResponse struct {
	Transaction models.RecurringTransaction `json:"transaction"`
	Rule        models.RecurrenceRule       `json:"rule"`
}

func (a *API) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := a.Planner.ListTransactions(r.Context(), userID(r), includeDeleted(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[models.RecurringTransaction]{Items: nonNil(txns)})
}

func (a *API) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req planner.TransactionInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	txn, rule, err := a.Planner.CreateTransaction(r.Context(), userID(r), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, transactionResponse{Transaction: txn, Rule: rule})
}

func (a *API) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := a.Planner.DeleteTransaction(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleRestoreTransaction(w http.ResponseWriter, r *http.Request) {
	if err := a.Planner.RestoreTransaction(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleLedger(w http.ResponseWriter, r *http.Request) {
	start, end, err := a.dateRange(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	report, err := a.Planner.Ledger(r.Context(), userID(r), start, end)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleCalendar(w http.ResponseWriter, r *http.Request) {
	start, end, err := a.dateRange(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	cal, err := a.Planner.Calendar(r.Context(), userID(r), start, end)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="lifeplan.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(cal))
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
