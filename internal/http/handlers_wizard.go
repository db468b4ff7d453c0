package http

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"

	"dealtrack/internal/auth"
	"dealtrack/internal/core"
	"dealtrack/internal/forms"
	"dealtrack/internal/storage"
)

// resolveWizard authenticates the request, parses the form and looks up the
// wizard session for the posted token. On any failure it writes the error
// response and returns ok=false.
func (s *Server) resolveWizard(w http.ResponseWriter, r *http.Request) (auth.Principal, *wizardSession, string, bool) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return auth.Principal{}, nil, "", false
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return auth.Principal{}, nil, "", false
	}

	principal, err := auth.FromContext(r.Context())
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return auth.Principal{}, nil, "", false
	}

	token := r.Form.Get("token")
	sess, err := s.wizards.Get(token, principal.ID)
	if err != nil {
		// Expired or foreign token: tell the client to tear the modal down.
		NewHTMXResponse().
			Status(http.StatusGone).
			TriggerWizardClosed().
			TriggerErrorNotification("This form session has expired. Please start over.").
			Write(w)
		return auth.Principal{}, nil, "", false
	}
	return principal, sess, token, true
}

// checkGeneration guards against a stale tab: a posted form rendered before a
// variant switch carries the old generation and must not mutate the wizard.
func (s *Server) checkGeneration(w http.ResponseWriter, r *http.Request, sess *wizardSession, token string) bool {
	raw := r.Form.Get("generation")
	gen, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || gen != sess.ctrl.Generation() {
		slog.WarnContext(r.Context(), "Stale wizard generation",
			"posted", raw, "current", sess.ctrl.Generation())
		s.renderWizard(w, r, token, sess, nil, http.StatusConflict)
		return false
	}
	return true
}

// renderWizard renders the full wizard partial for the session's current
// state. extraErrs (parse failures) overlay the controller's own validation
// errors, parse errors winning per field.
func (s *Server) renderWizard(w http.ResponseWriter, r *http.Request, token string, sess *wizardSession, extraErrs forms.FieldErrors, status int) {
	ctrl := sess.ctrl
	errs := make(forms.FieldErrors, len(ctrl.Errors())+len(extraErrs))
	for k, v := range ctrl.Errors() {
		errs[k] = v
	}
	for k, v := range extraErrs {
		errs[k] = v
	}

	step := ctrl.CurrentStep()
	stepHTML, err := s.renderer.RenderStep(step, ctrl.Values(), errs)
	if err != nil {
		slog.ErrorContext(r.Context(), "Wizard step render failed",
			"error", err, "step", step.ID)
		InternalServerError("Error rendering form").Write(w)
		return
	}

	data := struct {
		Token      string
		Generation uint64
		Editing    bool
		StepIndex  int
		StepCount  int
		StepTitle  string
		StepDesc   string
		States     []forms.StepState
		StepHTML   template.HTML
		IsLast     bool
		CanGoBack  bool
	}{
		Token:      token,
		Generation: ctrl.Generation(),
		Editing:    sess.txnID != "",
		StepIndex:  ctrl.StepIndex() + 1,
		StepCount:  len(ctrl.Variant().Steps),
		StepTitle:  step.Title,
		StepDesc:   step.Description,
		States:     ctrl.StepStates(),
		StepHTML:   stepHTML,
		IsLast:     ctrl.IsLast(),
		CanGoBack:  ctrl.StepIndex() > 0,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, "wizard.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Wizard template execution failed", "error", err)
	}
}

// handleWizardOpen starts a wizard: fresh defaults for the create flow, or
// stored row data seeded under the defaults when an id is posted (edit flow).
func (s *Server) handleWizardOpen(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	principal, err := auth.FromContext(r.Context())
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	txnID := sanitizeText(r.Form.Get("id"))
	var initial forms.Values
	variant := s.registry.Lookup(core.TransactionType(r.Form.Get("type")))

	if txnID != "" {
		txn, err := s.txns.Get(r.Context(), principal.ID, txnID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				NotFoundError("Transaction not found").Write(w)
				return
			}
			slog.ErrorContext(r.Context(), "Failed to load transaction for edit",
				"error", err, "transaction_id", txnID)
			InternalServerError("Error loading transaction").Write(w)
			return
		}
		variant = s.registry.Lookup(txn.Type)
		initial = forms.SeedValues(txn)
	}

	ctrl := forms.NewController(variant, initial)
	token := s.wizards.Open(principal.ID, txnID, ctrl)

	sess, err := s.wizards.Get(token, principal.ID)
	if err != nil {
		InternalServerError("Error opening form").Write(w)
		return
	}
	s.renderWizard(w, r, token, sess, nil, http.StatusOK)
}

// handleWizardSelectType switches the open wizard onto another transaction
// type, discarding in-progress values. The generation counter bumps inside
// SelectVariant, so any in-flight request from the previous rendering will
// fail the stale check.
func (s *Server) handleWizardSelectType(w http.ResponseWriter, r *http.Request) {
	_, sess, token, ok := s.resolveWizard(w, r)
	if !ok {
		return
	}

	t := core.TransactionType(r.Form.Get("type"))
	variant := s.registry.Lookup(t)
	sess.ctrl.SelectVariant(variant, nil)
	s.renderWizard(w, r, token, sess, nil, http.StatusOK)
}

func (s *Server) handleWizardNext(w http.ResponseWriter, r *http.Request) {
	_, sess, token, ok := s.resolveWizard(w, r)
	if !ok {
		return
	}
	if !s.checkGeneration(w, r, sess, token) {
		return
	}

	parseErrs := applyStepValues(sess.ctrl, sess.ctrl.CurrentStep(), r.Form)
	if len(parseErrs) > 0 {
		s.renderWizard(w, r, token, sess, parseErrs, http.StatusUnprocessableEntity)
		return
	}
	if !sess.ctrl.GoNext() && len(sess.ctrl.Errors()) > 0 {
		s.renderWizard(w, r, token, sess, nil, http.StatusUnprocessableEntity)
		return
	}
	s.renderWizard(w, r, token, sess, nil, http.StatusOK)
}

// handleWizardBack applies the posted values without validating and retreats.
// Typed-but-invalid input survives going back; it is re-checked on the next
// forward pass.
func (s *Server) handleWizardBack(w http.ResponseWriter, r *http.Request) {
	_, sess, token, ok := s.resolveWizard(w, r)
	if !ok {
		return
	}
	if !s.checkGeneration(w, r, sess, token) {
		return
	}

	applyStepValues(sess.ctrl, sess.ctrl.CurrentStep(), r.Form)
	sess.ctrl.GoBack()
	s.renderWizard(w, r, token, sess, nil, http.StatusOK)
}

func (s *Server) handleWizardSubmit(w http.ResponseWriter, r *http.Request) {
	principal, sess, token, ok := s.resolveWizard(w, r)
	if !ok {
		return
	}
	if !s.checkGeneration(w, r, sess, token) {
		return
	}

	parseErrs := applyStepValues(sess.ctrl, sess.ctrl.CurrentStep(), r.Form)
	if len(parseErrs) > 0 {
		s.renderWizard(w, r, token, sess, parseErrs, http.StatusUnprocessableEntity)
		return
	}

	var saved core.Transaction
	err := sess.ctrl.Submit(func(p core.Payload) error {
		var persistErr error
		if sess.txnID != "" {
			saved, persistErr = s.txns.Update(r.Context(), principal.ID, sess.txnID, p)
		} else {
			saved, persistErr = s.txns.Create(r.Context(), principal.ID, p)
		}
		return persistErr
	})

	switch {
	case err == nil:
		// Done: close the session and let the client refresh the list.
	case forms.IsValidationError(err):
		s.renderWizard(w, r, token, sess, nil, http.StatusUnprocessableEntity)
		return
	default:
		slog.ErrorContext(r.Context(), "Failed to persist transaction",
			"error", err, "transaction_id", sess.txnID, "user_id", principal.ID)
		NewHTMXResponse().
			Status(http.StatusInternalServerError).
			TriggerErrorNotification("Could not save the transaction. Please try again.").
			Write(w)
		return
	}

	s.wizards.Close(token)
	s.invalidateTransactions(principal.ID)
	atomic.AddInt64(&s.appMetrics.totalTransactions, 1)

	resp := NewHTMXResponse().TriggerWizardClosed()
	if sess.txnID != "" {
		resp.TriggerTransactionUpdated(saved.ID).
			TriggerSuccessNotification("Transaction updated")
	} else {
		resp.TriggerTransactionCreated(saved.ID).
			TriggerSuccessNotification("Transaction created")
	}
	resp.Write(w)
}

func (s *Server) handleWizardCancel(w http.ResponseWriter, r *http.Request) {
	_, _, token, ok := s.resolveWizard(w, r)
	if !ok {
		return
	}
	s.wizards.Close(token)
	NewHTMXResponse().TriggerWizardClosed().Write(w)
}

// feeField returns the posted repeater field name, defaulting to "fees".
func feeField(r *http.Request) string {
	if f := r.Form.Get("field"); f != "" {
		return f
	}
	return "fees"
}

func (s *Server) handleWizardFeeAdd(w http.ResponseWriter, r *http.Request) {
	_, sess, token, ok := s.resolveWizard(w, r)
	if !ok {
		return
	}
	if !s.checkGeneration(w, r, sess, token) {
		return
	}

	// Keep what the user already typed before growing the list.
	applyStepValues(sess.ctrl, sess.ctrl.CurrentStep(), r.Form)
	sess.ctrl.AppendFee(feeField(r))
	s.renderWizard(w, r, token, sess, nil, http.StatusOK)
}

func (s *Server) handleWizardFeeRemove(w http.ResponseWriter, r *http.Request) {
	_, sess, token, ok := s.resolveWizard(w, r)
	if !ok {
		return
	}
	if !s.checkGeneration(w, r, sess, token) {
		return
	}

	idx, valid := parseIndex(r.Form.Get("index"))
	if !valid {
		BadRequestError("Invalid fee row index").Write(w)
		return
	}
	applyStepValues(sess.ctrl, sess.ctrl.CurrentStep(), r.Form)
	sess.ctrl.RemoveFee(feeField(r), idx)
	s.renderWizard(w, r, token, sess, nil, http.StatusOK)
}

// handleWizardFeeUnit flips one fee row between flat-dollar and percent,
// clearing the no-longer-applicable amount.
func (s *Server) handleWizardFeeUnit(w http.ResponseWriter, r *http.Request) {
	_, sess, token, ok := s.resolveWizard(w, r)
	if !ok {
		return
	}
	if !s.checkGeneration(w, r, sess, token) {
		return
	}

	idx, valid := parseIndex(r.Form.Get("index"))
	if !valid {
		BadRequestError("Invalid fee row index").Write(w)
		return
	}
	unit := core.FeeUnitUSD
	if r.Form.Get("unit") == string(core.FeeUnitPercent) {
		unit = core.FeeUnitPercent
	}
	applyStepValues(sess.ctrl, sess.ctrl.CurrentStep(), r.Form)
	sess.ctrl.SetFeeUnit(feeField(r), idx, unit)
	s.renderWizard(w, r, token, sess, nil, http.StatusOK)
}
