// Package orchestrator implements the per-message triage state machine.
// It is the sole mutator of session state and the sole producer of
// outbound text.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/opencare/triage/config"
	"github.com/opencare/triage/domain"
	"github.com/opencare/triage/emergency"
	"github.com/opencare/triage/extract"
	"github.com/opencare/triage/logger"
	"github.com/opencare/triage/policy"
	"github.com/opencare/triage/store"
)

// ErrStorage marks failures of the persistence collaborator. These are
// the only errors HandleMessage returns for a well-formed message: no
// safe reply can be computed without session state, so the transport
// is expected to retry delivery.
var ErrStorage = errors.New("session storage unavailable")

// Result is the outcome of one processed inbound message.
type Result struct {
	SessionID string
	Reply     string
}

// Orchestrator composes the detector, the two extraction paths, the
// store, and the disposition policy.
type Orchestrator struct {
	store        store.Store
	extractor    extract.Extractor
	policyEngine *policy.Engine
	defs         []domain.SlotDefinition
	cfg          *config.Config
	log          *logger.Logger
	locks        *keyedMutex
}

// New creates an orchestrator over the given collaborators.
func New(st store.Store, extractor extract.Extractor, policyEngine *policy.Engine, defs []domain.SlotDefinition, cfg *config.Config, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		store:        st,
		extractor:    extractor,
		policyEngine: policyEngine,
		defs:         defs,
		cfg:          cfg,
		log:          log,
		locks:        newKeyedMutex(),
	}
}

// HandleMessage runs the per-message algorithm: dedup, stale reset,
// emergency gate, extraction with fallback, slot merge, persistence,
// turn logging. Extraction failures never surface to the caller; only
// ErrStorage does.
func (o *Orchestrator) HandleMessage(ctx context.Context, msg domain.InboundMessage) (*Result, error) {
	if msg.MessageID == "" || msg.From == "" {
		return nil, fmt.Errorf("message_id and from are required")
	}

	patientKey := domain.PatientKey(o.cfg.HashSalt, msg.From)
	unlock := o.locks.Lock(patientKey)
	defer unlock()

	// Transport redelivery: replay the stored reply, touch nothing.
	if sessionID, reply, ok, err := o.store.GetProcessedReply(ctx, msg.MessageID); err != nil {
		return nil, fmt.Errorf("%w: lookup processed message: %v", ErrStorage, err)
	} else if ok {
		o.log.Debug("duplicate delivery replayed", "message_id", msg.MessageID, "session_id", sessionID)
		return &Result{SessionID: sessionID, Reply: reply}, nil
	}

	now := time.Now()

	session, isNew, err := o.loadOrStartSession(ctx, patientKey, now)
	if err != nil {
		return nil, err
	}

	var reply string
	indicators := emergency.Detect(msg.Text)
	if len(indicators) > 0 {
		signal := domain.EmergencySignal{Source: domain.SignalSourceDetector, Indicators: indicators}
		o.applyEmergency(session, signal)
		reply = emergency.Response
		o.log.Warn("emergency detected",
			"session_id", session.SessionID, "patient_key", patientKey, "indicators", indicators)
	} else {
		result, source := o.extractOrFallback(ctx, session, msg.Text)
		o.mergeCaptures(session, result, source, now)

		switch {
		case session.IsComplete():
			session.Status = domain.StatusCompleted
			completedAt := now
			session.CompletedAt = &completedAt
			reply = extract.CompletionMessage
		case isNew:
			reply = extract.WelcomeMessage + "\n\n" + result.Message
		default:
			reply = result.Message
		}
	}

	if session.Status == domain.StatusCompleted || session.Status == domain.StatusEmergency {
		o.applyDisposition(ctx, session)
	}

	if now.After(session.LastActivity) {
		session.LastActivity = now
	}

	if isNew {
		err = o.store.CreateSession(ctx, session)
	} else {
		err = o.store.SaveSession(ctx, session)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: persist session: %v", ErrStorage, err)
	}

	o.appendTurns(ctx, session, msg.Text, reply, now)

	if err := o.store.MarkProcessed(ctx, msg.MessageID, session.SessionID, reply); err != nil {
		o.log.Error("failed to record processed message", "message_id", msg.MessageID, "error", err)
	}

	return &Result{SessionID: session.SessionID, Reply: reply}, nil
}

// loadOrStartSession returns the session this message belongs to. A
// stale open session is marked timed_out and superseded; a terminal
// session is simply superseded. Either way the message becomes the
// first turn of a fresh session.
func (o *Orchestrator) loadOrStartSession(ctx context.Context, patientKey string, now time.Time) (*domain.TriageSession, bool, error) {
	session, err := o.store.GetLiveSession(ctx, patientKey)
	if err != nil {
		return nil, false, fmt.Errorf("%w: load live session: %v", ErrStorage, err)
	}

	if session != nil {
		if session.Status == domain.StatusOpen && IsStale(session, now, o.cfg.InactivityWindow) {
			session.Status = domain.StatusTimedOut
			if err := o.store.SaveSession(ctx, session); err != nil {
				return nil, false, fmt.Errorf("%w: mark session timed out: %v", ErrStorage, err)
			}
			o.log.Info("session timed out", "session_id", session.SessionID)
			session = nil
		} else if session.Status.Terminal() {
			session = nil
		}
	}

	if session != nil {
		return session, false, nil
	}

	session = domain.NewTriageSession("ses_"+uuid.New().String()[:8], patientKey, o.defs, now)
	o.log.Info("session started", "session_id", session.SessionID, "patient_key", patientKey)
	return session, true, nil
}

// extractOrFallback runs the single bounded extraction attempt and
// falls back deterministically. The returned result is always usable.
func (o *Orchestrator) extractOrFallback(ctx context.Context, session *domain.TriageSession, text string) (*domain.ExtractionResult, domain.CaptureSource) {
	req := domain.ExtractionRequest{
		Text:     text,
		Snapshot: session.SlotSnapshot(),
	}
	if pending, ok := session.PendingSlot(o.defs); ok {
		req.Pending = pending.ID
	}

	exCtx, cancel := context.WithTimeout(ctx, o.cfg.ExtractorTimeout)
	defer cancel()

	result, err := o.extractor.Extract(exCtx, req)
	if err != nil {
		reason := extract.ReasonMalformed
		var failure *extract.Failure
		if errors.As(err, &failure) {
			reason = failure.Reason
		}
		o.log.Warn("extraction failed, using fallback",
			"session_id", session.SessionID, "reason", string(reason), "error", err.Error())
		return extract.Fallback(o.defs, session, text), domain.CaptureSourceFallbackLiteral
	}

	// The extractor's emergency opinion is advisory. It is logged with
	// its provenance for review and never transitions the session.
	if result.FoundEmergency {
		signal := domain.EmergencySignal{Source: domain.SignalSourceExtractor}
		o.log.Warn("advisory emergency signal from extractor",
			"session_id", session.SessionID, "source", string(signal.Source), "authoritative", signal.Authoritative())
	}

	if guarded, blocked := extract.GuardReply(result.Message); blocked {
		o.log.Warn("extractor reply blocked by output guard", "session_id", session.SessionID)
		result.Message = guarded
	}

	return result, domain.CaptureSourceExtracted
}

// mergeCaptures applies slot captures with no-overwrite semantics.
// Unknown slot targets and rule-violating extracted values are dropped
// and logged; they never corrupt session state.
func (o *Orchestrator) mergeCaptures(session *domain.TriageSession, result *domain.ExtractionResult, source domain.CaptureSource, now time.Time) {
	for slotID, value := range result.Slots {
		def, ok := domain.SlotDefinitionByID(o.defs, slotID)
		if !ok {
			o.log.Error("capture targets unknown slot", "session_id", session.SessionID, "slot_id", slotID)
			continue
		}
		if source == domain.CaptureSourceExtracted && !def.ValidCapture(value) {
			o.log.Warn("extracted value failed slot validation",
				"session_id", session.SessionID, "slot_id", slotID)
			continue
		}
		if err := session.ApplyCapture(o.defs, slotID, value, source, now); err != nil {
			o.log.Error("capture rejected", "session_id", session.SessionID, "slot_id", slotID, "error", err)
		}
	}
}

// applyEmergency transitions the session to emergency status. The
// transition is monotonic; indicators accumulate without duplicates.
func (o *Orchestrator) applyEmergency(session *domain.TriageSession, signal domain.EmergencySignal) {
	if !signal.Authoritative() {
		return
	}
	session.Status = domain.StatusEmergency
	session.EmergencyFlag = true
	seen := make(map[string]bool, len(session.Indicators))
	for _, label := range session.Indicators {
		seen[label] = true
	}
	for _, label := range signal.Indicators {
		if !seen[label] {
			session.Indicators = append(session.Indicators, label)
			seen[label] = true
		}
	}
}

// applyDisposition asks the policy engine how the finished session
// should be routed for review. Policy failure downgrades to routine
// review; it never blocks the reply.
func (o *Orchestrator) applyDisposition(ctx context.Context, session *domain.TriageSession) {
	if o.policyEngine == nil {
		return
	}
	slots := make(map[string]interface{}, len(session.Slots))
	for _, v := range session.Slots {
		if v.Filled() {
			slots[v.SlotID] = *v.Value
		}
	}
	input := map[string]interface{}{
		"emergency":  session.EmergencyFlag,
		"indicators": session.Indicators,
		"slots":      slots,
	}
	decision, err := o.policyEngine.Evaluate(ctx, input)
	if err != nil {
		o.log.Warn("disposition policy failed", "session_id", session.SessionID, "error", err)
		decision = policy.DispositionRoutineReview
	}
	session.Disposition = decision
	o.log.Info("session disposition", "session_id", session.SessionID, "disposition", decision)
}

// appendTurns writes the inbound/outbound audit pair. Turn logging is
// best-effort: the reply has already been computed and persisting the
// session succeeded, so an audit write failure is logged, not returned.
func (o *Orchestrator) appendTurns(ctx context.Context, session *domain.TriageSession, inText, outText string, now time.Time) {
	snapshot := session.SlotSnapshot()
	turns := []*domain.ConversationTurn{
		{
			TurnID:    ulid.Make().String(),
			SessionID: session.SessionID,
			Direction: domain.TurnInbound,
			Text:      inText,
			CreatedAt: now,
			Snapshot:  snapshot,
		},
		{
			TurnID:    ulid.Make().String(),
			SessionID: session.SessionID,
			Direction: domain.TurnOutbound,
			Text:      outText,
			CreatedAt: now,
			Snapshot:  snapshot,
		},
	}
	for _, turn := range turns {
		if err := o.store.AppendTurn(ctx, turn); err != nil {
			o.log.Error("failed to append turn", "session_id", session.SessionID, "direction", string(turn.Direction), "error", err)
		}
	}
}
