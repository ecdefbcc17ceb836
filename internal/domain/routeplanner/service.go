package routeplanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/yanqian/route-forecast/internal/domain/forecast"
	apperrors "github.com/yanqian/route-forecast/pkg/errors"
	"github.com/yanqian/route-forecast/pkg/util"
)

// Event is one inbound user action. Choice carries the value of a pressed button.
type Event struct {
	OwnerID string
	Text    string
	Choice  string
}

// Choice is a button offered to the user.
type Choice struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Directive tells the transport what to show.
type Directive struct {
	Text    string   `json:"text"`
	Choices []Choice `json:"choices,omitempty"`
}

// Reply is the outcome of one turn. Rejection is set when the input was not accepted.
type Reply struct {
	Directive Directive
	Stage     Stage
	Rejection error
}

// Service drives route sessions through the conversation.
type Service interface {
	Handle(ctx context.Context, ev Event) (Reply, error)
	Session(ownerID string) (Session, bool)
	Reset(ownerID string) bool
	Itineraries(ctx context.Context, ownerID string) ([]Itinerary, error)
}

type transitionKey struct {
	stage Stage
	kind  TriggerKind
}

type transition func(ctx context.Context, s Session, trig trigger) outcome

type outcome struct {
	directive Directive
	next      Stage
	mutate    func(*Session)
	rejection error
	itinerary *Itinerary
}

var allStages = []Stage{
	StageIdle,
	StageAwaitingDayCount,
	StageAwaitingDeparture,
	StageAwaitingDestination,
	StageAwaitingExtraStop,
	StageAwaitingConfirmation,
}

type service struct {
	cfg      Config
	registry *Registry
	gateway  forecast.Gateway
	repo     ItineraryRepository
	archive  ItineraryArchive
	logger   *slog.Logger
	table    map[transitionKey]transition
	now      func() time.Time
}

// NewService wires the conversation state machine.
func NewService(cfg Config, registry *Registry, gateway forecast.Gateway, repo ItineraryRepository, archive ItineraryArchive, logger *slog.Logger) Service {
	s := &service{
		cfg:      cfg.withDefaults(),
		registry: registry,
		gateway:  gateway,
		repo:     repo,
		archive:  archive,
		logger:   logger.With("component", "routeplanner.service"),
		now:      util.NowUTC,
	}
	s.table = s.transitions()
	return s
}

func (s *service) transitions() map[transitionKey]transition {
	table := map[transitionKey]transition{
		{StageAwaitingDayCount, TriggerText}:          s.acceptDayCount,
		{StageAwaitingDeparture, TriggerText}:         s.acceptDeparture,
		{StageAwaitingDestination, TriggerText}:       s.acceptDestination,
		{StageAwaitingExtraStop, TriggerText}:         s.acceptExtraStop,
		{StageAwaitingConfirmation, TriggerAddStop}:   s.askExtraStop,
		{StageAwaitingConfirmation, TriggerViewRoute}: s.viewRoute,
		{StageAwaitingConfirmation, TriggerConfirm}:   s.confirm,
	}
	for _, stage := range allStages {
		table[transitionKey{stage, TriggerStart}] = s.start
		table[transitionKey{stage, TriggerHelp}] = s.help
		table[transitionKey{stage, TriggerWeather}] = s.beginRoute
		table[transitionKey{stage, TriggerCancel}] = s.cancel
	}
	return table
}

func (s *service) Handle(ctx context.Context, ev Event) (Reply, error) {
	owner := strings.TrimSpace(ev.OwnerID)
	if owner == "" {
		return Reply{}, apperrors.Wrap(apperrors.CodeInvalidInput, "owner id cannot be empty", nil)
	}

	release := s.registry.Acquire(owner)
	defer release()

	sess := s.registry.GetOrCreate(owner)
	trig := classifyTrigger(ev)
	step, ok := s.table[transitionKey{sess.Stage, trig.kind}]
	if !ok {
		step = s.rejectUnexpected
	}
	out := step(ctx, sess, trig)

	if out.mutate != nil {
		if err := s.registry.Update(owner, sess.Generation, out.mutate); err != nil {
			s.logger.Warn("discarding turn result", "owner", owner, "stage", sess.Stage, "trigger", trig.kind.String(), "error", err)
			return Reply{}, apperrors.Wrap(apperrors.CodeStaleSession, "session was reset during the turn", err)
		}
	}
	if out.itinerary != nil {
		s.record(ctx, *out.itinerary)
	}

	if out.rejection != nil {
		s.logger.Info("turn rejected", "owner", owner, "stage", sess.Stage, "trigger", trig.kind.String(), "code", apperrors.CodeOf(out.rejection), "error", out.rejection)
	} else {
		s.logger.Info("turn handled", "owner", owner, "from", sess.Stage, "to", out.next, "trigger", trig.kind.String())
	}
	return Reply{Directive: out.directive, Stage: out.next, Rejection: out.rejection}, nil
}

func (s *service) Session(ownerID string) (Session, bool) {
	return s.registry.Lookup(strings.TrimSpace(ownerID))
}

func (s *service) Reset(ownerID string) bool {
	return s.registry.Clear(strings.TrimSpace(ownerID))
}

func (s *service) Itineraries(ctx context.Context, ownerID string) ([]Itinerary, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "owner id cannot be empty", nil)
	}
	if s.repo == nil {
		return nil, nil
	}
	items, err := s.repo.ListByOwner(ctx, ownerID, s.cfg.HistoryLimit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeItineraryStore, "failed to load itineraries", err)
	}
	return items, nil
}

func (s *service) start(_ context.Context, sess Session, _ trigger) outcome {
	return outcome{directive: Directive{Text: textStart}, next: sess.Stage}
}

func (s *service) help(_ context.Context, sess Session, _ trigger) outcome {
	return outcome{directive: Directive{Text: textHelp}, next: sess.Stage}
}

func (s *service) beginRoute(_ context.Context, _ Session, _ trigger) outcome {
	return outcome{
		directive: stagePrompt(StageAwaitingDayCount),
		next:      StageAwaitingDayCount,
		mutate:    func(n *Session) { n.reset(StageAwaitingDayCount) },
	}
}

func (s *service) cancel(_ context.Context, _ Session, _ trigger) outcome {
	return outcome{
		directive: Directive{Text: textCancel},
		next:      StageIdle,
		mutate:    func(n *Session) { n.reset(StageIdle) },
	}
}

func (s *service) acceptDayCount(_ context.Context, sess Session, trig trigger) outcome {
	days, err := strconv.Atoi(trig.value)
	if err != nil || days < forecast.MinDays || days > forecast.MaxDays {
		return s.reject(sess, apperrors.Wrap(apperrors.CodeInvalidInput, textInvalidDayCount, err))
	}
	return outcome{
		directive: stagePrompt(StageAwaitingDeparture),
		next:      StageAwaitingDeparture,
		mutate: func(n *Session) {
			n.RequestedDays = days
			n.Stage = StageAwaitingDeparture
		},
	}
}

func (s *service) acceptDeparture(ctx context.Context, sess Session, trig trigger) outcome {
	stop, rejection := s.resolveStop(ctx, sess, trig.value)
	if rejection != nil {
		return s.reject(sess, rejection)
	}
	return outcome{
		directive: stagePrompt(StageAwaitingDestination),
		next:      StageAwaitingDestination,
		mutate: func(n *Session) {
			n.Stops = []Stop{stop}
			n.Stage = StageAwaitingDestination
		},
	}
}

func (s *service) acceptDestination(ctx context.Context, sess Session, trig trigger) outcome {
	stop, rejection := s.resolveStop(ctx, sess, trig.value)
	if rejection != nil {
		return s.reject(sess, rejection)
	}
	return outcome{
		directive: stagePrompt(StageAwaitingConfirmation),
		next:      StageAwaitingConfirmation,
		mutate: func(n *Session) {
			n.Stops = append(n.Stops, stop)
			n.Stage = StageAwaitingConfirmation
		},
	}
}

func (s *service) acceptExtraStop(ctx context.Context, sess Session, trig trigger) outcome {
	stop, rejection := s.resolveStop(ctx, sess, trig.value)
	if rejection != nil {
		return s.reject(sess, rejection)
	}
	return outcome{
		directive: withLead(textExtraStopAdded, stagePrompt(StageAwaitingConfirmation)),
		next:      StageAwaitingConfirmation,
		mutate: func(n *Session) {
			n.Stops = insertBeforeLast(n.Stops, stop)
			n.Stage = StageAwaitingConfirmation
		},
	}
}

func (s *service) askExtraStop(_ context.Context, _ Session, _ trigger) outcome {
	return outcome{
		directive: stagePrompt(StageAwaitingExtraStop),
		next:      StageAwaitingExtraStop,
		mutate:    func(n *Session) { n.Stage = StageAwaitingExtraStop },
	}
}

func (s *service) viewRoute(_ context.Context, sess Session, _ trigger) outcome {
	prompt := stagePrompt(StageAwaitingConfirmation)
	return outcome{
		directive: Directive{Text: renderRoute(sess.Cities()), Choices: prompt.Choices},
		next:      StageAwaitingConfirmation,
	}
}

func (s *service) confirm(_ context.Context, sess Session, _ trigger) outcome {
	it := Itinerary{
		ID:        uuid.NewString(),
		OwnerID:   sess.OwnerID,
		Days:      sess.RequestedDays,
		Stops:     sess.clone().Stops,
		CreatedAt: s.now(),
	}
	return outcome{
		directive: Directive{Text: renderItinerary(it)},
		next:      StageIdle,
		mutate:    func(n *Session) { n.reset(StageIdle) },
		itinerary: &it,
	}
}

func (s *service) rejectUnexpected(_ context.Context, sess Session, trig trigger) outcome {
	err := apperrors.Wrap(apperrors.CodeInvalidInput, textWrongInput, fmt.Errorf("unexpected %s input in stage %s", trig.kind, sess.Stage))
	return s.reject(sess, err)
}

// reject keeps the stage and re-prompts for the expected input.
func (s *service) reject(sess Session, err error) outcome {
	return outcome{
		directive: withLead(apperrors.MessageOf(err), stagePrompt(sess.Stage)),
		next:      sess.Stage,
		rejection: err,
	}
}

// resolveStop validates the city and fetches its forecast without touching the session.
func (s *service) resolveStop(ctx context.Context, sess Session, raw string) (Stop, error) {
	city := forecast.NormalizeCity(raw)
	if err := s.validateCity(city); err != nil {
		return Stop{}, err
	}
	if sess.HasStop(city) {
		return Stop{}, apperrors.Wrap(apperrors.CodeDuplicateStop, textDuplicateStop, fmt.Errorf("city %q already in route", city))
	}
	days, err := s.fetch(ctx, city, sess.RequestedDays)
	if err != nil {
		return Stop{}, err
	}
	return Stop{City: city, Forecast: days}, nil
}

func (s *service) validateCity(city string) error {
	if city == "" || strings.HasPrefix(city, "/") {
		return apperrors.Wrap(apperrors.CodeInvalidInput, textInvalidCityInput, nil)
	}
	if utf8.RuneCountInString(city) > s.cfg.MaxCityLength {
		return apperrors.Wrap(apperrors.CodeInvalidInput, textInvalidCityInput, fmt.Errorf("city name longer than %d characters", s.cfg.MaxCityLength))
	}
	if strings.IndexFunc(city, unicode.IsLetter) < 0 {
		return apperrors.Wrap(apperrors.CodeInvalidInput, textInvalidCityInput, nil)
	}
	return nil
}

type fetchResult struct {
	days []forecast.DaySummary
	err  error
}

// fetch makes a single bounded gateway attempt; a late answer is dropped.
func (s *service) fetch(ctx context.Context, city string, days int) ([]forecast.DaySummary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	done := make(chan fetchResult, 1)
	go func() {
		summaries, err := s.gateway.FetchForecast(ctx, city, days)
		done <- fetchResult{days: summaries, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, translateFetchError(res.err)
		}
		if len(res.days) != days {
			return nil, apperrors.Wrap(apperrors.CodeServiceUnavailable, textServiceError,
				fmt.Errorf("%w: got %d days, want %d", forecast.ErrInsufficientData, len(res.days), days))
		}
		return res.days, nil
	case <-ctx.Done():
		return nil, translateFetchError(ctx.Err())
	}
}

func translateFetchError(err error) error {
	switch {
	case errors.Is(err, forecast.ErrCityNotFound):
		return apperrors.Wrap(apperrors.CodeCityNotFound, textCityNotFound, err)
	case errors.Is(err, forecast.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return apperrors.Wrap(apperrors.CodeTimeout, textTimeoutError, err)
	case errors.Is(err, forecast.ErrServiceUnavailable), errors.Is(err, forecast.ErrInsufficientData):
		return apperrors.Wrap(apperrors.CodeServiceUnavailable, textServiceError, err)
	case errors.Is(err, forecast.ErrInvalidRequest):
		return apperrors.Wrap(apperrors.CodeInvalidInput, textInvalidCityInput, err)
	default:
		return apperrors.Wrap(apperrors.CodeTransport, textServiceError, err)
	}
}

// record stores a delivered itinerary. Failures never affect the user's turn.
func (s *service) record(ctx context.Context, it Itinerary) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.RecordTimeout)
	defer cancel()
	if s.repo != nil {
		if err := s.repo.Save(ctx, it); err != nil {
			s.logger.Error("itinerary save failed", "owner", it.OwnerID, "itinerary_id", it.ID, "error", err)
		}
	}
	if s.archive != nil {
		key, err := s.archive.Archive(ctx, it)
		if err != nil {
			s.logger.Error("itinerary archive failed", "owner", it.OwnerID, "itinerary_id", it.ID, "error", err)
			return
		}
		s.logger.Info("itinerary archived", "owner", it.OwnerID, "itinerary_id", it.ID, "key", key)
	}
}
