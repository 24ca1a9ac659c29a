package event

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/rentfi/go-rentfi/service/logger"
	"github.com/rentfi/go-rentfi/service/persist"
	sentryutil "github.com/rentfi/go-rentfi/service/sentry"
	"github.com/rentfi/go-rentfi/util"
	"github.com/rentfi/go-rentfi/validate"
)

const (
	eventSenderContextKey  = "event.eventSender"
	sentryEventContextName = "event context"
)

// AddTo registers the event sender and its handlers on the request context
func AddTo(ctx *gin.Context, eventRepo persist.EventRepository) {
	sender := newEventSender(eventRepo)

	dispatcher := newEventDispatcher()
	logHandler := newLogHandler()
	sender.addHandler(dispatcher, persist.ActionListingCreated, logHandler)
	sender.addHandler(dispatcher, persist.ActionListingCancelled, logHandler)
	sender.addHandler(dispatcher, persist.ActionRentalCompleted, logHandler)
	sender.addHandler(dispatcher, persist.ActionDelegationChanged, logHandler)

	sender.dispatcher = dispatcher
	ctx.Set(eventSenderContextKey, &sender)
}

// Dispatch persists the event and fans it out to its handlers asynchronously
func Dispatch(ctx context.Context, evt persist.Event) error {
	ctx = sentryutil.NewSentryHubGinContext(ctx)
	go PushEvent(ctx, evt)
	return nil
}

// PushEvent sends the event to its registered handlers, reporting any failure
func PushEvent(ctx context.Context, evt persist.Event) {
	if err := dispatch(ctx, evt); err != nil {
		sentryutil.ReportError(ctx, err, func(scope *sentry.Scope) {
			logger.For(ctx).Error(err)
			setEventContext(scope, evt.ActorAddress, evt.Action)
		})
	}
}

func setEventContext(scope *sentry.Scope, actor persist.EthereumAddress, action persist.Action) {
	scope.SetContext(sentryEventContextName, sentry.Context{
		"Actor":  actor,
		"Action": action,
	})
}

// dispatch persists the event and sends it to all of its registered handlers
func dispatch(ctx context.Context, event persist.Event) error {
	gc := util.MustGetGinContext(ctx)
	sender := For(gc)

	if err := sender.validate.Struct(event); err != nil {
		return err
	}

	if _, handable := sender.registry[event.Action]; !handable {
		logger.For(ctx).WithField("action", event.Action).Warn("no handler configured for action")
		return nil
	}

	persistedEvent, err := sender.eventRepo.Add(ctx, event)
	if err != nil {
		return err
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return sender.dispatcher.dispatch(ctx, persistedEvent) })
	return eg.Wait()
}

// For returns the event sender registered on the context
func For(ctx context.Context) *eventSender {
	gc := util.GinContextFromContext(ctx)
	return gc.Value(eventSenderContextKey).(*eventSender)
}

type registeredActions map[persist.Action]struct{}

type eventSender struct {
	dispatcher *eventDispatcher
	registry   registeredActions
	eventRepo  persist.EventRepository
	validate   *validator.Validate
}

func newEventSender(eventRepo persist.EventRepository) eventSender {
	v := validator.New()
	v.RegisterStructValidation(validate.EventValidator, persist.Event{})
	return eventSender{
		registry:  registeredActions{},
		eventRepo: eventRepo,
		validate:  v,
	}
}

func (e *eventSender) addHandler(dispatcher *eventDispatcher, action persist.Action, handler eventHandler) {
	dispatcher.add(action, handler)
	e.registry[action] = struct{}{}
}

type eventDispatcher struct {
	handlers map[persist.Action]eventHandler
}

func newEventDispatcher() *eventDispatcher {
	return &eventDispatcher{handlers: map[persist.Action]eventHandler{}}
}

func (d *eventDispatcher) add(action persist.Action, handler eventHandler) {
	d.handlers[action] = handler
}

func (d *eventDispatcher) dispatch(ctx context.Context, event persist.Event) error {
	if handler, ok := d.handlers[event.Action]; ok {
		return handler.handle(ctx, event)
	}
	return persist.ErrUnknownAction{Action: event.Action}
}

type eventHandler interface {
	handle(context.Context, persist.Event) error
}

// logHandler writes a structured log line for every event it receives
type logHandler struct{}

func newLogHandler() *logHandler {
	return &logHandler{}
}

func (h *logHandler) handle(ctx context.Context, event persist.Event) error {
	logger.For(ctx).WithFields(map[string]interface{}{
		"event_id": event.ID,
		"action":   event.Action,
		"actor":    event.ActorAddress,
		"contract": event.ContractAddress,
		"token_id": event.TokenID,
	}).Info("event dispatched")
	return nil
}
