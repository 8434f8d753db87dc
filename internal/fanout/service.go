package fanout

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/famlink/notifier/internal/directory"
	"github.com/famlink/notifier/internal/dispatch"
	"github.com/famlink/notifier/internal/reconcile"
)

// ServiceConfig holds configuration for the fan-out Service.
type ServiceConfig struct {
	Resolver   *directory.Resolver
	Dispatcher *dispatch.Dispatcher
	Reconciler *reconcile.Reconciler
	Source     EventSource
	Logger     zerolog.Logger
}

// Service reacts to document-creation events. Each Handle method derives
// the recipient set and payload for its event kind, then runs the shared
// resolve, dispatch, reconcile sequence.
//
// Handlers never propagate errors: the event platform delivers at most
// once, and re-raising would only risk redelivery of the triggering
// document and duplicate notifications. Failures are logged and absorbed.
type Service struct {
	resolver   *directory.Resolver
	dispatcher *dispatch.Dispatcher
	reconciler *reconcile.Reconciler
	source     EventSource
	logger     zerolog.Logger
}

// NewService creates a new fan-out service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		resolver:   cfg.Resolver,
		dispatcher: cfg.Dispatcher,
		reconciler: cfg.Reconciler,
		source:     cfg.Source,
		logger:     cfg.Logger,
	}
}

// HandleChatMessage notifies every chat participant except the sender.
func (s *Service) HandleChatMessage(ctx context.Context, ev ChatMessage) {
	log := s.logger.With().Str("event", "chat_message").Str("chat_id", ev.ChatID).Logger()
	if ev.ChatID == "" {
		log.Warn().Msg("event missing chat id, dropped")
		return
	}

	participants, err := s.source.ChatParticipants(ctx, ev.ChatID)
	if err != nil {
		log.Warn().Err(err).Msg("chat lookup failed, event dropped")
		return
	}

	recipients := make([]string, 0, len(participants))
	for _, uid := range participants {
		if uid != ev.SenderID {
			recipients = append(recipients, uid)
		}
	}

	body := ev.Text
	if body == "" {
		if ev.Kind == "audio" {
			body = "Message audio"
		} else {
			body = "Nouveau message"
		}
	}

	s.notify(ctx, log, recipients, dispatch.Payload{
		Title: "Nouvelle discussion",
		Body:  body,
		Data: map[string]string{
			"type":     "message",
			"chatId":   ev.ChatID,
			"senderId": ev.SenderID,
		},
	})
}

// HandleAlert notifies the user a pending danger alert was created for.
func (s *Service) HandleAlert(ctx context.Context, ev PendingAlert) {
	log := s.logger.With().Str("event", "pending_alert").Str("uid", ev.UID).Logger()

	fromName := ev.FromName
	if fromName == "" {
		fromName = "Un proche"
	}

	s.notify(ctx, log, []string{ev.UID}, dispatch.Payload{
		Title: fmt.Sprintf("Alerte de %s", fromName),
		Body:  "Alerte ! je suis en danger — appuyez pour ouvrir la conversation",
		Data: map[string]string{
			"type":    "alert",
			"chatId":  ev.ChatID,
			"fromUid": ev.FromUID,
			"msgId":   ev.MsgID,
		},
	})
}

// HandleCall notifies the callee of an incoming call.
func (s *Service) HandleCall(ctx context.Context, ev Call) {
	log := s.logger.With().Str("event", "call").Str("call_id", ev.CallID).Logger()

	callerName := ev.CallerName
	if callerName == "" {
		callerName = "Appelant"
	}

	s.notify(ctx, log, []string{ev.Callee}, dispatch.Payload{
		Title: "Appel entrant",
		Body:  fmt.Sprintf("%s vous appelle", callerName),
		Data: map[string]string{
			"type":     "call",
			"callId":   ev.CallID,
			"callerId": ev.Caller,
		},
	})
}

// HandleMarketOrder notifies each seller owning an ordered item, then sends
// the buyer an order confirmation. Sellers are notified independently: one
// dispatch per seller, and a seller with no reachable device is skipped
// without affecting the others.
func (s *Service) HandleMarketOrder(ctx context.Context, ev MarketOrder) {
	log := s.logger.With().Str("event", "market_order").Str("order_id", ev.OrderID).Logger()

	type sellerItems struct {
		owner string
		count int
	}
	var sellers []*sellerItems
	byOwner := make(map[string]*sellerItems)

	for _, item := range ev.Items {
		if item.ProductID == "" {
			continue
		}
		product, err := s.source.Product(ctx, item.ProductID)
		if err != nil {
			log.Warn().Err(err).Str("product_id", item.ProductID).Msg("product lookup failed, item skipped")
			continue
		}
		if product.Owner == "" {
			continue
		}

		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		entry, ok := byOwner[product.Owner]
		if !ok {
			entry = &sellerItems{owner: product.Owner}
			byOwner[product.Owner] = entry
			sellers = append(sellers, entry)
		}
		entry.count += quantity
	}

	for _, seller := range sellers {
		body := fmt.Sprintf("Vous avez une nouvelle commande (%d article%s)", seller.count, plural(seller.count))
		s.notify(ctx, log, []string{seller.owner}, dispatch.Payload{
			Title: "Nouvelle commande",
			Body:  body,
			Data: map[string]string{
				"type":     "market_order",
				"orderId":  ev.OrderID,
				"ownerUid": seller.owner,
			},
		})
	}

	if ev.BuyerUID != "" {
		s.notify(ctx, log, []string{ev.BuyerUID}, dispatch.Payload{
			Title: "Commande reçue",
			Body:  "Votre commande a bien été enregistrée",
			Data: map[string]string{
				"type":    "market_order_confirm",
				"orderId": ev.OrderID,
			},
		})
	}
}

// HandleMarketMessage notifies the recipient of a marketplace message.
func (s *Service) HandleMarketMessage(ctx context.Context, ev MarketMessage) {
	log := s.logger.With().Str("event", "market_message").Str("msg_id", ev.MsgID).Logger()
	if ev.To == "" {
		log.Warn().Msg("event missing recipient, dropped")
		return
	}

	title := ev.ProductName
	if title == "" {
		title = "Nouveau message"
	}

	s.notify(ctx, log, []string{ev.To}, dispatch.Payload{
		Title: title,
		Body:  ev.Content,
		Data: map[string]string{
			"type":      "market_message",
			"productId": ev.ProductID,
			"from":      ev.From,
			"msgId":     ev.MsgID,
		},
	})
}

// Notify resolves recipients and delivers one notification to all their
// devices, then reconciles failed tokens. It is the direct-send entry point
// used by the HTTP surface; unlike the event handlers it reports terminal
// errors to its caller. A hint tier, when known, narrows the first lookup.
func (s *Service) Notify(ctx context.Context, recipients []string, hint directory.Tier, payload dispatch.Payload) (*dispatch.Result, error) {
	target := s.collect(ctx, s.logger, recipients, hint)
	if len(target.Tokens) == 0 && len(target.PlayerIDs) == 0 {
		return &dispatch.Result{}, nil
	}

	res, err := s.dispatcher.Dispatch(ctx, target, payload)
	if errors.Is(err, dispatch.ErrNoTokens) {
		// Player ids without a configured player provider: nothing the
		// multicast provider can address, so the batch is empty.
		return &dispatch.Result{}, nil
	}
	if err != nil {
		return nil, err
	}
	s.reconciler.Reconcile(ctx, res)
	return res, nil
}

// notify is the shared trigger path: resolve, dispatch, reconcile, absorb.
func (s *Service) notify(ctx context.Context, log zerolog.Logger, recipients []string, payload dispatch.Payload) {
	target := s.collect(ctx, log, recipients, "")
	if len(target.Tokens) == 0 && len(target.PlayerIDs) == 0 {
		log.Info().Int("recipients", len(recipients)).Msg("no reachable devices, nothing to send")
		return
	}

	res, err := s.dispatcher.Dispatch(ctx, target, payload)
	if errors.Is(err, dispatch.ErrNoTokens) {
		log.Info().Int("recipients", len(recipients)).Msg("no addressable devices, nothing to send")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("notification not delivered")
		return
	}
	s.reconciler.Reconcile(ctx, res)
}

// collect resolves each distinct recipient and unions their device
// addresses. Unknown recipients are skipped silently; they simply have no
// devices to notify.
func (s *Service) collect(ctx context.Context, log zerolog.Logger, recipients []string, hint directory.Tier) dispatch.Target {
	var target dispatch.Target
	seen := make(map[string]struct{}, len(recipients))

	for _, uid := range recipients {
		if uid == "" {
			continue
		}
		if _, ok := seen[uid]; ok {
			continue
		}
		seen[uid] = struct{}{}

		rec, err := s.resolver.Resolve(ctx, uid, hint)
		if errors.Is(err, directory.ErrUserNotFound) {
			continue
		}
		if err != nil {
			log.Warn().Err(err).Str("uid", uid).Msg("recipient resolution failed, skipped")
			continue
		}

		target.Tokens = append(target.Tokens, s.resolver.EffectiveTokens(ctx, rec)...)
		target.PlayerIDs = append(target.PlayerIDs, s.resolver.PlayerIDs(ctx, rec)...)
	}

	target.Tokens = dedupe(target.Tokens)
	target.PlayerIDs = dedupe(target.PlayerIDs)
	return target
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func plural(n int) string {
	if n > 1 {
		return "s"
	}
	return ""
}
