package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lodgio/whatsapp-gateway/internal/graph"
	"github.com/lodgio/whatsapp-gateway/internal/model"
	"github.com/lodgio/whatsapp-gateway/internal/repository"
	"github.com/lodgio/whatsapp-gateway/pkg/logger"
)

var (
	ErrEmptyContent         = errors.New("message content cannot be empty")
	ErrEmptyRecipient       = errors.New("recipient cannot be empty")
	ErrConversationNotFound = errors.New("conversation not found")
)

type ConversationRepository interface {
	Create(ctx context.Context, conv *model.Conversation) (*model.Conversation, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Conversation, error)
	GetByTenantAndWaID(ctx context.Context, tenantID uuid.UUID, waID string) (*model.Conversation, error)
	Update(ctx context.Context, conv *model.Conversation) (*model.Conversation, error)
	ListByTenant(ctx context.Context, f model.ConversationFilter) ([]*model.Conversation, int64, error)
}

type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) (*model.Message, error)
	GetByWhatsAppID(ctx context.Context, wamid string) (*model.Message, error)
	Update(ctx context.Context, msg *model.Message) (*model.Message, error)
	ListByConversation(ctx context.Context, f model.MessageFilter) ([]*model.Message, int64, error)
}

// MessageSender is the outbound slice of the Graph API.
type MessageSender interface {
	SendText(ctx context.Context, phoneNumberID, accessToken, to, text string) (*graph.SendMessageResponse, error)
}

// ConversationService owns the message ledger: outbound sends, inbound
// webhook messages, and delivery status updates all land here.
type ConversationService struct {
	conversations ConversationRepository
	messages      MessageRepository
	sender        MessageSender
	cache         *ClientCache
	now           func() time.Time
}

func NewConversationService(conversations ConversationRepository, messages MessageRepository, sender MessageSender, cache *ClientCache) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		messages:      messages,
		sender:        sender,
		cache:         cache,
		now:           time.Now,
	}
}

// SendText sends a text message on behalf of the tenant and records it in
// the ledger as SENT.
func (s *ConversationService) SendText(ctx context.Context, tenantID uuid.UUID, to, text string) (*model.Message, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return nil, ErrEmptyRecipient
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyContent
	}

	handle, err := s.cache.Handle(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	resp, err := s.sender.SendText(ctx, handle.PhoneNumberID, handle.AccessToken, to, text)
	if err != nil {
		return nil, fmt.Errorf("send text: %w", err)
	}

	conv, err := s.findOrCreateConversation(ctx, tenantID, to, to, "")
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	msg, err := s.messages.Create(ctx, &model.Message{
		ConversationID: conv.ID,
		WhatsAppID:     resp.MessageID(),
		Direction:      model.DirectionOutbound,
		Type:           model.TypeText,
		Content:        text,
		Status:         model.StatusSent,
		SentAt:         now,
	})
	if err != nil {
		return nil, err
	}

	s.touchConversation(ctx, conv, "", now)
	return msg, nil
}

// RecordOutbound stores a message that was delivered upstream by another
// channel, template and media sends included, so the ledger stays complete.
func (s *ConversationService) RecordOutbound(ctx context.Context, tenantID uuid.UUID, to, wamid string, msgType model.MessageType, content string) (*model.Message, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return nil, ErrEmptyRecipient
	}
	if wamid == "" {
		return nil, errors.New("wamid is required")
	}
	if existing, err := s.messages.GetByWhatsAppID(ctx, wamid); err == nil {
		return existing, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	conv, err := s.findOrCreateConversation(ctx, tenantID, to, to, "")
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	msg, err := s.messages.Create(ctx, &model.Message{
		ConversationID: conv.ID,
		WhatsAppID:     wamid,
		Direction:      model.DirectionOutbound,
		Type:           msgType,
		Content:        content,
		Status:         model.StatusSent,
		SentAt:         now,
	})
	if err != nil {
		return nil, err
	}

	s.touchConversation(ctx, conv, "", now)
	return msg, nil
}

// RecordInbound persists an inbound webhook message. Redelivered messages
// are recognized by wamid and return the already-stored row unchanged.
// Inbound messages are DELIVERED on arrival: receiving the webhook is the
// delivery.
func (s *ConversationService) RecordInbound(ctx context.Context, tenantID uuid.UUID, incoming *graph.Message, contact *graph.Contact) (*model.Message, error) {
	existing, err := s.messages.GetByWhatsAppID(ctx, incoming.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	name := ""
	if contact != nil {
		name = contact.Profile.Name
	}
	conv, err := s.findOrCreateConversation(ctx, tenantID, incoming.From, incoming.From, name)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	sentAt := parseWebhookTimestamp(incoming.Timestamp, now)
	msg := &model.Message{
		ConversationID: conv.ID,
		WhatsAppID:     incoming.ID,
		Direction:      model.DirectionInbound,
		Status:         model.StatusDelivered,
		SentAt:         sentAt,
		DeliveredAt:    &now,
	}
	classifyInbound(msg, incoming)

	created, err := s.messages.Create(ctx, msg)
	if err != nil {
		return nil, err
	}

	s.touchConversation(ctx, conv, name, sentAt)
	return created, nil
}

// ApplyStatusUpdate advances a message's delivery state from a webhook
// status notification. Unknown wamids and unknown labels are dropped, not
// errors: status webhooks arrive at least once and for messages this
// gateway never sent.
func (s *ConversationService) ApplyStatusUpdate(ctx context.Context, status *graph.Status) error {
	msg, err := s.messages.GetByWhatsAppID(ctx, status.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Debug("status update for unknown message", "wamid", status.ID, "status", status.Status)
			return nil
		}
		return err
	}

	next, ok := model.ParseMessageStatus(status.Status)
	if !ok {
		logger.Warn("unrecognized status label", "wamid", status.ID, "status", status.Status)
		return nil
	}

	at := parseWebhookTimestamp(status.Timestamp, s.now().UTC())
	if !msg.ApplyStatus(next, at) {
		return nil
	}
	if next == model.StatusFailed && len(status.Errors) > 0 {
		msg.FailedReason = status.Errors[0].Message
	}

	_, err = s.messages.Update(ctx, msg)
	return err
}

func (s *ConversationService) ListConversations(ctx context.Context, f model.ConversationFilter) ([]*model.Conversation, int64, error) {
	return s.conversations.ListByTenant(ctx, f)
}

func (s *ConversationService) ListMessages(ctx context.Context, f model.MessageFilter) ([]*model.Message, int64, error) {
	if _, err := s.conversations.GetByID(ctx, f.ConversationID); err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			return nil, 0, ErrConversationNotFound
		}
		return nil, 0, err
	}
	return s.messages.ListByConversation(ctx, f)
}

// findOrCreateConversation returns the single thread for (tenant, wa_id).
func (s *ConversationService) findOrCreateConversation(ctx context.Context, tenantID uuid.UUID, waID, phone, name string) (*model.Conversation, error) {
	conv, err := s.conversations.GetByTenantAndWaID(ctx, tenantID, waID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, repository.ErrConversationNotFound) {
		return nil, err
	}

	return s.conversations.Create(ctx, &model.Conversation{
		TenantID:      tenantID,
		CustomerWaID:  waID,
		CustomerPhone: phone,
		CustomerName:  name,
		Status:        model.ConversationActive,
	})
}

// touchConversation bumps activity and applies the latest known profile
// name. Failures are logged only; the message itself is already stored.
func (s *ConversationService) touchConversation(ctx context.Context, conv *model.Conversation, name string, at time.Time) {
	changed := false
	if conv.LastMessageAt == nil || at.After(*conv.LastMessageAt) {
		conv.LastMessageAt = &at
		changed = true
	}
	if name != "" && name != conv.CustomerName {
		conv.CustomerName = name
		changed = true
	}
	if !changed {
		return
	}
	if _, err := s.conversations.Update(ctx, conv); err != nil {
		logger.Error("failed to update conversation activity", "conversation_id", conv.ID.String(), "error", err)
	}
}

// classifyInbound maps the webhook message shape onto the ledger's type and
// content columns.
func classifyInbound(msg *model.Message, in *graph.Message) {
	switch {
	case in.Text != nil:
		msg.Type = model.TypeText
		msg.Content = in.Text.Body
	case in.Image != nil:
		msg.Type = model.TypeImage
		applyMedia(msg, in.Image)
	case in.Audio != nil:
		msg.Type = model.TypeAudio
		applyMedia(msg, in.Audio)
	case in.Video != nil:
		msg.Type = model.TypeVideo
		applyMedia(msg, in.Video)
	case in.Document != nil:
		msg.Type = model.TypeDocument
		applyMedia(msg, in.Document)
	case in.Location != nil:
		msg.Type = model.TypeLocation
		msg.Content = fmt.Sprintf("%f,%f", in.Location.Latitude, in.Location.Longitude)
	case in.Button != nil:
		msg.Type = model.TypeButton
		msg.Content = in.Button.Text
	case in.Interactive != nil:
		msg.Type = model.TypeInteractive
		if in.Interactive.ButtonReply != nil {
			msg.Content = in.Interactive.ButtonReply.Title
		} else if in.Interactive.ListReply != nil {
			msg.Content = in.Interactive.ListReply.Title
		}
	default:
		msg.Type = model.TypeUnknown
	}
}

func applyMedia(msg *model.Message, media *graph.Media) {
	msg.MediaID = media.ID
	msg.MediaURL = media.Link
	msg.MediaMimeType = media.MimeType
	msg.MediaFilename = media.Filename
	msg.Content = media.Caption
}

// parseWebhookTimestamp decodes the unix-seconds string Meta sends.
func parseWebhookTimestamp(ts string, fallback time.Time) time.Time {
	secs, err := strconv.ParseInt(ts, 10, 64)
	if err != nil || secs <= 0 {
		return fallback
	}
	return time.Unix(secs, 0).UTC()
}
