package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/events"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/repository"
)

const (
	MaxNotificationMessageLength = 150
	MaxNotificationStatusLength  = 50
)

type NotificationInput struct {
	RUT       string `json:"rut"`
	ChannelID int64  `json:"channelId"`
	Message   string `json:"message"`
	Status    string `json:"status"`
}

// NotificationService records customer notifications. Delivery is not its
// concern; a created notification stays pending until something sends it.
type NotificationService struct {
	repo      repository.NotificationRepository
	publisher events.Publisher
	logger    *slog.Logger
}

func NewNotificationService(repo repository.NotificationRepository, publisher events.Publisher, logger *slog.Logger) *NotificationService {
	return &NotificationService{repo: repo, publisher: publisher, logger: logger}
}

func (s *NotificationService) Create(ctx context.Context, in NotificationInput) (*model.Notification, error) {
	n := &model.Notification{
		CustomerRUT: strings.TrimSpace(in.RUT),
		ChannelID:   in.ChannelID,
		Message:     strings.TrimSpace(in.Message),
		Status:      strings.TrimSpace(in.Status),
	}
	switch {
	case n.CustomerRUT == "":
		return nil, apperror.ValidationFailed("rut", "rut is required")
	case n.Message == "":
		return nil, apperror.ValidationFailed("message", "message is required")
	case utf8.RuneCountInString(n.Message) > MaxNotificationMessageLength:
		return nil, apperror.ValidationFailed("message",
			fmt.Sprintf("message must be %d characters or less", MaxNotificationMessageLength))
	case utf8.RuneCountInString(n.Status) > MaxNotificationStatusLength:
		return nil, apperror.ValidationFailed("status",
			fmt.Sprintf("status must be %d characters or less", MaxNotificationStatusLength))
	}
	if n.Status == "" {
		n.Status = model.NotificationStatusPending
	}

	ch, err := s.repo.GetChannel(ctx, n.ChannelID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.BadRequest(fmt.Sprintf("notification channel %d does not exist", n.ChannelID))
		}
		return nil, fmt.Errorf("service/notification: fetching channel %d: %w", n.ChannelID, err)
	}

	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("service/notification: creating for %s: %w", n.CustomerRUT, err)
	}
	n.Channel = ch

	s.logger.Info("notification created",
		slog.Int64("notificationID", n.ID),
		slog.String("rut", n.CustomerRUT),
		slog.String("channel", ch.Name),
	)
	events.Emit(ctx, s.publisher, s.logger, events.TypeNotificationCreated, strconv.FormatInt(n.ID, 10),
		events.NotificationCreated{NotificationID: n.ID, CustomerRUT: n.CustomerRUT, ChannelID: n.ChannelID})
	return n, nil
}

// ListByCustomer returns the customer's notifications, newest first.
func (s *NotificationService) ListByCustomer(ctx context.Context, rut string) ([]model.Notification, error) {
	list, err := s.repo.ListNotificationsByCustomer(ctx, strings.TrimSpace(rut))
	if err != nil {
		return nil, fmt.Errorf("service/notification: listing for %s: %w", rut, err)
	}
	if list == nil {
		list = []model.Notification{}
	}
	return list, nil
}
