package sqlstore

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/repository"
)

var _ repository.NotificationRepository = (*DB)(nil)

type notificationRow struct {
	ID          int64          `db:"notification_id"`
	CustomerRUT string         `db:"rut"`
	ChannelID   int64          `db:"channel_id"`
	Message     string         `db:"message"`
	CreatedAt   time.Time      `db:"creation_date"`
	SentAt      sql.NullTime   `db:"sending_date"`
	Status      string         `db:"status"`
	ChannelName sql.NullString `db:"channel_name"`
}

func (r notificationRow) toModel() model.Notification {
	n := model.Notification{
		ID:          r.ID,
		CustomerRUT: r.CustomerRUT,
		ChannelID:   r.ChannelID,
		Message:     r.Message,
		CreatedAt:   r.CreatedAt,
		Status:      r.Status,
	}
	if r.SentAt.Valid {
		sent := r.SentAt.Time
		n.SentAt = &sent
	}
	if r.ChannelName.Valid {
		n.Channel = &model.NotificationChannel{ID: r.ChannelID, Name: r.ChannelName.String}
	}
	return n
}

func (db *DB) CreateNotification(ctx context.Context, n *model.Notification) error {
	id, err := db.ids.Reserve(ctx, db.conn, "notifications", 1)
	if err != nil {
		return storageError("allocating notification id", err)
	}

	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	n.CreatedAt = n.CreatedAt.UTC()

	var sent sql.NullTime
	if n.SentAt != nil {
		sent = sql.NullTime{Time: n.SentAt.UTC(), Valid: true}
	}

	newID, err := db.insert(ctx, db.conn, "notifications", id,
		[]string{"rut", "channel_id", "message", "creation_date", "sending_date", "status"},
		[]any{n.CustomerRUT, n.ChannelID, n.Message, n.CreatedAt, sent, n.Status},
	)
	if err != nil {
		return writeError("inserting notification", "notification", strconv.FormatInt(id, 10), err,
			"customer or channel does not exist")
	}
	n.ID = newID
	return nil
}

// ListNotificationsByCustomer returns the customer's notifications, newest
// first, with channel names.
func (db *DB) ListNotificationsByCustomer(ctx context.Context, rut string) ([]model.Notification, error) {
	var rows []notificationRow
	err := db.conn.SelectContext(ctx, &rows, db.conn.Rebind(
		`SELECT n.notification_id, n.rut, n.channel_id, n.message, n.creation_date,
		        n.sending_date, n.status, ch.name AS channel_name
		 FROM notifications n
		 LEFT JOIN notification_channels ch ON ch.channel_id = n.channel_id
		 WHERE n.rut = ?
		 ORDER BY n.creation_date DESC, n.notification_id DESC`), rut)
	if err != nil {
		return nil, storageError("listing notifications", err)
	}

	out := make([]model.Notification, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func (db *DB) GetChannel(ctx context.Context, id int64) (*model.NotificationChannel, error) {
	var ch model.NotificationChannel
	err := db.conn.GetContext(ctx, &ch,
		db.conn.Rebind(`SELECT channel_id, name FROM notification_channels WHERE channel_id = ?`), id)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("notification channel", strconv.FormatInt(id, 10))
		}
		return nil, storageError("reading notification channel", err)
	}
	return &ch, nil
}
