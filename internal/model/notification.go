package model

import "time"

const NotificationStatusPending = "pending"

type Notification struct {
	ID          int64      `json:"notificationId"`
	CustomerRUT string     `json:"rut"`
	ChannelID   int64      `json:"channelId"`
	Message     string     `json:"message"`
	CreatedAt   time.Time  `json:"creationDate"`
	SentAt      *time.Time `json:"sendingDate,omitempty"`
	Status      string     `json:"status"`

	Channel *NotificationChannel `json:"channel,omitempty"`
}

type NotificationChannel struct {
	ID   int64  `json:"channelId" db:"channel_id"`
	Name string `json:"name"      db:"name"`
}

// OTP statuses.
const (
	OTPActive  = "active"
	OTPExpired = "expired"
	OTPUsed    = "used"
)

// OTP is a one-time verification code issued to a user.
type OTP struct {
	ID        int64     `json:"otpId"          db:"otp_id"`
	UserID    int64     `json:"userId"         db:"user_id"`
	Code      string    `json:"-"              db:"code"`
	ExpiresAt time.Time `json:"expirationDate" db:"expiration_date"`
	Status    string    `json:"status"         db:"status"`
	CreatedAt time.Time `json:"creationDate"   db:"creation_date"`
}
