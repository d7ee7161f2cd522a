package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/skip2/go-qrcode"
)

var (
	ErrReceiptNotFound    = errors.New("invalid or expired receipt code")
	ErrReceiptUnavailable = errors.New("receipt verification unavailable")
)

// receiptTTL bounds how long a printed receipt can be verified.
const receiptTTL = 30 * 24 * time.Hour

// Receipt is the payload encoded into a donation receipt QR code.
type Receipt struct {
	DonationID     int64     `json:"donation_id"`
	FullAmount     int64     `json:"full_amount"`
	InvestedAmount int64     `json:"invested_amount"`
	CreateDate     time.Time `json:"create_date"`
	IssuedAt       time.Time `json:"issued_at"`
	Nonce          string    `json:"nonce"`
}

type ReceiptService struct {
	db    *sql.DB
	redis *redis.Client
	now   func() time.Time
	nonce func() string
}

func NewReceiptService(db *sql.DB, redis *redis.Client) *ReceiptService {
	return &ReceiptService{
		db:    db,
		redis: redis,
		now:   func() time.Time { return time.Now().UTC() },
		nonce: generateNonce,
	}
}

// GenerateReceipt renders a QR receipt for a donation owned by userID. It
// returns the code embedded in the image and the PNG bytes.
func (s *ReceiptService) GenerateReceipt(ctx context.Context, donationID, userID int64) (string, []byte, error) {
	donation, err := getOwnDonation(ctx, s.db, donationID, userID)
	if err != nil {
		return "", nil, err
	}

	receipt := Receipt{
		DonationID:     donation.ID,
		FullAmount:     donation.FullAmount,
		InvestedAmount: donation.InvestedAmount,
		CreateDate:     donation.CreateDate,
		IssuedAt:       s.now(),
		Nonce:          s.nonce(),
	}

	jsonData, err := json.Marshal(receipt)
	if err != nil {
		return "", nil, err
	}

	code := base64.URLEncoding.EncodeToString(jsonData)

	if s.redis != nil {
		if err := s.redis.Set(ctx, receiptKey(code), jsonData, receiptTTL).Err(); err != nil {
			return "", nil, err
		}
	}

	qr, err := qrcode.New(code, qrcode.Medium)
	if err != nil {
		return "", nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(256)); err != nil {
		return "", nil, err
	}

	return code, buf.Bytes(), nil
}

// VerifyReceipt returns the receipt issued under code.
func (s *ReceiptService) VerifyReceipt(ctx context.Context, code string) (*Receipt, error) {
	if s.redis == nil {
		return nil, ErrReceiptUnavailable
	}

	data, err := s.redis.Get(ctx, receiptKey(code)).Bytes()
	if err == redis.Nil {
		return nil, ErrReceiptNotFound
	}
	if err != nil {
		return nil, err
	}

	var receipt Receipt
	if err := json.Unmarshal(data, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func receiptKey(code string) string {
	return fmt.Sprintf("receipt:%s", code)
}

func generateNonce() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
