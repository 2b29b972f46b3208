package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/benjaminBrynildsen/Coffee-Pass/internal/domain"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrMalformedKey = errors.New("malformed API key")
	ErrInvalidKey   = errors.New("invalid API key")
	ErrExpiredKey   = errors.New("API key expired")
)

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// CreateIntegrationKey issues a key for a shop's point-of-sale provider. The returned
// "<prefix>.<secret>" string is the only time the secret is available.
func CreateIntegrationKey(ctx context.Context, db *gorm.DB, shopID, provider string, expiresAt *time.Time) (string, *models.IntegrationKey, error) {
	var shop models.Shop
	if err := db.WithContext(ctx).First(&shop, "id = ?", shopID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, fmt.Errorf("shop %q: %w", shopID, domain.ErrUnknownEntity)
		}
		return "", nil, err
	}

	prefix, err := randomHex(6)
	if err != nil {
		return "", nil, err
	}
	secret, err := randomHex(32)
	if err != nil {
		return "", nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, err
	}

	key := models.IntegrationKey{
		ShopID:     shopID,
		Provider:   provider,
		Prefix:     prefix,
		SecretHash: string(hash),
		ExpiresAt:  expiresAt,
	}
	if err := db.WithContext(ctx).Create(&key).Error; err != nil {
		return "", nil, err
	}
	return prefix + "." + secret, &key, nil
}

// VerifyIntegrationKey checks a raw "<prefix>.<secret>" key and stamps its last use.
func VerifyIntegrationKey(ctx context.Context, db *gorm.DB, raw string, now time.Time) (*models.IntegrationKey, error) {
	prefix, secret, ok := strings.Cut(raw, ".")
	if !ok || prefix == "" || secret == "" {
		return nil, ErrMalformedKey
	}

	var key models.IntegrationKey
	if err := db.WithContext(ctx).Where("prefix = ?", prefix).First(&key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidKey
		}
		return nil, err
	}
	if key.ExpiresAt != nil && now.After(*key.ExpiresAt) {
		return nil, ErrExpiredKey
	}
	if err := bcrypt.CompareHashAndPassword([]byte(key.SecretHash), []byte(secret)); err != nil {
		return nil, ErrInvalidKey
	}

	if err := db.WithContext(ctx).Model(&key).Update("last_used_at", now).Error; err != nil {
		log.Printf("auth: record use of integration key %s: %v", key.Prefix, err)
	}
	return &key, nil
}
