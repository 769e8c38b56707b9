// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/olegiv/polite/internal/cipher"
	"github.com/olegiv/polite/internal/metrics"
	"github.com/olegiv/polite/internal/model"
	"github.com/olegiv/polite/internal/store"
)

// EncryptionService encrypts chat messages and keeps the ciphertext.
type EncryptionService struct {
	cipher  *cipher.Cipher
	queries *store.Queries
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewEncryptionService creates an EncryptionService. c is nil when no
// encryption key is configured; every Encrypt call then fails.
func NewEncryptionService(db *sql.DB, c *cipher.Cipher, logger *slog.Logger, m *metrics.Metrics) *EncryptionService {
	return &EncryptionService{
		cipher:  c,
		queries: store.New(db),
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// Encrypt encrypts message, stores the payload and returns it.
func (s *EncryptionService) Encrypt(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		s.metrics.RecordEncrypt(metrics.OutcomeInvalid)
		return "", model.NewValidationError("message", "Message is required")
	}

	payload, err := s.encryptAndSave(ctx, message)
	if err != nil {
		s.metrics.RecordEncrypt(metrics.OutcomeError)
		s.logger.Error("encryption failed", "category", model.EventCategoryEncrypt, "error", err)
		return "", err
	}

	s.metrics.RecordEncrypt(metrics.OutcomeOK)
	return payload, nil
}

func (s *EncryptionService) encryptAndSave(ctx context.Context, message string) (string, error) {
	if s.cipher == nil {
		return "", cipher.ErrNoKey
	}

	payload, err := s.cipher.Encrypt(message)
	if err != nil {
		return "", err
	}

	if _, err := s.queries.CreateEncryptedMessage(ctx, payload, s.now()); err != nil {
		return "", fmt.Errorf("saving encrypted message: %w", err)
	}
	return payload, nil
}
