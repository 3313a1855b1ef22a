// Package store is the durable record of sessions and conversation turns
// and the single source of truth for their ordering.
package store

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wpietrzak/kadrio/internal/models"
)

// HistoryPage is one page of a session's turns, oldest first.
type HistoryPage struct {
	Turns   []models.Turn
	Total   int64
	HasMore bool
}

// SessionPage is one page of active sessions, most recently active first.
type SessionPage struct {
	Sessions []models.Session
	Total    int64
	HasMore  bool
}

// SessionInfo is a session row enriched with live turn statistics.
type SessionInfo struct {
	models.Session
	ActualMessageCount int64
	LastMessageAt      *time.Time
}

// Store wraps the relational database. All ordering and transactional
// discipline lives here; callers hold no locks.
type Store struct {
	db *gorm.DB

	// softDelete is detected once at construction: when the sessions
	// table lacks the is_active column (legacy schema), deactivation
	// falls back to a cascading hard delete.
	softDelete bool
}

// New creates a Store over an already-migrated database.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("store: db is required")
	}
	return &Store{
		db:         db,
		softDelete: db.Migrator().HasColumn(&models.Session{}, "is_active"),
	}, nil
}

// DefaultSessionName labels sessions created without an explicit name.
func DefaultSessionName(now time.Time) string {
	return "Sesja " + now.Format("02.01.2006")
}

// CreateSessionIfAbsent inserts a session row, or refreshes
// last_activity_at if one already exists. Idempotent under concurrent
// creation: the unique index on session_id plus the upsert clause
// guarantee a single row.
func (s *Store) CreateSessionIfAbsent(ctx context.Context, sessionID, name string) error {
	now := time.Now()
	if name == "" {
		name = DefaultSessionName(now)
	}
	session := models.Session{
		SessionID:      sessionID,
		Name:           name,
		IsActive:       true,
		LastActivityAt: now,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"last_activity_at": now}),
	}).Create(&session).Error
	if err != nil {
		return fmt.Errorf("store: create session %s: %w", sessionID, err)
	}
	return nil
}

// AppendTurn atomically ensures the session row exists, inserts the turn,
// and bumps the session counters. The three steps commit together or not
// at all, so a turn is never visible with counters unbumped.
func (s *Store) AppendTurn(ctx context.Context, sessionID, userMessage, assistantResponse string, responseTimeMs int) (uint, error) {
	combined := utf8.RuneCountInString(userMessage) + utf8.RuneCountInString(assistantResponse)
	tokens := (combined + 3) / 4
	now := time.Now()

	turn := models.Turn{
		SessionID:         sessionID,
		UserMessage:       userMessage,
		AssistantResponse: assistantResponse,
		MessageLength:     combined,
		ResponseTimeMs:    responseTimeMs,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session := models.Session{
			SessionID:      sessionID,
			Name:           DefaultSessionName(now),
			IsActive:       true,
			LastActivityAt: now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoNothing: true,
		}).Create(&session).Error; err != nil {
			return fmt.Errorf("ensure session: %w", err)
		}

		if err := tx.Create(&turn).Error; err != nil {
			return fmt.Errorf("insert turn: %w", err)
		}

		res := tx.Model(&models.Session{}).
			Where("session_id = ?", sessionID).
			Updates(map[string]interface{}{
				"message_count":        gorm.Expr("message_count + 1"),
				"total_token_estimate": gorm.Expr("total_token_estimate + ?", tokens),
				"last_activity_at":     now,
			})
		if res.Error != nil {
			return fmt.Errorf("bump session counters: %w", res.Error)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("store: append turn for %s: %w", sessionID, err)
	}
	return turn.ID, nil
}

// GetHistory returns a page of a session's turns in chronological order
// (ascending id). On storage error the zero-valued page is returned
// alongside the error so callers can degrade instead of failing.
func (s *Store) GetHistory(ctx context.Context, sessionID string, limit, offset int) (HistoryPage, error) {
	var page HistoryPage

	var turns []models.Turn
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id").
		Limit(limit).Offset(offset).
		Find(&turns).Error
	if err != nil {
		return page, fmt.Errorf("store: history for %s: %w", sessionID, err)
	}

	var total int64
	err = s.db.WithContext(ctx).Model(&models.Turn{}).
		Where("session_id = ?", sessionID).
		Count(&total).Error
	if err != nil {
		return page, fmt.Errorf("store: history count for %s: %w", sessionID, err)
	}

	page.Turns = turns
	page.Total = total
	page.HasMore = int64(offset+len(turns)) < total
	return page, nil
}

// GetRecentContext returns up to pairs most recent turns, oldest first.
// The underlying fetch is most-recent-first; the result is reversed so
// prompt assembly sees chronological order.
func (s *Store) GetRecentContext(ctx context.Context, sessionID string, pairs int) ([]models.Turn, error) {
	if pairs <= 0 {
		return nil, nil
	}
	var turns []models.Turn
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id DESC").
		Limit(pairs).
		Find(&turns).Error
	if err != nil {
		return nil, fmt.Errorf("store: recent context for %s: %w", sessionID, err)
	}
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// ListSessions returns a page of active sessions ordered by most recent
// activity.
func (s *Store) ListSessions(ctx context.Context, limit, offset int) (SessionPage, error) {
	var page SessionPage

	var sessions []models.Session
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("last_activity_at DESC").
		Limit(limit).Offset(offset).
		Find(&sessions).Error
	if err != nil {
		return page, fmt.Errorf("store: list sessions: %w", err)
	}

	var total int64
	err = s.db.WithContext(ctx).Model(&models.Session{}).
		Where("is_active = ?", true).
		Count(&total).Error
	if err != nil {
		return page, fmt.Errorf("store: count sessions: %w", err)
	}

	page.Sessions = sessions
	page.Total = total
	page.HasMore = int64(offset+len(sessions)) < total
	return page, nil
}

// GetSession returns one session with live turn statistics, or nil if it
// does not exist.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	var session models.Session
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&session).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get session %s: %w", sessionID, err)
	}

	info := SessionInfo{Session: session}
	if err := s.db.WithContext(ctx).Model(&models.Turn{}).
		Where("session_id = ?", sessionID).
		Count(&info.ActualMessageCount).Error; err != nil {
		return nil, fmt.Errorf("store: count turns for %s: %w", sessionID, err)
	}

	var last models.Turn
	err = s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id DESC").
		First(&last).Error
	if err == nil {
		info.LastMessageAt = &last.CreatedAt
	} else if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("store: last turn for %s: %w", sessionID, err)
	}
	return &info, nil
}

// RenameSession updates a session's display name. Returns false when the
// session does not exist.
func (s *Store) RenameSession(ctx context.Context, sessionID, name string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("session_id = ?", sessionID).
		Update("name", name)
	if res.Error != nil {
		return false, fmt.Errorf("store: rename session %s: %w", sessionID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// DeactivateSession soft-deletes a session. On a legacy schema without
// the is_active column it cascades a hard delete of the turns and the
// session row instead; both behaviors are transparent to the caller.
func (s *Store) DeactivateSession(ctx context.Context, sessionID string) (bool, error) {
	if s.softDelete {
		res := s.db.WithContext(ctx).Model(&models.Session{}).
			Where("session_id = ?", sessionID).
			Update("is_active", false)
		if res.Error != nil {
			return false, fmt.Errorf("store: deactivate session %s: %w", sessionID, res.Error)
		}
		return res.RowsAffected > 0, nil
	}

	var affected int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&models.Turn{}).Error; err != nil {
			return fmt.Errorf("delete turns: %w", err)
		}
		res := tx.Where("session_id = ?", sessionID).Delete(&models.Session{})
		if res.Error != nil {
			return fmt.Errorf("delete session: %w", res.Error)
		}
		affected = res.RowsAffected
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("store: hard-delete session %s: %w", sessionID, err)
	}
	return affected > 0, nil
}

// Counts returns the number of active sessions and total turns, used by
// the nightly maintenance digest.
func (s *Store) Counts(ctx context.Context) (sessions, turns int64, err error) {
	if err = s.db.WithContext(ctx).Model(&models.Session{}).
		Where("is_active = ?", true).Count(&sessions).Error; err != nil {
		return 0, 0, fmt.Errorf("store: count sessions: %w", err)
	}
	if err = s.db.WithContext(ctx).Model(&models.Turn{}).Count(&turns).Error; err != nil {
		return 0, 0, fmt.Errorf("store: count turns: %w", err)
	}
	return sessions, turns, nil
}
