package sqlstore

import (
	"context"
	"fmt"

	"github.com/julianstephens/lifeplan/internal/models"
)

func (s *Store) GetProfile(ctx context.Context, userID string) (models.Profile, error) {
	var p models.Profile
	err := s.queryRow(ctx, `SELECT user_id, timezone, week_start FROM profiles WHERE user_id = ?`, userID).
		Scan(&p.UserID, &p.Timezone, &p.WeekStart)
	if err != nil {
		return models.Profile{}, notFound(err, "profile", userID)
	}
	return p, nil
}

func (s *Store) SaveProfile(ctx context.Context, p models.Profile) error {
	_, err := s.exec(ctx, s.db, `
		INSERT INTO profiles (user_id, timezone, week_start) VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET timezone = excluded.timezone, week_start = excluded.week_start`,
		p.UserID, p.Timezone, p.WeekStart)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}
