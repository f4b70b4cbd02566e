package infra

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"recipe-gateway/errs"
	"recipe-gateway/middleware/ratelimit/domain"
)

// quotaRow é a linha persistida pelo SQLStore. Payload usa o mesmo JSON do Redis.
type quotaRow struct {
	ClientKey string    `gorm:"column:client_key;primaryKey;size:255"`
	Payload   string    `gorm:"type:text;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
}

func (quotaRow) TableName() string { return "quota_windows" }

// SQLStore implementa domain.QuotaStore sobre GORM (SQLite em produção de nó único).
//
// O TTL é a coluna expires_at: Get ignora linhas vencidas e Purge as remove.
type SQLStore struct {
	db     *gorm.DB
	prefix string
	now    func() time.Time
}

type SQLStoreOption func(*SQLStore)

func WithSQLKeyPrefix(prefix string) SQLStoreOption {
	return func(s *SQLStore) { s.prefix = prefix }
}

func WithSQLClock(now func() time.Time) SQLStoreOption {
	return func(s *SQLStore) { s.now = now }
}

// NewSQLStore migra a tabela e devolve o store pronto.
func NewSQLStore(db *gorm.DB, opts ...SQLStoreOption) (*SQLStore, error) {
	s := &SQLStore{db: db, prefix: DefaultKeyPrefix, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if err := db.AutoMigrate(&quotaRow{}); err != nil {
		return nil, errs.Wrap(errs.CodeStore, "migrate quota table", err)
	}
	return s, nil
}

func (s *SQLStore) Get(ctx context.Context, k domain.Key) (domain.UsageWindow, bool, error) {
	var row quotaRow
	err := s.db.WithContext(ctx).
		Where("client_key = ? AND expires_at > ?", s.prefix+string(k), s.now().UTC()).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.UsageWindow{}, false, nil
	}
	if err != nil {
		return domain.UsageWindow{}, false, errs.Wrap(errs.CodeStore, "sql get", err)
	}
	w, err := decodeWindow([]byte(row.Payload))
	if err != nil {
		return domain.UsageWindow{}, false, errs.Wrap(errs.CodeStore, "decode usage window", err)
	}
	return w, true, nil
}

// Put faz upsert da linha (sobrescreve, sem merge).
func (s *SQLStore) Put(ctx context.Context, k domain.Key, w domain.UsageWindow, ttl time.Duration) error {
	b, err := encodeWindow(w)
	if err != nil {
		return errs.Wrap(errs.CodeStore, "encode usage window", err)
	}
	row := quotaRow{
		ClientKey: s.prefix + string(k),
		Payload:   string(b),
		ExpiresAt: s.now().Add(ttl).UTC(),
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "client_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "expires_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return errs.Wrap(errs.CodeStore, "sql upsert", err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, k domain.Key) error {
	err := s.db.WithContext(ctx).
		Where("client_key = ?", s.prefix+string(k)).
		Delete(&quotaRow{}).Error
	if err != nil {
		return errs.Wrap(errs.CodeStore, "sql delete", err)
	}
	return nil
}

// Purge apaga linhas vencidas e retorna quantas foram removidas.
func (s *SQLStore) Purge(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at <= ?", s.now().UTC()).
		Delete(&quotaRow{})
	if res.Error != nil {
		return 0, errs.Wrap(errs.CodeStore, "sql purge", res.Error)
	}
	return res.RowsAffected, nil
}
