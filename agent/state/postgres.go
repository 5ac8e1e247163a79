package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/thoriqalqi/VISTARA/agent/contract"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// PostgresConfig selects the durable store. An empty DSN keeps everything in memory.
type PostgresConfig struct {
	DSN string `envconfig:"DSN"`
}

type conversationRow struct {
	bun.BaseModel `bun:"table:conversations,alias:c"`

	ID        string                    `bun:"id,pk"`
	UserID    string                    `bun:"user_id,notnull"`
	Context   contractx.BusinessContext `bun:"context,type:jsonb,notnull"`
	Version   int                       `bun:"version,notnull"`
	CreatedAt time.Time                 `bun:"created_at,notnull"`
	UpdatedAt time.Time                 `bun:"updated_at,notnull"`
}

type messageRow struct {
	bun.BaseModel `bun:"table:messages,alias:m"`

	Seq            int64                   `bun:"seq,pk,autoincrement"`
	ID             string                  `bun:"id,unique,notnull"`
	ConversationID string                  `bun:"conversation_id,notnull"`
	Agent          string                  `bun:"agent,notnull"`
	Response       contractx.AgentResponse `bun:"response,type:jsonb,notnull"`
	CreatedAt      time.Time               `bun:"created_at,notnull"`
}

type profileRow struct {
	bun.BaseModel `bun:"table:profiles,alias:p"`

	UserID       string              `bun:"user_id,pk"`
	BusinessName string              `bun:"business_name"`
	BusinessType string              `bun:"business_type"`
	Location     *contractx.Location `bun:"location,type:jsonb"`
	MapsPlaceID  string              `bun:"maps_place_id"`
	UpdatedAt    time.Time           `bun:"updated_at,notnull"`
}

type notificationRow struct {
	bun.BaseModel `bun:"table:notifications,alias:n"`

	ID        string                  `bun:"id,pk"`
	UserID    string                  `bun:"user_id,notnull"`
	Type      string                  `bun:"type,notnull"`
	Title     string                  `bun:"title,notnull"`
	Data      contractx.AgentResponse `bun:"data,type:jsonb,notnull"`
	Read      bool                    `bun:"read,notnull,default:false"`
	CreatedAt time.Time               `bun:"created_at,notnull"`
}

// PostgresStore is the durable store for conversations, message history,
// business profiles and notifications.
type PostgresStore struct {
	db  *bun.DB
	now func() time.Time
}

var (
	_ Store             = (*PostgresStore)(nil)
	_ HistoryStore      = (*PostgresStore)(nil)
	_ ProfileStore      = (*PostgresStore)(nil)
	_ NotificationStore = (*PostgresStore)(nil)
)

// OpenPostgres connects through pgdriver. The returned store owns the pool.
func OpenPostgres(cfg PostgresConfig) (*PostgresStore, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return NewPostgresStore(bun.NewDB(sqldb, pgdialect.New())), nil
}

func NewPostgresStore(db *bun.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Migrate creates the tables and indexes when they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	models := []any{
		(*conversationRow)(nil),
		(*messageRow)(nil),
		(*profileRow)(nil),
		(*notificationRow)(nil),
	}
	for _, model := range models {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("%w: create table: %v", contractx.ErrPersistence, err)
		}
	}

	indexes := []struct {
		model   any
		name    string
		columns []string
	}{
		{(*messageRow)(nil), "messages_conversation_seq_idx", []string{"conversation_id", "seq"}},
		{(*notificationRow)(nil), "notifications_user_created_idx", []string{"user_id", "created_at"}},
		{(*conversationRow)(nil), "conversations_user_idx", []string{"user_id"}},
	}
	for _, idx := range indexes {
		_, err := s.db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			Column(idx.columns...).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("%w: create index %s: %v", contractx.ErrPersistence, idx.name, err)
		}
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, conversationID string) (*Conversation, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, ErrInvalidConversation
	}
	var row conversationRow
	err := s.db.NewSelect().Model(&row).Where("c.id = ?", conversationID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load conversation: %v", contractx.ErrPersistence, err)
	}
	return row.toConversation(), nil
}

func (s *PostgresStore) Save(ctx context.Context, c *Conversation) error {
	if err := c.Validate(); err != nil {
		return err
	}
	row := conversationRowFrom(c, s.now())
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("context = EXCLUDED.context").
		Set("version = EXCLUDED.version").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: save conversation: %v", contractx.ErrPersistence, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, conversationID string) error {
	if strings.TrimSpace(conversationID) == "" {
		return ErrInvalidConversation
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*messageRow)(nil)).Where("conversation_id = ?", conversationID).Exec(ctx); err != nil {
			return fmt.Errorf("%w: delete messages: %v", contractx.ErrPersistence, err)
		}
		if _, err := tx.NewDelete().Model((*conversationRow)(nil)).Where("id = ?", conversationID).Exec(ctx); err != nil {
			return fmt.Errorf("%w: delete conversation: %v", contractx.ErrPersistence, err)
		}
		return nil
	})
}

// AppendMessages writes the batch in one transaction so a turn's log is all or nothing.
func (s *PostgresStore) AppendMessages(ctx context.Context, conversationID string, msgs []Message) error {
	if strings.TrimSpace(conversationID) == "" {
		return ErrInvalidConversation
	}
	if len(msgs) == 0 {
		return nil
	}
	rows := messageRowsFrom(conversationID, msgs, s.now())
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return fmt.Errorf("%w: append messages: %v", contractx.ErrPersistence, err)
		}
		return nil
	})
}

func (s *PostgresStore) ListMessages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	var rows []messageRow
	q := s.db.NewSelect().Model(&rows).Where("m.conversation_id = ?", conversationID).Order("m.seq DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("%w: list messages: %v", contractx.ErrPersistence, err)
	}
	out := make([]Message, len(rows))
	for i, row := range rows {
		out[len(rows)-1-i] = row.toMessage()
	}
	return out, nil
}

func (s *PostgresStore) LoadProfile(ctx context.Context, userID string) (*Profile, error) {
	var row profileRow
	err := s.db.NewSelect().Model(&row).Where("p.user_id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load profile: %v", contractx.ErrPersistence, err)
	}
	p := row.toProfile()
	return &p, nil
}

func (s *PostgresStore) SaveProfile(ctx context.Context, p *Profile) error {
	if p == nil || strings.TrimSpace(p.UserID) == "" {
		return ErrInvalidUser
	}
	row := profileRowFrom(p, s.now())
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (user_id) DO UPDATE").
		Set("business_name = EXCLUDED.business_name").
		Set("business_type = EXCLUDED.business_type").
		Set("location = EXCLUDED.location").
		Set("maps_place_id = EXCLUDED.maps_place_id").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: save profile: %v", contractx.ErrPersistence, err)
	}
	return nil
}

func (s *PostgresStore) ListProfiles(ctx context.Context, limit int) ([]Profile, error) {
	return s.listProfiles(ctx, limit, false)
}

func (s *PostgresStore) ListProfilesWithPlaceID(ctx context.Context, limit int) ([]Profile, error) {
	return s.listProfiles(ctx, limit, true)
}

func (s *PostgresStore) listProfiles(ctx context.Context, limit int, withPlace bool) ([]Profile, error) {
	var rows []profileRow
	q := s.db.NewSelect().Model(&rows).Order("p.user_id ASC")
	if withPlace {
		q = q.Where("p.maps_place_id <> ''")
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("%w: list profiles: %v", contractx.ErrPersistence, err)
	}
	out := make([]Profile, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toProfile())
	}
	return out, nil
}

func (s *PostgresStore) AddNotification(ctx context.Context, n *Notification) error {
	if n == nil || strings.TrimSpace(n.UserID) == "" {
		return ErrInvalidUser
	}
	if strings.TrimSpace(n.ID) == "" {
		return errors.New("notification id is empty")
	}
	row := notificationRowFrom(n, s.now())
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("%w: add notification: %v", contractx.ErrPersistence, err)
	}
	return nil
}

func (s *PostgresStore) ListNotifications(ctx context.Context, userID string, limit int) ([]Notification, error) {
	var rows []notificationRow
	q := s.db.NewSelect().Model(&rows).Where("n.user_id = ?", userID).Order("n.created_at DESC", "n.id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("%w: list notifications: %v", contractx.ErrPersistence, err)
	}
	out := make([]Notification, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toNotification())
	}
	return out, nil
}

func (s *PostgresStore) MarkNotificationRead(ctx context.Context, userID, notificationID string) error {
	res, err := s.db.NewUpdate().
		Model((*notificationRow)(nil)).
		Set("read = ?", true).
		Where("id = ?", notificationID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: mark notification read: %v", contractx.ErrPersistence, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: mark notification read: %v", contractx.ErrPersistence, err)
	}
	if n == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func conversationRowFrom(c *Conversation, now time.Time) *conversationRow {
	row := &conversationRow{
		ID:        c.ID,
		UserID:    c.UserID,
		Context:   c.Context.Clone(),
		Version:   c.Version,
		CreatedAt: c.CreatedAt.UTC(),
		UpdatedAt: c.UpdatedAt.UTC(),
	}
	if row.Version <= 0 {
		row.Version = 1
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now.UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = now.UTC()
	}
	return row
}

func (r conversationRow) toConversation() *Conversation {
	return &Conversation{
		ID:        r.ID,
		UserID:    r.UserID,
		Context:   r.Context,
		Version:   r.Version,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func messageRowsFrom(conversationID string, msgs []Message, now time.Time) []messageRow {
	rows := make([]messageRow, 0, len(msgs))
	for _, m := range msgs {
		created := m.CreatedAt
		if created.IsZero() {
			created = now
		}
		rows = append(rows, messageRow{
			ID:             m.ID,
			ConversationID: conversationID,
			Agent:          string(m.Response.Agent),
			Response:       m.Response,
			CreatedAt:      created.UTC(),
		})
	}
	return rows
}

func (r messageRow) toMessage() Message {
	return Message{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		Response:       r.Response,
		CreatedAt:      r.CreatedAt,
	}
}

func profileRowFrom(p *Profile, now time.Time) *profileRow {
	stored := cloneProfile(p)
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = now
	}
	return &profileRow{
		UserID:       stored.UserID,
		BusinessName: stored.BusinessName,
		BusinessType: stored.BusinessType,
		Location:     stored.Location,
		MapsPlaceID:  stored.MapsPlaceID,
		UpdatedAt:    stored.UpdatedAt.UTC(),
	}
}

func (r profileRow) toProfile() Profile {
	return Profile{
		UserID:       r.UserID,
		BusinessName: r.BusinessName,
		BusinessType: r.BusinessType,
		Location:     r.Location,
		MapsPlaceID:  r.MapsPlaceID,
		UpdatedAt:    r.UpdatedAt,
	}
}

func notificationRowFrom(n *Notification, now time.Time) *notificationRow {
	created := n.CreatedAt
	if created.IsZero() {
		created = now
	}
	return &notificationRow{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      n.Type,
		Title:     n.Title,
		Data:      n.Data,
		Read:      n.Read,
		CreatedAt: created.UTC(),
	}
}

func (r notificationRow) toNotification() Notification {
	return Notification{
		ID:        r.ID,
		UserID:    r.UserID,
		Type:      r.Type,
		Title:     r.Title,
		Data:      r.Data,
		Read:      r.Read,
		CreatedAt: r.CreatedAt,
	}
}
