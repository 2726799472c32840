package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kvistad/russekort/internal/models"
)

var ErrCardNotFound = errors.New("card not found")

// CardServiceInterface is the surface handlers and the album depend on.
type CardServiceInterface interface {
	Create(ctx context.Context, params models.CreateCardParams) (*models.Card, error)
	GetCard(ctx context.Context, id string) (*models.Card, error)
	IncrementScan(ctx context.Context, id string) error
	Top(ctx context.Context, limit int) ([]models.TopItem, error)
}

type CardService struct {
	db DBConn
}

func NewCardService(db DBConn) *CardService {
	return &CardService{db: db}
}

// Create persists a new card record and returns it. The identifier is
// generated here; callers never choose ids.
func (s *CardService) Create(ctx context.Context, params models.CreateCardParams) (*models.Card, error) {
	id := models.NewCardID()

	var contactJSON []byte
	if !params.Contact.IsZero() {
		var err error
		contactJSON, err = json.Marshal(params.Contact)
		if err != nil {
			return nil, fmt.Errorf("encoding contact: %w", err)
		}
	}

	var stickersJSON []byte
	if len(params.Stickers) > 0 {
		var err error
		stickersJSON, err = json.Marshal(params.Stickers)
		if err != nil {
			return nil, fmt.Errorf("encoding stickers: %w", err)
		}
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO cards (
			id, display_name, russ_title, line, quote, contact,
			bg_color, text_color, font, stickers, image_path
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, id, params.DisplayName, params.RussTitle, params.Line, params.Quote,
		contactJSON, params.BgColor, params.TextColor, params.Font,
		stickersJSON, params.ImagePath)
	if err != nil {
		return nil, fmt.Errorf("inserting card: %w", err)
	}

	return s.GetCard(ctx, id)
}

// GetCard fetches a read-only card snapshot by id.
func (s *CardService) GetCard(ctx context.Context, id string) (*models.Card, error) {
	card := &models.Card{}
	var contactJSON, stickersJSON []byte
	var imagePath string

	err := s.db.QueryRow(ctx, `
		SELECT id, display_name, russ_title, line, quote, contact,
		       bg_color, text_color, font, stickers, image_path,
		       scan_count, created_at
		FROM cards WHERE id = $1
	`, id).Scan(
		&card.ID, &card.DisplayName, &card.RussTitle, &card.Line, &card.Quote,
		&contactJSON, &card.BgColor, &card.TextColor, &card.Font,
		&stickersJSON, &imagePath, &card.ScanCount, &card.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting card: %w", err)
	}

	if len(contactJSON) > 0 {
		contact := &models.Contact{}
		if err := json.Unmarshal(contactJSON, contact); err == nil {
			card.Contact = contact
		}
	}
	if len(stickersJSON) > 0 {
		// Unparsable sticker data degrades to a card without stickers.
		_ = json.Unmarshal(stickersJSON, &card.Stickers)
	}
	card.ImageURL = MediaURL(imagePath)

	return card, nil
}

// IncrementScan records one scan of a card.
func (s *CardService) IncrementScan(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `UPDATE cards SET scan_count = scan_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("incrementing scan count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCardNotFound
	}
	return nil
}

// Top returns up to limit cards ranked by scan count descending, oldest
// first among ties.
func (s *CardService) Top(ctx context.Context, limit int) ([]models.TopItem, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, display_name, image_path, scan_count
		FROM cards
		ORDER BY scan_count DESC, created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying top cards: %w", err)
	}
	defer rows.Close()

	items := []models.TopItem{}
	for rows.Next() {
		var item models.TopItem
		var imagePath string
		if err := rows.Scan(&item.ID, &item.DisplayName, &imagePath, &item.ScanCount); err != nil {
			return nil, fmt.Errorf("scanning top row: %w", err)
		}
		item.ImageURL = MediaURL(imagePath)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating top rows: %w", err)
	}
	return items, nil
}
