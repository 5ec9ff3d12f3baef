package database

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/foxxcyber/docfields/internal/models"
)

// CreateExtraction records one extraction run
func (db *DB) CreateExtraction(ctx context.Context, req *models.CreateExtractionRequest) (*models.Extraction, error) {
	fields, err := json.Marshal(req.Fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode fields: %w", err)
	}

	var result []byte
	if req.Result != nil {
		if result, err = json.Marshal(req.Result); err != nil {
			return nil, fmt.Errorf("failed to encode result: %w", err)
		}
	}

	var rawText, errMsg, clientID *string
	if req.ClientID != "" {
		clientID = &req.ClientID
	}
	if req.RawText != "" {
		rawText = &req.RawText
	}
	if req.ErrorMessage != "" {
		errMsg = &req.ErrorMessage
	}

	ext := &models.Extraction{
		DocumentID:   req.DocumentID,
		ClientID:     clientID,
		Strategy:     req.Strategy,
		Fields:       req.Fields,
		Result:       req.Result,
		RawText:      rawText,
		Status:       req.Status,
		ErrorMessage: errMsg,
		DurationMS:   req.Duration.Milliseconds(),
	}

	err = db.Pool.QueryRow(ctx, `
		INSERT INTO extractions (document_id, client_id, strategy, fields, result, raw_text, status, error_message, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`, req.DocumentID, clientID, req.Strategy, fields, result, rawText, string(req.Status), errMsg, ext.DurationMS).Scan(
		&ext.ID, &ext.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return ext, nil
}

// ListExtractions returns a document's extractions, newest first, with the total count
func (db *DB) ListExtractions(ctx context.Context, documentID string, limit, offset int) ([]*models.Extraction, int, error) {
	var total int
	err := db.Pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM extractions WHERE document_id = $1",
		documentID,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT id, document_id, client_id, strategy, fields, result, raw_text, status, error_message, duration_ms, created_at
		FROM extractions
		WHERE document_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, documentID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var extractions []*models.Extraction
	for rows.Next() {
		ext := &models.Extraction{}
		var fields, result []byte
		var status string

		if err := rows.Scan(
			&ext.ID, &ext.DocumentID, &ext.ClientID, &ext.Strategy, &fields, &result, &ext.RawText,
			&status, &ext.ErrorMessage, &ext.DurationMS, &ext.CreatedAt,
		); err != nil {
			return nil, 0, err
		}

		ext.Status = models.ExtractionStatus(status)
		if err := decodeJSONB(fields, &ext.Fields); err != nil {
			return nil, 0, fmt.Errorf("failed to decode fields of extraction %d: %w", ext.ID, err)
		}
		if len(result) > 0 {
			if err := decodeJSONB(result, &ext.Result); err != nil {
				return nil, 0, fmt.Errorf("failed to decode result of extraction %d: %w", ext.ID, err)
			}
		}
		extractions = append(extractions, ext)
	}

	return extractions, total, rows.Err()
}

// decodeJSONB keeps numbers as json.Number so long integers survive
func decodeJSONB(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
