package store

import (
	"database/sql"
	"fmt"

	"github.com/BTreeMap/SivetachiBot/internal/models"
)

// scanChatEvents reads chat events from rows selected as id, direction, phone, text, timestamp.
func scanChatEvents(rows *sql.Rows) ([]models.ChatEvent, error) {
	var events []models.ChatEvent
	for rows.Next() {
		var e models.ChatEvent
		var direction string
		if err := rows.Scan(&e.ID, &direction, &e.Phone, &e.Text, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan chat event failed: %w", err)
		}
		e.Direction = models.Direction(direction)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat events failed: %w", err)
	}
	return events, nil
}
