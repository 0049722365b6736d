package queries

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/codr1/Padelicious/internal/models"
)

type User struct {
	NationalID   string          `json:"national_id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	PasswordHash string          `json:"-"`
	Role         models.Role     `json:"role"`
	Balance      decimal.Decimal `json:"balance"`
	CreatedAt    time.Time       `json:"created_at"`
}

type Court struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	HourlyCost decimal.Decimal `json:"hourly_cost"`
	MaxPlayers int64           `json:"max_players"`
}

type Equipment struct {
	ID       int64                    `json:"id"`
	Name     string                   `json:"name"`
	Category models.EquipmentCategory `json:"category"`
	Stock    int64                    `json:"stock"`
	UnitCost decimal.Decimal          `json:"unit_cost"`
}

type Reservation struct {
	ID                 int64                   `json:"id"`
	UserID             string                  `json:"user_id"`
	CourtID            int64                   `json:"court_id"`
	Date               string                  `json:"date"`
	StartTime          string                  `json:"start_time"`
	EndTime            string                  `json:"end_time"`
	EquipmentRequested bool                    `json:"equipment_requested"`
	EquipmentCost      decimal.Decimal         `json:"equipment_cost"`
	TotalCost          decimal.Decimal         `json:"total_cost"`
	State              models.ReservationState `json:"state"`
	Reminder3dSent     bool                    `json:"reminder_3d_sent"`
	Reminder1dSent     bool                    `json:"reminder_1d_sent"`
	CreatedAt          time.Time               `json:"created_at"`
	UpdatedAt          time.Time               `json:"updated_at"`
}

type Player struct {
	ID            int64  `json:"id"`
	ReservationID int64  `json:"reservation_id"`
	Name          string `json:"name"`
	Surname       string `json:"surname"`
	NationalID    string `json:"national_id"`
	Age           int64  `json:"age"`
}

type ReservationEquipment struct {
	ReservationID int64 `json:"reservation_id"`
	EquipmentID   int64 `json:"equipment_id"`
	Quantity      int64 `json:"quantity"`
}

type ReservationEquipmentRow struct {
	EquipmentID int64  `json:"equipment_id"`
	Name        string `json:"name"`
	Quantity    int64  `json:"quantity"`
}

// timestamp scans SQLite DATETIME values whether the driver hands back a
// time.Time (declared column) or raw text (expressions, RETURNING).
type timestamp struct {
	dst *time.Time
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

func (ts timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*ts.dst = time.Time{}
		return nil
	case time.Time:
		*ts.dst = v
		return nil
	case []byte:
		return ts.parse(string(v))
	case string:
		return ts.parse(v)
	}
	return fmt.Errorf("unsupported timestamp type %T", src)
}

func (ts timestamp) parse(raw string) error {
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			*ts.dst = parsed
			return nil
		}
	}
	return fmt.Errorf("unparseable timestamp %q", raw)
}
